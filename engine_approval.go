package fitfob

import (
	"context"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
)

// ApproveUser marks the user with id userID as verified. actorID is the
// signed-in operator and is recorded in the audit trail.
func (e *Engine) ApproveUser(ctx context.Context, actorID int64, userID string) (*account.User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.SetApproval(ctx, actorID, userID, true)
}

// RevokeApproval clears the verified flag of the user with id userID.
func (e *Engine) RevokeApproval(ctx context.Context, actorID int64, userID string) (*account.User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.SetApproval(ctx, actorID, userID, false)
}

func (e *Engine) approvalFlowDeps() flows.ApprovalDeps {
	return flows.ApprovalDeps{
		GetUserByID: e.users.GetUserByID,
		SetVerified: e.users.SetVerified,

		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,

		Metrics: flows.ApprovalMetrics{
			ApprovalGranted: int(MetricApprovalGranted),
			ApprovalRevoked: int(MetricApprovalRevoked),
		},
		Events: flows.ApprovalEvents{
			ApprovalChange: auditEventApprovalChange,
		},
		Errors: flows.ApprovalErrors{
			EngineNotReady:    ErrEngineNotReady,
			IDRequired:        ErrApprovalIDRequired,
			UserNotFound:      ErrUserNotFound,
			AlreadyApproved:   ErrUserAlreadyApproved,
			AlreadyUnapproved: ErrUserAlreadyUnapproved,
			ApprovalFailed:    ErrApprovalFailed,
		},
	}
}

