package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
)

type ApprovalMetrics struct {
	ApprovalGranted int
	ApprovalRevoked int
}

type ApprovalEvents struct {
	ApprovalChange string
}

type ApprovalErrors struct {
	EngineNotReady    error
	IDRequired        error
	UserNotFound      error
	AlreadyApproved   error
	AlreadyUnapproved error
	ApprovalFailed    error
}

// ApprovalDeps wires the operator approval switch.
type ApprovalDeps struct {
	GetUserByID func(context.Context, int64) (*account.User, error)
	SetVerified func(context.Context, int64, bool) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics ApprovalMetrics
	Events  ApprovalEvents
	Errors  ApprovalErrors
}

// RunSetApproval flips the isVerified flag of the user with rawID to approved.
// Setting a flag to the value it already holds is an error.
func RunSetApproval(ctx context.Context, actorID int64, rawID string, approved bool, deps ApprovalDeps) (*account.User, error) {
	normalizeApprovalDeps(&deps)

	if deps.GetUserByID == nil || deps.SetVerified == nil {
		return nil, deps.Errors.EngineNotReady
	}

	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return nil, deps.Errors.IDRequired
	}

	user, err := deps.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.ApprovalFailed, err)
	}

	if user.IsVerified == approved {
		if approved {
			return nil, deps.Errors.AlreadyApproved
		}
		return nil, deps.Errors.AlreadyUnapproved
	}

	if err := deps.SetVerified(ctx, id, approved); err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.ApprovalFailed, err)
	}
	user.IsVerified = approved

	if approved {
		deps.MetricInc(deps.Metrics.ApprovalGranted)
	} else {
		deps.MetricInc(deps.Metrics.ApprovalRevoked)
	}
	deps.EmitAudit(ctx, deps.Events.ApprovalChange, true, user.IDString(), nil, func() map[string]string {
		return map[string]string{
			"actor_id":    strconv.FormatInt(actorID, 10),
			"is_verified": strconv.FormatBool(approved),
		}
	})
	return user, nil
}

func normalizeApprovalDeps(deps *ApprovalDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
