package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
)

var (
	errNotReady    = errors.New("not ready")
	errIDRequired  = errors.New("id required")
	errNotFound    = errors.New("not found")
	errApproved    = errors.New("already approved")
	errUnapproved  = errors.New("already unapproved")
	errApprovalBad = errors.New("approval failed")
)

type auditCall struct {
	event    string
	userID   string
	metadata map[string]string
}

func approvalDeps(users map[int64]*account.User, metrics *[]int, audits *[]auditCall) ApprovalDeps {
	return ApprovalDeps{
		GetUserByID: func(_ context.Context, id int64) (*account.User, error) {
			u, ok := users[id]
			if !ok {
				return nil, account.ErrNotFound
			}
			cp := *u
			return &cp, nil
		},
		SetVerified: func(_ context.Context, id int64, v bool) error {
			users[id].IsVerified = v
			return nil
		},
		MetricInc: func(id int) { *metrics = append(*metrics, id) },
		EmitAudit: func(_ context.Context, event string, _ bool, userID string, _ error, meta func() map[string]string) {
			*audits = append(*audits, auditCall{event: event, userID: userID, metadata: meta()})
		},
		Metrics: ApprovalMetrics{ApprovalGranted: 1, ApprovalRevoked: 2},
		Events:  ApprovalEvents{ApprovalChange: "approval_change"},
		Errors: ApprovalErrors{
			EngineNotReady:    errNotReady,
			IDRequired:        errIDRequired,
			UserNotFound:      errNotFound,
			AlreadyApproved:   errApproved,
			AlreadyUnapproved: errUnapproved,
			ApprovalFailed:    errApprovalBad,
		},
	}
}

func TestRunSetApprovalTogglesAndRecords(t *testing.T) {
	users := map[int64]*account.User{5: {ID: 5, Username: "bob"}}
	var metrics []int
	var audits []auditCall
	deps := approvalDeps(users, &metrics, &audits)

	u, err := RunSetApproval(context.Background(), 1, " 5 ", true, deps)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !u.IsVerified || !users[5].IsVerified {
		t.Fatalf("user not approved")
	}
	if _, err := RunSetApproval(context.Background(), 1, "5", true, deps); !errors.Is(err, errApproved) {
		t.Fatalf("second approve: got %v", err)
	}
	if _, err := RunSetApproval(context.Background(), 1, "5", false, deps); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := RunSetApproval(context.Background(), 1, "5", false, deps); !errors.Is(err, errUnapproved) {
		t.Fatalf("second revoke: got %v", err)
	}

	if len(metrics) != 2 || metrics[0] != 1 || metrics[1] != 2 {
		t.Fatalf("metrics = %v", metrics)
	}
	if len(audits) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(audits))
	}
	if audits[0].userID != "5" || audits[0].metadata["actor_id"] != "1" || audits[0].metadata["is_verified"] != "true" {
		t.Fatalf("unexpected audit: %+v", audits[0])
	}
}

func TestRunSetApprovalErrors(t *testing.T) {
	users := map[int64]*account.User{}
	var metrics []int
	var audits []auditCall
	deps := approvalDeps(users, &metrics, &audits)

	for _, raw := range []string{"", "x", "0", "-1"} {
		if _, err := RunSetApproval(context.Background(), 1, raw, true, deps); !errors.Is(err, errIDRequired) {
			t.Fatalf("id %q: got %v", raw, err)
		}
	}
	if _, err := RunSetApproval(context.Background(), 1, "9", true, deps); !errors.Is(err, errNotFound) {
		t.Fatalf("missing user: got %v", err)
	}

	deps.GetUserByID = func(context.Context, int64) (*account.User, error) {
		return nil, errors.New("db down")
	}
	if _, err := RunSetApproval(context.Background(), 1, "9", true, deps); !errors.Is(err, errApprovalBad) {
		t.Fatalf("store failure: got %v", err)
	}

	deps.SetVerified = nil
	if _, err := RunSetApproval(context.Background(), 1, "9", true, deps); !errors.Is(err, errNotReady) {
		t.Fatalf("unwired deps: got %v", err)
	}
	if len(metrics) != 0 || len(audits) != 0 {
		t.Fatalf("failures must not record metrics or audits")
	}
}

func TestLookupFor(t *testing.T) {
	n := identifier.Normalizer{CountryCode: "91", DomesticDigits: 10}

	email := LookupFor(n.Normalize("A@Example.com"))
	if email.Email == "" || len(email.Phones) != 0 {
		t.Fatalf("email lookup = %+v", email)
	}

	phone := LookupFor(n.Normalize("98765 43210"))
	if phone.Email != "" || len(phone.Phones) == 0 {
		t.Fatalf("phone lookup = %+v", phone)
	}
	found := false
	for _, p := range phone.Phones {
		if p == "9876543210" {
			found = true
		}
	}
	if !found {
		t.Fatalf("legacy unprefixed phone missing from %v", phone.Phones)
	}
}
