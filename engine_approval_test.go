package fitfob

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
)

func TestApproveAndRevoke(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	env := newTestEnv(t, cfg)
	ctx := context.Background()
	admin := env.seedUser(t, account.RoleAdmin, "admin@fitfob.in", "", "admin-pass")
	owner := env.seedUser(t, account.RoleClubOwner, "owner@example.com", "", "owner-pass")
	id := strconv.FormatInt(owner.ID, 10)

	got, err := env.engine.ApproveUser(ctx, admin.ID, id)
	if err != nil {
		t.Fatalf("ApproveUser failed: %v", err)
	}
	if !got.IsVerified {
		t.Fatal("expected approved user")
	}
	if _, err := env.engine.ApproveUser(ctx, admin.ID, id); !errors.Is(err, ErrUserAlreadyApproved) {
		t.Fatalf("expected ErrUserAlreadyApproved, got %v", err)
	}

	got, err = env.engine.RevokeApproval(ctx, admin.ID, id)
	if err != nil {
		t.Fatalf("RevokeApproval failed: %v", err)
	}
	if got.IsVerified {
		t.Fatal("expected revoked user")
	}
	if _, err := env.engine.RevokeApproval(ctx, admin.ID, id); !errors.Is(err, ErrUserAlreadyUnapproved) {
		t.Fatalf("expected ErrUserAlreadyUnapproved, got %v", err)
	}

	stored, _ := env.store.GetUserByID(ctx, owner.ID)
	if stored.IsVerified {
		t.Fatal("stored flag must follow the last change")
	}
	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricApprovalGranted] != 1 || snap.Counters[MetricApprovalRevoked] != 1 {
		t.Fatalf("unexpected approval counters: %+v", snap.Counters)
	}
}

func TestApprovalRejections(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	for _, raw := range []string{"", "abc", "0", "-4"} {
		if _, err := env.engine.ApproveUser(ctx, 1, raw); !errors.Is(err, ErrApprovalIDRequired) {
			t.Fatalf("ApproveUser(%q): expected ErrApprovalIDRequired, got %v", raw, err)
		}
	}
	if _, err := env.engine.ApproveUser(ctx, 1, "999"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
