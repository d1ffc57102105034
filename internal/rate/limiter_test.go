package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginLimiterBlocksAfterBudget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	defer mr.Close()

	l := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "+919876543210", "1.2.3.4"); err != nil {
			t.Fatalf("check %d unexpectedly limited: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "+919876543210", "1.2.3.4"); err != nil {
			t.Fatalf("IncrementLogin failed: %v", err)
		}
	}

	if err := l.CheckLogin(ctx, "+919876543210", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "someone-else", "1.2.3.4"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}

	if err := l.ResetLogin(ctx, "+919876543210"); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}
	n, err := l.GetLoginAttempts(ctx, "+919876543210")
	if err != nil || n != 0 {
		t.Fatalf("expected counter reset, got %d err=%v", n, err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "someone-else", "1.2.3.4"); err != nil {
		t.Fatalf("expected IP window to lapse, got %v", err)
	}
}

func TestLoginLimiterDisabled(t *testing.T) {
	l := New(nil, Config{})
	if err := l.CheckLogin(context.Background(), "x", "y"); err != nil {
		t.Fatalf("disabled limiter should allow: %v", err)
	}
	if err := l.IncrementLogin(context.Background(), "x", "y"); err != nil {
		t.Fatalf("disabled limiter should not count: %v", err)
	}
}
