package fitfob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/otp"
)

func registerInput(id string) RegisterInput {
	return RegisterInput{Identifier: id, Password: "secret123", ConfirmPassword: "secret123"}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing identifier", RegisterInput{Password: "a", ConfirmPassword: "a"}, ErrRegisterFieldsRequired},
		{"missing confirmation", RegisterInput{Identifier: "a@b.co", Password: "a"}, ErrRegisterFieldsRequired},
		{"mismatch", RegisterInput{Identifier: "a@b.co", Password: "a", ConfirmPassword: "b"}, ErrPasswordMismatch},
		{"bad identifier", registerInput("12345"), ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := env.engine.Register(ctx, tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if env.otp.sentCount() != 0 {
		t.Fatalf("no OTP may be sent for invalid input, got %d", env.otp.sentCount())
	}
}

func TestRegisterAndVerifyEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("  New.User@Example.com ")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if env.otp.sentCount() != 1 || env.otp.sent[0] != "new.user@example.com" {
		t.Fatalf("expected one OTP to the normalized email, got %v", env.otp.sent)
	}

	if _, err := env.engine.VerifyRegistration(ctx, "new.user@example.com", "000000"); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}

	res, err := env.engine.VerifyRegistration(ctx, "new.user@example.com", testOTPCode)
	if err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a session token")
	}
	if res.Provider.AccessToken == "" {
		t.Fatal("expected provider tokens from auto-login")
	}
	u := res.User
	if u.Username != "new.user" || u.Email != "new.user@example.com" || u.Role.Name != account.RoleClient {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.Confirmed || u.Blocked || u.IsVerified {
		t.Fatalf("unexpected flags: confirmed=%v blocked=%v verified=%v", u.Confirmed, u.Blocked, u.IsVerified)
	}

	remote, ok := env.idp.get("new.user@example.com")
	if !ok {
		t.Fatal("expected identity provider account")
	}
	if u.CognitoSub != remote.sub {
		t.Fatalf("expected linked sub %q, got %q", remote.sub, u.CognitoSub)
	}
	if len(remote.groups) != 1 || remote.groups[0] != "Member_users" {
		t.Fatalf("expected Member_users group, got %v", remote.groups)
	}

	stored, err := env.store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if ok, err := env.engine.passwordHash.Verify("secret123", stored.PasswordHash); err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	if _, err := env.engine.VerifyRegistration(ctx, "new.user@example.com", testOTPCode); !errors.Is(err, ErrSignupExpired) {
		t.Fatalf("pending signup must be consumed, got %v", err)
	}
}

func TestRegisterPhoneUsesCanonicalForm(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("98765 43210")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	res, err := env.engine.VerifyRegistration(ctx, "919876543210", testOTPCode)
	if err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
	if res.User.PhoneNumber != "+919876543210" {
		t.Fatalf("expected canonical phone, got %q", res.User.PhoneNumber)
	}
	if res.User.Email != "+919876543210@phone.user" {
		t.Fatalf("expected placeholder email, got %q", res.User.Email)
	}
	if _, ok := env.idp.get("+919876543210"); !ok {
		t.Fatal("expected identity provider account under the phone number")
	}
}

func TestRegisterRequestedRole(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	input := registerInput("owner@example.com")
	input.Role = "ClubOwner"
	if err := env.engine.Register(ctx, input); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	res, err := env.engine.VerifyRegistration(ctx, "owner@example.com", testOTPCode)
	if err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
	if res.User.Role.Name != account.RoleClubOwner {
		t.Fatalf("expected ClubOwner, got %q", res.User.Role.Name)
	}

	input = registerInput("someone@example.com")
	input.Role = "Trainer"
	if err := env.engine.Register(ctx, input); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	res, err = env.engine.VerifyRegistration(ctx, "someone@example.com", testOTPCode)
	if err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
	if res.User.Role.Name != account.RoleClient {
		t.Fatalf("unknown role must fall back to Client, got %q", res.User.Role.Name)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	env.seedUser(t, account.RoleClient, "9876543210@phone.user", "9876543210", "secret123")
	env.store.AddClientProfile("profile@example.com", "")
	env.idp.add("remote@example.com", "pw")

	for _, id := range []string{"+919876543210", "Profile@example.com", "remote@example.com"} {
		if err := env.engine.Register(ctx, registerInput(id)); !errors.Is(err, ErrAlreadyRegistered) {
			t.Fatalf("%s: expected ErrAlreadyRegistered, got %v", id, err)
		}
	}
	if env.otp.sentCount() != 0 {
		t.Fatalf("duplicates must not trigger an OTP, got %d", env.otp.sentCount())
	}
}

func TestVerifyRegistrationUsernameCollision(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	role, _ := env.store.FindRole(ctx, account.RoleClient)
	if _, err := env.store.CreateUser(ctx, account.NewUser{Username: "alex", Email: "alex@third.com", RoleID: role.ID}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := env.engine.Register(ctx, registerInput("alex@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	res, err := env.engine.VerifyRegistration(ctx, "alex@example.com", testOTPCode)
	if err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
	if res.User.Username != "alex1" {
		t.Fatalf("expected alex1, got %q", res.User.Username)
	}
}

func TestVerifyRegistrationCompensatesProviderFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("member@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	env.idp.createErr = errors.New("InvalidPasswordException")
	if _, err := env.engine.VerifyRegistration(ctx, "member@example.com", testOTPCode); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if _, err := env.store.FindUser(ctx, account.Lookup{Email: "member@example.com"}); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("local user must be removed, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRegisterCompensated]; got != 1 {
		t.Fatalf("expected one compensation, got %d", got)
	}

	env.idp.createErr = nil
	if _, err := env.engine.VerifyRegistration(ctx, "member@example.com", testOTPCode); err != nil {
		t.Fatalf("retry while the signup is live should succeed, got %v", err)
	}
}

func TestVerifyRegistrationRemovesHalfCreatedProviderAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("+919876543210")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	env.idp.createErr = errors.New("admin set user password: InvalidPasswordException")
	env.idp.leaveOnErr = true
	if _, err := env.engine.VerifyRegistration(ctx, "9876543210", testOTPCode); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if _, ok := env.idp.get("+919876543210"); ok {
		t.Fatal("provider account must not outlive a failed registration")
	}

	env.idp.createErr = nil
	env.idp.leaveOnErr = false
	if _, err := env.engine.VerifyRegistration(ctx, "9876543210", testOTPCode); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
}

func TestVerifyRegistrationExpired(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("late@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	env.withClock(func() time.Time { return time.Now().Add(11 * time.Minute) })

	if _, err := env.engine.VerifyRegistration(ctx, "late@example.com", testOTPCode); !errors.Is(err, ErrSignupExpired) {
		t.Fatalf("expected ErrSignupExpired, got %v", err)
	}
	if _, err := env.engine.pending.Get(ctx, "late@example.com"); err == nil {
		t.Fatal("expired pending signup must be deleted on access")
	}
}

func TestVerifyRegistrationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("race@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	env.seedUser(t, account.RoleClient, "race@example.com", "", "secret123")

	if _, err := env.engine.VerifyRegistration(ctx, "race@example.com", testOTPCode); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestRegisterReplacesPendingSignup(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	first := registerInput("again@example.com")
	second := RegisterInput{Identifier: "again@example.com", Password: "second-pass", ConfirmPassword: "second-pass"}
	if err := env.engine.Register(ctx, first); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := env.engine.Register(ctx, second); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res, err := env.engine.VerifyRegistration(ctx, "again@example.com", testOTPCode)
	if err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
	if _, err := env.idp.Authenticate(ctx, res.User.ProviderUsername(), "second-pass"); err != nil {
		t.Fatalf("the latest registration must win: %v", err)
	}
}

func TestRegisterOTPThrottle(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	for i := 0; i < 5; i++ {
		if err := env.engine.Register(ctx, registerInput("busy@example.com")); err != nil {
			t.Fatalf("attempt %d failed: %v", i+1, err)
		}
	}
	if err := env.engine.Register(ctx, registerInput("busy@example.com")); !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}
	if env.otp.sentCount() != 5 {
		t.Fatalf("expected 5 sends, got %d", env.otp.sentCount())
	}
}

func TestRegisterOTPProviderErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	env.otp.startErr = fmt.Errorf("%w: 60200 Invalid parameter", otp.ErrInvalidDestination)
	if err := env.engine.Register(ctx, registerInput("a@example.com")); !errors.Is(err, ErrOTPInvalidDestination) {
		t.Fatalf("expected ErrOTPInvalidDestination, got %v", err)
	}

	env.otp.startErr = fmt.Errorf("%w: 20003", otp.ErrUnavailable)
	if err := env.engine.Register(ctx, registerInput("a@example.com")); !errors.Is(err, ErrOTPUnavailable) {
		t.Fatalf("expected ErrOTPUnavailable, got %v", err)
	}
}

func TestRegisterSealedPendingPassword(t *testing.T) {
	cfg := testConfig()
	cfg.Signup.SealKey = []byte("0123456789abcdef0123456789abcdef")
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerInput("sealed@example.com")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	raw, err := env.mr.Get(cfg.Signup.RedisPrefix + ":sealed@example.com")
	if err != nil {
		t.Fatalf("pending record missing: %v", err)
	}
	if strings.Contains(raw, "secret123") {
		t.Fatal("sealed pending record must not contain the plaintext password")
	}
	if _, err := env.engine.VerifyRegistration(ctx, "sealed@example.com", testOTPCode); err != nil {
		t.Fatalf("VerifyRegistration failed: %v", err)
	}
}
