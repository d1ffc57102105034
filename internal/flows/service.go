package flows

import (
	"context"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.FindUser != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) error {
	return RunRegister(ctx, req, s.deps.Registration)
}

func (s Service) VerifyRegistration(ctx context.Context, identifier, code string) (*AuthResult, error) {
	return RunVerifyRegistration(ctx, identifier, code, s.deps.Registration)
}

func (s Service) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	return RunLogin(ctx, identifier, password, s.deps.Login)
}

func (s Service) SendPasswordResetOTP(ctx context.Context, identifier string) error {
	return RunSendPasswordResetOTP(ctx, identifier, s.deps.PasswordReset)
}

func (s Service) VerifyPasswordResetOTP(ctx context.Context, identifier, code string) error {
	return RunVerifyPasswordResetOTP(ctx, identifier, code, s.deps.PasswordReset)
}

func (s Service) ResetPassword(ctx context.Context, identifier, password, confirmPassword string) error {
	return RunResetPassword(ctx, identifier, password, confirmPassword, s.deps.PasswordReset)
}

func (s Service) StartAdminLogin(ctx context.Context, identifier, password string) (*MFAChallenge, error) {
	return RunStartAdminLogin(ctx, identifier, password, s.deps.MFA)
}

func (s Service) ActivateMFA(ctx context.Context, email, code string) error {
	return RunActivateMFA(ctx, email, code, s.deps.MFA)
}

func (s Service) VerifyMFA(ctx context.Context, tempToken, code, password string) (*MFAVerifyResult, error) {
	return RunVerifyMFA(ctx, tempToken, code, password, s.deps.MFA)
}

func (s Service) SetApproval(ctx context.Context, actorID int64, userID string, approved bool) (*account.User, error) {
	return RunSetApproval(ctx, actorID, userID, approved, s.deps.Approval)
}
