package fitfob

import (
	"context"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/jwt"
)

// UserStore is the local user mirror. Lookups that match nothing return
// [account.ErrNotFound].
//
// Implementations: store/postgres and store/memory.
type UserStore interface {
	FindUser(ctx context.Context, lookup account.Lookup) (*account.User, error)
	GetUserByID(ctx context.Context, id int64) (*account.User, error)
	GetUserByCognitoSub(ctx context.Context, sub string) (*account.User, error)
	GetUserByMFATempToken(ctx context.Context, token string) (*account.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, input account.NewUser) (*account.User, error)
	DeleteUser(ctx context.Context, id int64) error
	LinkCognitoSub(ctx context.Context, id int64, sub string) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateMFA(ctx context.Context, id int64, state account.MFAState) error
	SetVerified(ctx context.Context, id int64, verified bool) error
	// FindRole matches a role by name or by type.
	FindRole(ctx context.Context, nameOrType string) (*account.Role, error)
}

// ProfileStore answers whether onboarding profiles already claim an email or
// phone number.
type ProfileStore interface {
	ClientProfileExists(ctx context.Context, lookup account.Lookup) (bool, error)
}

// OTPGateway sends and checks one-time codes. Implemented by otp.Twilio.
type OTPGateway interface {
	StartVerification(ctx context.Context, id identifier.Identifier) error
	CheckVerification(ctx context.Context, id identifier.Identifier, code string) (bool, error)
}

// IdentityProvider is the external account system. Implemented by
// identity.Cognito. CreateUser must not leave an account behind when it
// returns an error.
type IdentityProvider interface {
	UserExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, username, password, displayName string, isPhone bool) (string, error)
	SetPassword(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (account.Tokens, error)
	AddUserToGroup(ctx context.Context, username, role string) error
	DeleteUser(ctx context.Context, username string) error
}

// ProviderTokenVerifier checks tokens minted by the identity provider.
// Implemented by jwt.ProviderVerifier.
type ProviderTokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwt.ProviderClaims, error)
}

// RegisterInput is the first registration step. Role is optional.
type RegisterInput struct {
	Identifier      string
	Password        string
	ConfirmPassword string
	Role            string
}

// AuthResult is returned by every successful sign-in: the local session
// token, the identity provider tokens (zero when none were obtained), and the
// signed-in user.
type AuthResult = flows.AuthResult

// MFAChallenge is the response to the admin password step.
type MFAChallenge = flows.MFAChallenge

// MFAVerifyResult is either a completed admin sign-in or a reset signal.
type MFAVerifyResult = flows.MFAVerifyResult
