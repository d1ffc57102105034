package flows

import (
	"context"
	"errors"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Registration  RegistrationDeps
	Login         LoginDeps
	PasswordReset PasswordResetDeps
	MFA           MFADeps
	Approval      ApprovalDeps
}

// AuthResult is what every successful sign-in path returns: the local
// session token, the identity provider tokens when a provider session was
// established, and the signed-in user.
type AuthResult struct {
	Token    string
	Provider account.Tokens
	User     *account.User
}

// EmitAuditFunc records one audit event. metadata is only invoked when the
// event is actually emitted.
type EmitAuditFunc func(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string)

// LookupFor builds the local user lookup for id. Phone numbers also match the
// legacy unprefixed form.
func LookupFor(id identifier.Identifier) account.Lookup {
	if id.IsEmail() {
		return account.Lookup{Email: id.Value}
	}
	return account.Lookup{Phones: id.Candidates()}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}

func identifierMeta(id identifier.Identifier) func() map[string]string {
	return func() map[string]string {
		return map[string]string{
			"identifier": id.Value,
			"channel":    id.Kind.String(),
		}
	}
}
