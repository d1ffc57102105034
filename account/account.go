// Package account holds the local user mirror types shared by the engine, the
// stores, and the HTTP layer.
package account

import (
	"errors"
	"strconv"
	"time"
)

// ErrNotFound is returned by stores when no record matches a lookup.
var ErrNotFound = errors.New("account: not found")

// Role names known to the service.
const (
	RoleAdmin     = "Admin"
	RoleClubOwner = "ClubOwner"
	RoleClient    = "Client"
)

// Role is a named permission group.
type Role struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Type string `db:"type" json:"type"`
}

// MFAState is the TOTP enrollment state kept on the user row. It is never
// serialized to clients.
type MFAState struct {
	Secret         string
	TempSecret     string
	TempToken      string
	Identifier     string
	FailedAttempts int
}

// User is the local mirror of an identity provider account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	CognitoSub   string
	Confirmed    bool
	Blocked      bool
	IsVerified   bool
	Role         Role
	MFA          MFAState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IDString returns the decimal form of the user id.
func (u User) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// ProviderUsername is the identity provider username for the user: the phone
// number when one is set, otherwise the email. Accounts are created under this
// value, so every later provider call must use it too.
func (u User) ProviderUsername() string {
	if u.PhoneNumber != "" {
		return u.PhoneNumber
	}
	return u.Email
}

// IsAdmin reports whether the user holds the Admin role.
func (u User) IsAdmin() bool {
	return u.Role.Name == RoleAdmin
}

// NewUser is the input for creating a local user.
type NewUser struct {
	Username     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	RoleID       int64
	Confirmed    bool
	Blocked      bool
	IsVerified   bool
}

// Lookup matches a user by email or by any of the phone forms.
type Lookup struct {
	Email  string
	Phones []string
}

// Empty reports whether the lookup has nothing to match on.
func (l Lookup) Empty() bool {
	return l.Email == "" && len(l.Phones) == 0
}

// Tokens are the identity provider credentials returned after authentication.
// The zero value means no provider session was established.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int32  `json:"expiresIn"`
}

// Empty reports whether no provider tokens are present.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.IDToken == ""
}

// PublicRole is the role as exposed to clients.
type PublicRole struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// PublicUser is the sanitized projection returned by the API. It never
// carries the password hash or MFA fields.
type PublicUser struct {
	ID          int64       `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
	IsVerified  bool        `json:"isVerified"`
	CognitoSub  string      `json:"cognitoSub,omitempty"`
	Confirmed   bool        `json:"confirmed"`
	Blocked     bool        `json:"blocked"`
	Role        *PublicRole `json:"role,omitempty"`
}

// Public returns the sanitized projection of u.
func (u User) Public() PublicUser {
	out := PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		IsVerified:  u.IsVerified,
		CognitoSub:  u.CognitoSub,
		Confirmed:   u.Confirmed,
		Blocked:     u.Blocked,
	}
	if u.Role.Name != "" {
		out.Role = &PublicRole{ID: u.Role.ID, Name: u.Role.Name, Type: u.Role.Type}
	}
	return out
}

// ApprovalView is the reduced projection returned by the approval endpoints.
type ApprovalView struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// Approval returns the approval projection of u.
func (u User) Approval() ApprovalView {
	return ApprovalView{ID: u.ID, Username: u.Username, Email: u.Email, IsVerified: u.IsVerified}
}
