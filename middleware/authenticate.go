package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
)

// TokenVerificationFailed is the only message a rejected token ever gets.
const TokenVerificationFailed = "Token verification failed"

// Authenticator resolves a bearer token to its local user. Implemented by
// *fitfob.Engine.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*account.User, error)
}

type userContextKey struct{}

// UserFromContext returns the user attached by Authenticate.
func UserFromContext(ctx context.Context) (*account.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*account.User)
	return u, ok && u != nil
}

// WithUser attaches u to ctx.
func WithUser(ctx context.Context, u *account.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// Authenticate lets requests without an Authorization header through as
// anonymous. A header that is present must carry a valid bearer token.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			if auth == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				unauthorized(w)
				return
			}

			user, err := auth.AuthenticateToken(r.Context(), token)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func unauthorized(w http.ResponseWriter) {
	var body errorBody
	body.Error.Status = http.StatusUnauthorized
	body.Error.Message = TokenVerificationFailed

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(body)
}
