package httpapi

import (
	"context"
	"net/http"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// Engine is the part of *fitfob.Engine the HTTP layer calls.
type Engine interface {
	middleware.Authenticator

	Register(ctx context.Context, input fitfob.RegisterInput) error
	VerifyRegistration(ctx context.Context, identifier, code string) (*fitfob.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*fitfob.AuthResult, error)

	SendPasswordResetOTP(ctx context.Context, identifier string) error
	VerifyPasswordResetOTP(ctx context.Context, identifier, code string) error
	ResetPassword(ctx context.Context, identifier, password, confirmPassword string) error

	StartAdminLogin(ctx context.Context, identifier, password string) (*fitfob.MFAChallenge, error)
	ActivateMFA(ctx context.Context, email, code string) error
	VerifyMFA(ctx context.Context, tempToken, code, password string) (*fitfob.MFAVerifyResult, error)

	ApproveUser(ctx context.Context, actorID int64, userID string) (*account.User, error)
	RevokeApproval(ctx context.Context, actorID int64, userID string) (*account.User, error)
}

// Options configures NewRouter.
type Options struct {
	Logger *zap.Logger
	// CORSOrigins lists allowed origins. Empty allows any origin.
	CORSOrigins []string
	// TrustForwardedFor takes the client IP from X-Forwarded-For. Enable only
	// behind a proxy that sets it.
	TrustForwardedFor bool
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
}

type api struct {
	engine   Engine
	logger   *zap.Logger
	validate *validator.Validate
}

// NewRouter returns the complete HTTP handler.
func NewRouter(engine Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &api{
		engine:   engine,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(
		requestContext(opts.TrustForwardedFor),
		accessLog(logger),
		recoverer(logger),
		securityHeaders,
		middleware.Authenticate(engine),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", a.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// registration
	r.Post("/register-with-role", a.register)
	r.Post("/verify-register-otp", a.verifyRegistration)

	// login
	r.Post("/auth/local", a.login)
	r.Post("/login", a.login)

	// forgot password
	r.Post("/auth/forgot-password", a.forgotPassword)
	r.Post("/auth/verify-otp", a.verifyResetOTP)
	r.Post("/auth/reset-password", a.resetPassword)

	// admin MFA
	r.Post("/mfa/login", a.mfaLogin)
	r.Post("/mfa/activate", a.mfaActivate)
	r.Post("/mfa/verify", a.mfaVerify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/users/me", a.me)
		r.Post("/verify-approval", a.approve)
		r.Post("/verify-approval/{id}", a.approve)
		r.Post("/revoke-approval", a.revoke)
		r.Post("/revoke-approval/{id}", a.revoke)
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(opts.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
		handlers.AllowCredentials(),
	)
	return cors(r)
}
