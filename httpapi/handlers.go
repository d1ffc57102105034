package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// ---------------------------------------------------------------------------
// Request bodies
// ---------------------------------------------------------------------------

type registerRequest struct {
	Identifier      string `json:"identifier" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Role            string `json:"role"`
}

type identifierOTPRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	OTP        string `json:"otp" validate:"required"`
}

type credentialsRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

type resetPasswordRequest struct {
	Identifier      string `json:"identifier" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type mfaActivateRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

type mfaVerifyRequest struct {
	TempToken string `json:"tempToken" validate:"required"`
	OTP       string `json:"otp" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type messageResponse struct {
	Message string `json:"message"`
}

type authResponse struct {
	JWT     string             `json:"jwt"`
	Cognito *account.Tokens    `json:"cognito,omitempty"`
	User    account.PublicUser `json:"user"`
}

type mfaChallengeResponse struct {
	TempToken        string `json:"tempToken"`
	MFASetupRequired bool   `json:"mfaSetupRequired"`
	OTPAuthURL       string `json:"otpauthUrl,omitempty"`
	Secret           string `json:"secret,omitempty"`
}

type mfaResetResponse struct {
	MFAResetRequired bool   `json:"mfaResetRequired"`
	Message          string `json:"message"`
}

type approvalResponse struct {
	Message string               `json:"message"`
	User    account.ApprovalView `json:"user"`
}

func newAuthResponse(res *fitfob.AuthResult) authResponse {
	out := authResponse{JWT: res.Token}
	if !res.Provider.Empty() {
		tokens := res.Provider
		out.Cognito = &tokens
	}
	if res.User != nil {
		out.User = res.User.Public()
	}
	return out
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !a.decode(w, r, &body, fitfob.ErrRegisterFieldsRequired) {
		return
	}

	err := a.engine.Register(r.Context(), fitfob.RegisterInput{
		Identifier:      body.Identifier,
		Password:        body.Password,
		ConfirmPassword: body.ConfirmPassword,
		Role:            body.Role,
	})
	if err != nil {
		a.fail(w, r, err, fitfob.ErrRegistrationFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP sent successfully"})
}

func (a *api) verifyRegistration(w http.ResponseWriter, r *http.Request) {
	var body identifierOTPRequest
	if !a.decode(w, r, &body, fitfob.ErrVerifyFieldsRequired) {
		return
	}

	res, err := a.engine.VerifyRegistration(r.Context(), body.Identifier, body.OTP)
	if err != nil {
		a.fail(w, r, err, fitfob.ErrRegistrationFailed)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !a.decode(w, r, &body, fitfob.ErrLoginFieldsRequired) {
		return
	}

	res, err := a.engine.Login(r.Context(), body.Identifier, body.Password)
	if err != nil {
		a.fail(w, r, err, fitfob.ErrLoginFailed)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

func (a *api) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPasswordRequest
	if !a.decode(w, r, &body, fitfob.ErrResetIdentifierRequired) {
		return
	}

	if err := a.engine.SendPasswordResetOTP(r.Context(), body.Identifier); err != nil {
		a.fail(w, r, err, fitfob.ErrPasswordResetFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP sent successfully"})
}

func (a *api) verifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var body identifierOTPRequest
	if !a.decode(w, r, &body, fitfob.ErrVerifyFieldsRequired) {
		return
	}

	if err := a.engine.VerifyPasswordResetOTP(r.Context(), body.Identifier, body.OTP); err != nil {
		a.fail(w, r, err, fitfob.ErrPasswordResetFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (a *api) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordRequest
	if !a.decode(w, r, &body, fitfob.ErrResetFieldsRequired) {
		return
	}

	if err := a.engine.ResetPassword(r.Context(), body.Identifier, body.Password, body.ConfirmPassword); err != nil {
		a.fail(w, r, err, fitfob.ErrPasswordResetFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successful"})
}

func (a *api) mfaLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !a.decode(w, r, &body, fitfob.ErrLoginFieldsRequired) {
		return
	}

	ch, err := a.engine.StartAdminLogin(r.Context(), body.Identifier, body.Password)
	if err != nil {
		a.fail(w, r, err, fitfob.ErrMFAFailed)
		return
	}
	writeJSON(w, http.StatusOK, mfaChallengeResponse{
		TempToken:        ch.TempToken,
		MFASetupRequired: ch.SetupRequired,
		OTPAuthURL:       ch.OTPAuthURL,
		Secret:           ch.Secret,
	})
}

func (a *api) mfaActivate(w http.ResponseWriter, r *http.Request) {
	var body mfaActivateRequest
	if !a.decode(w, r, &body, fitfob.ErrMFAActivateFieldsRequired) {
		return
	}

	if err := a.engine.ActivateMFA(r.Context(), body.Email, body.OTP); err != nil {
		a.fail(w, r, err, fitfob.ErrMFAFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "MFA successfully enabled"})
}

func (a *api) mfaVerify(w http.ResponseWriter, r *http.Request) {
	var body mfaVerifyRequest
	if !a.decode(w, r, &body, fitfob.ErrMFAVerifyFieldsRequired) {
		return
	}

	res, err := a.engine.VerifyMFA(r.Context(), body.TempToken, body.OTP, body.Password)
	if err != nil {
		a.fail(w, r, err, fitfob.ErrMFAFailed)
		return
	}
	if res.ResetRequired || res.Auth == nil {
		writeJSON(w, http.StatusOK, mfaResetResponse{MFAResetRequired: true, Message: fitfob.MFAResetMessage})
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(res.Auth))
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]account.PublicUser{"user": user.Public()})
}

func (a *api) approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())

	user, err := a.engine.ApproveUser(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, fitfob.ErrApprovalFailed)
		return
	}
	writeJSON(w, http.StatusOK, approvalResponse{Message: "User approved successfully", User: user.Approval()})
}

func (a *api) revoke(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFromContext(r.Context())

	user, err := a.engine.RevokeApproval(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, fitfob.ErrApprovalFailed)
		return
	}
	writeJSON(w, http.StatusOK, approvalResponse{Message: "User approval revoked successfully", User: user.Approval()})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

// decode reads a strict JSON body into dst and validates it. On failure it
// writes a 400 carrying required and reports false.
func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any, required error) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		a.logger.Debug("rejected request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadRequest, required.Error())
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, required.Error())
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, required.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
