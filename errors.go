package fitfob

import "errors"

// Sentinel errors returned by Engine methods. The error text is the message
// shown to API clients; wrapped causes are for logs only.
var (
	// ErrEngineNotReady means the engine was not fully built.
	ErrEngineNotReady = errors.New("engine not ready")

	// ErrRegisterFieldsRequired is returned when a registration field is missing.
	ErrRegisterFieldsRequired = errors.New("identifier, password, confirmPassword required")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("Passwords do not match")
	// ErrInvalidIdentifier is returned for input that is neither an email nor a phone number.
	ErrInvalidIdentifier = errors.New("Invalid email or phone format")
	// ErrAlreadyRegistered is returned when the identifier belongs to an account or profile.
	ErrAlreadyRegistered = errors.New("Email or phone already registered. Please login instead.")
	// ErrRegistrationFailed wraps unexpected registration failures.
	ErrRegistrationFailed = errors.New("Registration failed")
	ErrVerifyFieldsRequired = errors.New("Identifier and OTP required")
	ErrOTPInvalid           = errors.New("Invalid or expired OTP")
	// ErrSignupExpired is returned when no live pending signup exists.
	ErrSignupExpired = errors.New("Signup expired. Please register again.")
	ErrAlreadyVerified = errors.New("User already verified. Please login.")

	// ErrOTPRateLimited covers both the local send throttle and provider throttling.
	ErrOTPRateLimited = errors.New("Too many requests. Please retry later.")
	// ErrOTPInvalidDestination means the provider rejected the phone number or email.
	ErrOTPInvalidDestination = errors.New("Invalid phone or email")
	// ErrOTPUnavailable means the OTP provider could not be reached.
	ErrOTPUnavailable = errors.New("OTP service unavailable. Please try again later.")

	ErrLoginFieldsRequired = errors.New("Identifier and password required")
	ErrLoginRateLimited    = errors.New("Too many login attempts. Please retry later.")
	ErrUserNotFound        = errors.New("User not found")
	ErrUserBlocked         = errors.New("User is blocked")
	// ErrAdminSecureLogin is returned when an admin uses the plain login.
	ErrAdminSecureLogin   = errors.New("Admins must login using secure login.")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrLoginFailed        = errors.New("Login failed")

	ErrResetIdentifierRequired   = errors.New("Email or phone is required")
	ErrResetFieldsRequired       = errors.New("All fields are required")
	ErrPasswordTooShort          = errors.New("Password must be at least 6 characters")
	ErrResetVerificationRequired = errors.New("OTP verification required")
	ErrResetSessionExpired       = errors.New("Session expired. Request OTP again.")
	// ErrPasswordResetFailed wraps unexpected reset failures, including a
	// rejected password at the identity provider.
	ErrPasswordResetFailed = errors.New("Password reset failed")

	ErrMFAActivateFieldsRequired = errors.New("Email and OTP required")
	ErrMFAActivateAdminOnly      = errors.New("Only Admin can enable MFA")
	ErrMFANoSetup                = errors.New("No MFA setup in progress")
	ErrMFACodeInvalid            = errors.New("Invalid authenticator code")
	ErrMFAVerifyFieldsRequired   = errors.New("OTP and password required")
	ErrMFASessionExpired         = errors.New("Session expired")
	ErrMFAAdminOnly              = errors.New("MFA allowed only for Admin")
	ErrMFANotActivated           = errors.New("MFA not activated")
	ErrMFALoginSessionExpired    = errors.New("Login session expired")
	ErrMFAFailed                 = errors.New("MFA verification failed")

	ErrApprovalIDRequired    = errors.New("User id required")
	ErrUserAlreadyApproved   = errors.New("User already verified")
	ErrUserAlreadyUnapproved = errors.New("User is already unverified")
	ErrApprovalFailed        = errors.New("Approval failed")

	// ErrTokenInvalid is the single error for every bearer token failure.
	ErrTokenInvalid = errors.New("Token verification failed")
)

// MFAResetMessage accompanies an MFA verification that hit the failure limit.
const MFAResetMessage = "Authenticator seems removed. Please login again and scan QR."
