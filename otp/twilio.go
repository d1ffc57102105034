package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

var (
	// ErrInvalidDestination means the provider rejected the phone number or email.
	ErrInvalidDestination = errors.New("otp: invalid destination")
	// ErrRateLimited means the provider refused to send more codes for now.
	ErrRateLimited = errors.New("otp: provider rate limited")
	// ErrUnavailable covers every other provider failure.
	ErrUnavailable = errors.New("otp: provider unavailable")
	// ErrNotConfigured is returned by [NewTwilio] when credentials are missing.
	ErrNotConfigured = errors.New("otp: twilio credentials missing")
)

const statusApproved = "approved"

// Twilio error codes the adapter distinguishes.
const (
	codeInvalidParameter    = 60200
	codeMaxSendAttempts     = 60203
	codeLandlineUnsupported = 60205
	codeNotFound            = 20404
	codeTooManyRequests     = 20429
	codeInvalidPhone        = 21211
	codeUnverifiedDest      = 21608
	codeNonMobile           = 21614
)

type verifyAPI interface {
	CreateVerification(serviceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// Config holds the Twilio Verify credentials.
type Config struct {
	AccountSID string
	AuthToken  string
	ServiceSID string
}

// Twilio sends and checks one-time codes through Twilio Verify. Email
// identifiers use the email channel, everything else goes out by SMS.
type Twilio struct {
	api        verifyAPI
	serviceSID string
}

// NewTwilio builds a gateway from account credentials.
func NewTwilio(cfg Config) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.ServiceSID == "" {
		return nil, ErrNotConfigured
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Twilio{api: client.VerifyV2, serviceSID: cfg.ServiceSID}, nil
}

func newTwilioWithAPI(api verifyAPI, serviceSID string) *Twilio {
	return &Twilio{api: api, serviceSID: serviceSID}
}

// StartVerification sends a fresh code to id.
func (t *Twilio) StartVerification(ctx context.Context, id identifier.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(id.Value)
	params.SetChannel(channelFor(id))

	if _, err := t.api.CreateVerification(t.serviceSID, params); err != nil {
		return classify(err)
	}
	return nil
}

// CheckVerification reports whether code is the live code for id. A check
// against a verification the provider no longer holds is reported as not
// approved rather than as an error.
func (t *Twilio) CheckVerification(ctx context.Context, id identifier.Identifier, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(id.Value)
	params.SetCode(code)

	resp, err := t.api.CreateVerificationCheck(t.serviceSID, params)
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) && (restErr.Status == 404 || restErr.Code == codeNotFound) {
			return false, nil
		}
		return false, classify(err)
	}
	return resp != nil && resp.Status != nil && *resp.Status == statusApproved, nil
}

func channelFor(id identifier.Identifier) string {
	if id.IsEmail() {
		return "email"
	}
	return "sms"
}

func classify(err error) error {
	var restErr *twclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case restErr.Status == 429 || restErr.Code == codeMaxSendAttempts || restErr.Code == codeTooManyRequests:
		return fmt.Errorf("%w: %d %s", ErrRateLimited, restErr.Code, restErr.Message)
	case restErr.Code == codeInvalidParameter,
		restErr.Code == codeLandlineUnsupported,
		restErr.Code == codeInvalidPhone,
		restErr.Code == codeUnverifiedDest,
		restErr.Code == codeNonMobile,
		restErr.Status == 400:
		return fmt.Errorf("%w: %d %s", ErrInvalidDestination, restErr.Code, restErr.Message)
	default:
		return fmt.Errorf("%w: %d %s", ErrUnavailable, restErr.Code, restErr.Message)
	}
}
