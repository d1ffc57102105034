// Package otp delivers and checks one-time codes through Twilio Verify.
//
// The adapter is stateless: each call is one provider round trip, and the
// provider owns code generation, expiry, and attempt counting. Provider errors
// collapse into [ErrInvalidDestination], [ErrRateLimited], or [ErrUnavailable].
package otp
