// Package fitfob implements onboarding and sign-in for the FITFOB platform:
// OTP-verified registration by email or phone, password login against the
// identity provider (AWS Cognito), forgot-password with OTP, TOTP-protected
// admin login, and account approval.
//
// An [Engine] is assembled once with [New] and [Builder.Build]; its methods
// are safe to call from multiple goroutines afterwards.
//
// # Architecture boundaries
//
// The root package exposes [Engine], [Builder], [Config], the sentinel errors
// and value types. Flow orchestration, the Redis-backed pending signup and
// reset session stores, and the throttles live under internal/ and are never
// exported. Collaborators are plugged in through the narrow interfaces in
// types.go: [UserStore], [ProfileStore], [OTPGateway], [IdentityProvider] and
// [ProviderTokenVerifier].
//
// # State
//
// Pending signups and reset sessions are short-lived Redis records keyed by
// normalized identifier. The durable account lives at the identity provider
// and is mirrored in the local [UserStore]. A pending signup is only consumed
// when both have been written; a failed local write removes the provider
// account again.
//
// # Errors
//
// Every Engine method returns one of the sentinels in errors.go, possibly
// wrapping an infrastructure cause. The sentinel text is safe to show to API
// clients; the wrapped cause is not.
package fitfob
