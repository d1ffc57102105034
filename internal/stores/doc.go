// Package stores provides the Redis-backed, short-lived records behind the
// onboarding flows: pending signups awaiting OTP confirmation and password
// reset sessions.
//
// # Design
//
// Each store persists a versioned, binary-encoded record keyed by the
// canonical identifier. Replace deletes and inserts in one MULTI, so a key
// never holds more than one record. Records carry their own expiry; Redis keeps
// them for a grace period past it so callers can distinguish an expired record
// from a missing one, and the Redis TTL doubles as the periodic sweep.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Log stored passwords.
//   - Decide what an expired record means; flows do that.
package stores
