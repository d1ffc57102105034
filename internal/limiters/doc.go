// Package limiters provides domain-specific rate limiters built on Redis
// fixed-window counters.
//
// # Limiters
//
//   - [OTPSendLimiter]: per-identifier + per-IP throttle for OTP dispatch,
//     namespaced by purpose ("signup", "reset").
//
// Limiters are nil-safe: calling Check on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
