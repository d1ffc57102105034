// Package rate throttles failed password logins with Redis fixed-window counters.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Key prefixes:
//   - fl:  login failures per identifier
//   - fli: login failures per IP
//
// Only failures are counted; [Limiter.CheckLogin] is read-only.
package rate
