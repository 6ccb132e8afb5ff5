// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for the login and refresh paths.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:  — login per-identifier
//   - rli: — login per-IP
//   - rlf: — refresh per-family
//
// # What this package must NOT do
//
//   - Decide which operations are throttled (the Engine owns policy).
//   - Be imported outside the goRefresh module.
package rate
