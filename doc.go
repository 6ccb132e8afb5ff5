// Package gorefresh provides a refresh-token issuance and rotation engine with
// stateless JWT access tokens, one-time-use opaque refresh tokens, and
// family-wide revocation on reuse.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// gorefresh is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (TokenPair, AuthResult, MetricsSnapshot, etc.). All internal coordination — secret
// encoding, rate limiting, audit dispatch — lives under internal/ and is never exported.
// Token persistence lives in the registry package behind the [TokenRegistry] contract.
//
// # What this package must NOT do
//
//   - Expose Redis clients, registry stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports gorefresh (no import cycles).
//
// # Performance contract
//
// Validate is the hot path. It must not allocate beyond the returned AuthResult struct and
// completes without any registry round-trip: access tokens are verified purely from their
// signature and claims. Login, Refresh, and Logout are allowed one registry round-trip per
// call.
package gorefresh
