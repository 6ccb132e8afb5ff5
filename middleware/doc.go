// Package middleware exposes an HTTP middleware adapter for access-token
// enforcement built on top of gorefresh.Engine validation.
//
// # Guards
//
//   - [Guard] — stateless JWT verification on every request.
//
// The guard reads the Authorization header, calls Engine.Validate, and injects
// validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to Engine.Validate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the token registry (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate.
package middleware
