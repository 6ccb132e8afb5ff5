// Package httpapi exposes the engine's login, refresh, and logout operations
// as JSON-over-HTTP endpoints.
//
// # Endpoints
//
//	POST /login   — JSON {"identifier":"...", "password":"..."} → token pair
//	POST /refresh — JSON {"refresh_token":"..."} → rotated token pair
//	POST /logout  — JSON {"refresh_token":"..."} → 204, idempotent
//
// # Status mapping
//
//   - 200 — success (login, refresh)
//   - 204 — logout accepted
//   - 401 — invalid credentials, invalid token, expired token (opaque)
//   - 403 — refresh token reuse detected (family revoked)
//   - 429 — login or refresh throttled
//   - 503 — token storage unavailable (retriable, never folded into 401)
//
// # What this package must NOT do
//
//   - Reveal which of the 401 causes applied (token probing defense).
//   - Implement authentication logic itself — all decisions are delegated
//     to the Engine.
package httpapi
