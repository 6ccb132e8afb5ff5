// Package registry owns the persisted refresh-token records and the
// per-family rotation state machine.
//
// # State machine
//
// Every record is created ACTIVE. A successful rotation moves it to ROTATED
// exactly once and mints an ACTIVE successor in the same family, linked via
// PreviousTokenID. Presenting a ROTATED secret again is the theft signal:
// the whole family is moved to REVOKED inside the same atomic operation.
// REVOKED is terminal.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Record] model.
// It does NOT mint access tokens, encode client-facing refresh tokens, or
// decide HTTP status codes — those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goRefresh or jwt (no upward imports).
//   - Store raw refresh secrets; records carry only the SHA-256 hash.
//   - Perform rotation outside a single atomic Redis script evaluation.
package registry
