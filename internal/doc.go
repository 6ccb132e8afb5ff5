// Package internal contains helper utilities that are intentionally private to goRefresh,
// including secure random generation and refresh token encoding helpers.
//
// # Sub-packages
//
//   - rate — core Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public goRefresh API.
//   - Be imported by any package outside the goRefresh module.
package internal
