// Package postgres provides a PostgreSQL-backed refresh-token registry with
// the same rotation semantics as the Redis [registry.Store].
//
// The atomic ACTIVE -> ROTATED transition is a conditional UPDATE inside a
// transaction; a zero-row update is classified by re-reading the row FOR
// UPDATE, so an ambiguous outcome is never resolved by retrying the write.
// Retention is a periodic [Store.DeleteExpired] sweep rather than TTLs.
package postgres
