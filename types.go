package gorefresh

import "context"

// UserProvider is the credential collaborator that callers must implement
// to integrate goRefresh with their user database. Password storage and
// hashing policy live entirely on the provider side; the engine only sees
// the verification outcome.
//
//	Docs: docs/engine.md
type UserProvider interface {
	// Authenticate verifies the identifier/password pair and returns the
	// account record. Implementations must return [ErrInvalidCredentials]
	// (or an error wrapping it) for unknown identifiers and bad passwords
	// alike.
	Authenticate(ctx context.Context, identifier, password string) (UserRecord, error)
}

// UserRecord is the minimal account record returned by [UserProvider].
type UserRecord struct {
	UserID     string
	Identifier string
}

// TokenPair carries one issued access/refresh token pair. The refresh token
// is the raw client-facing secret; it is never persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by [Engine.Validate]: the verified claims of an
// access token.
type AuthResult struct {
	UserID   string
	FamilyID string
}
