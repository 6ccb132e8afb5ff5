package gorefresh

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the rotation engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid covers malformed, unknown, signature-failed, and
	// revoked tokens. Callers must not be able to distinguish which.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the rotation engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrReuseDetected signals that an already-consumed refresh secret was
	// presented again. The token family has been revoked.
	ErrReuseDetected = errors.New("refresh token reuse detected")
	// ErrStorageUnavailable is a transient registry failure, retriable by
	// the caller. It is never folded into ErrTokenInvalid.
	ErrStorageUnavailable = errors.New("token storage unavailable")
	// ErrLoginRateLimited is an exported constant or variable used by the rotation engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the rotation engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrAccessTokenIssuance reports a signing failure while minting the
	// access token after the refresh state change already committed. The
	// presented refresh token is consumed; the caller must log in again.
	ErrAccessTokenIssuance = errors.New("access token issuance failed")
	// ErrEngineNotReady is an exported constant or variable used by the rotation engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
