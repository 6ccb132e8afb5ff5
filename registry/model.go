package registry

import "errors"

// Status is the lifecycle state of a refresh-token record.
//
// Status instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Status uint8

const (
	// StatusActive is an exported constant or variable used by the rotation engine.
	StatusActive Status = iota
	// StatusRotated is an exported constant or variable used by the rotation engine.
	StatusRotated
	// StatusRevoked is an exported constant or variable used by the rotation engine.
	StatusRevoked
)

// String describes the string operation and its observable behavior.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRotated:
		return "rotated"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// ParseStatus converts the stored wire form back into a [Status].
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "active":
		return StatusActive, nil
	case "rotated":
		return StatusRotated, nil
	case "revoked":
		return StatusRevoked, nil
	default:
		return 0, ErrRecordCorrupt
	}
}

// Record is one persisted refresh token. The raw secret is never part of
// the record; SecretHash is the only credential material stored.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Record struct {
	TokenID         string
	UserID          string
	FamilyID        string
	SecretHash      [32]byte
	Status          Status
	IssuedAt        int64
	ExpiresAt       int64
	PreviousTokenID string
}

var (
	// ErrRecordNotFound is returned when no record matches the presented secret hash.
	ErrRecordNotFound = errors.New("refresh record not found")
	// ErrRecordRevoked is returned when the matched record's family is already dead.
	ErrRecordRevoked = errors.New("refresh record revoked")
	// ErrRecordRotated is returned when an already-consumed secret is presented again.
	// The store has revoked the whole family before returning it.
	ErrRecordRotated = errors.New("refresh record already rotated")
	// ErrRecordExpired is returned on natural expiry; the record is left untouched.
	ErrRecordExpired = errors.New("refresh record expired")
	// ErrRecordCorrupt is returned when a stored record cannot be decoded.
	ErrRecordCorrupt = errors.New("refresh record corrupt")
	// ErrUnavailable wraps transient backend failures. Callers must not fold
	// it into a token-validity error.
	ErrUnavailable = errors.New("registry unavailable")
)
