package gorefresh

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshExpired       = "refresh_expired"
	auditEventRefreshRateLimited   = "refresh_rate_limited"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventFamilyRevoked        = "family_revoked"
	auditEventLogout               = "logout"
)

// AuditErrorCode defines a public type used by goRefresh APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUnavailable        AuditErrorCode = "storage_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrReuseDetected):
		return auditErrRefreshReuse
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrStorageUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	familyID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		FamilyID:  familyID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
