package gorefresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/averix07/goRefresh/internal"
	"github.com/averix07/goRefresh/internal/rate"
	"github.com/averix07/goRefresh/jwt"
	"github.com/averix07/goRefresh/registry"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRegistry is the persistence contract for refresh-token records. The
// default implementation is the Redis store in the registry package; the
// registry/postgres package provides a SQL-backed alternative.
//
// Rotate must be atomic: of any number of concurrent calls presenting the
// same secret hash, exactly one may succeed, and a rotated record presented
// again must revoke its whole family before the call returns.
type TokenRegistry interface {
	Create(ctx context.Context, rec *registry.Record) error
	Get(ctx context.Context, secretHash [32]byte) (*registry.Record, error)
	Rotate(ctx context.Context, providedHash [32]byte, successor *registry.Record) error
	RevokeFamily(ctx context.Context, familyID string) (int, error)
}

// Engine defines a public type used by goRefresh APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	registry     TokenRegistry
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	jwtManager   *jwt.Manager
	userProvider UserProvider
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	ip := clientIPFromContext(ctx)
	if e.userProvider == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}

	if e.loginThrottleActive() {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, ErrLoginRateLimited
		}
	}

	if identifier == "" || password == "" {
		if e.loginThrottleActive() {
			if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
					return map[string]string{
						"identifier": identifier,
					}
				})
				return nil, ErrLoginRateLimited
			}
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "empty_credentials",
			}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.Authenticate(ctx, identifier, password)
	if err != nil {
		if e.loginThrottleActive() {
			if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
					return map[string]string{
						"identifier": identifier,
					}
				})
				return nil, ErrLoginRateLimited
			}
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "provider_rejected",
			}
		})
		// Unknown identifiers and wrong passwords collapse to the same error.
		return nil, ErrInvalidCredentials
	}
	password = ""

	familyID := uuid.NewString()
	pair, err := e.issue(ctx, user.UserID, familyID, "")
	if err != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(err, ErrStorageUnavailable) {
			e.metricInc(MetricStorageUnavailable)
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, familyID, err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "issue_failed",
			}
		})
		return nil, err
	}

	if e.loginThrottleActive() {
		if err := e.rateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, user.UserID, familyID, ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "reset_limiter_failed",
				}
			})
			return nil, ErrLoginRateLimited
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, familyID, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})

	return pair, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e.registry == nil {
		return nil, ErrEngineNotReady
	}

	providedSecret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil, ErrTokenInvalid
	}
	providedHash := internal.HashRefreshSecret(providedSecret)

	rec, err := e.registry.Get(ctx, providedHash)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrUnavailable):
			e.metricInc(MetricStorageUnavailable)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrStorageUnavailable, func() map[string]string {
				return map[string]string{
					"reason": "registry_unavailable",
				}
			})
			return nil, ErrStorageUnavailable
		default:
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrTokenInvalid, func() map[string]string {
				return map[string]string{
					"reason": "record_not_found",
				}
			})
			return nil, ErrTokenInvalid
		}
	}

	if e.rateLimiter != nil && e.config.Security.EnableRefreshThrottle {
		if err := e.rateLimiter.CheckRefresh(ctx, rec.FamilyID); err != nil {
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, rec.UserID, rec.FamilyID, ErrRefreshRateLimited, nil)
			return nil, ErrRefreshRateLimited
		}
	}

	nextSecret, err := internal.NewRefreshSecret()
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, rec.UserID, rec.FamilyID, err, func() map[string]string {
			return map[string]string{
				"reason": "next_secret_generation",
			}
		})
		return nil, err
	}

	now := time.Now()
	successor := &registry.Record{
		TokenID:         uuid.NewString(),
		UserID:          rec.UserID,
		FamilyID:        rec.FamilyID,
		SecretHash:      internal.HashRefreshSecret(nextSecret),
		Status:          registry.StatusActive,
		IssuedAt:        now.Unix(),
		ExpiresAt:       now.Add(e.config.Registry.RefreshTTL).Unix(),
		PreviousTokenID: rec.TokenID,
	}

	if err := e.registry.Rotate(ctx, providedHash, successor); err != nil {
		switch {
		case errors.Is(err, registry.ErrRecordRotated):
			// The secret was already consumed: theft evidence. The registry
			// has revoked the whole family before returning.
			e.metricInc(MetricRefreshReuseDetected)
			e.metricInc(MetricFamilyRevoked)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, rec.UserID, rec.FamilyID, ErrReuseDetected, nil)
			e.emitAudit(ctx, auditEventFamilyRevoked, true, rec.UserID, rec.FamilyID, nil, func() map[string]string {
				return map[string]string{
					"cause": "reuse_detected",
				}
			})
			return nil, ErrReuseDetected
		case errors.Is(err, registry.ErrRecordExpired):
			e.metricInc(MetricRefreshExpired)
			e.emitAudit(ctx, auditEventRefreshExpired, false, rec.UserID, rec.FamilyID, ErrTokenExpired, nil)
			return nil, ErrTokenExpired
		case errors.Is(err, registry.ErrUnavailable):
			e.metricInc(MetricStorageUnavailable)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, rec.UserID, rec.FamilyID, ErrStorageUnavailable, func() map[string]string {
				return map[string]string{
					"reason": "rotate_unavailable",
				}
			})
			return nil, ErrStorageUnavailable
		default:
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, rec.UserID, rec.FamilyID, ErrTokenInvalid, func() map[string]string {
				return map[string]string{
					"reason": "rotate_rejected",
				}
			})
			return nil, ErrTokenInvalid
		}
	}

	access, err := e.jwtManager.CreateAccess(rec.UserID, rec.FamilyID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, rec.UserID, rec.FamilyID, ErrAccessTokenIssuance, func() map[string]string {
			return map[string]string{
				"reason": "issue_access_failed",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrAccessTokenIssuance, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, rec.UserID, rec.FamilyID, nil, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: internal.EncodeRefreshToken(nextSecret),
	}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e.registry == nil {
		return ErrEngineNotReady
	}

	providedSecret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		// Idempotent: a malformed or already-forgotten token is a no-op.
		e.emitAudit(ctx, auditEventLogout, true, "", "", nil, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil
	}

	rec, err := e.registry.Get(ctx, internal.HashRefreshSecret(providedSecret))
	if err != nil {
		if errors.Is(err, registry.ErrUnavailable) {
			e.metricInc(MetricStorageUnavailable)
			e.emitAudit(ctx, auditEventLogout, false, "", "", ErrStorageUnavailable, nil)
			return ErrStorageUnavailable
		}
		e.emitAudit(ctx, auditEventLogout, true, "", "", nil, func() map[string]string {
			return map[string]string{
				"reason": "record_not_found",
			}
		})
		return nil
	}

	transitioned, err := e.registry.RevokeFamily(ctx, rec.FamilyID)
	if err != nil {
		if errors.Is(err, registry.ErrUnavailable) {
			e.metricInc(MetricStorageUnavailable)
			e.emitAudit(ctx, auditEventLogout, false, rec.UserID, rec.FamilyID, ErrStorageUnavailable, nil)
			return ErrStorageUnavailable
		}
		e.emitAudit(ctx, auditEventLogout, false, rec.UserID, rec.FamilyID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	if transitioned > 0 {
		e.metricInc(MetricFamilyRevoked)
	}
	e.emitAudit(ctx, auditEventLogout, true, rec.UserID, rec.FamilyID, nil, nil)

	return nil
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	if e.registry == nil {
		return 0, ErrEngineNotReady
	}

	transitioned, err := e.registry.RevokeFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, registry.ErrUnavailable) {
			e.metricInc(MetricStorageUnavailable)
			e.emitAudit(ctx, auditEventFamilyRevoked, false, "", familyID, ErrStorageUnavailable, nil)
			return 0, ErrStorageUnavailable
		}
		e.emitAudit(ctx, auditEventFamilyRevoked, false, "", familyID, err, nil)
		return 0, err
	}

	if transitioned > 0 {
		e.metricInc(MetricFamilyRevoked)
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, true, "", familyID, nil, func() map[string]string {
		return map[string]string{
			"cause": "explicit_revocation",
		}
	})

	return transitioned, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	return &AuthResult{
		UserID:   claims.UID,
		FamilyID: claims.FID,
	}, nil
}

func (e *Engine) loginThrottleActive() bool {
	return e.rateLimiter != nil && e.config.Security.EnableLoginThrottle
}

// issue mints a fresh refresh record plus its paired access token. prev is
// empty for the first record of a family.
func (e *Engine) issue(ctx context.Context, userID, familyID, prev string) (*TokenPair, error) {
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &registry.Record{
		TokenID:         uuid.NewString(),
		UserID:          userID,
		FamilyID:        familyID,
		SecretHash:      internal.HashRefreshSecret(secret),
		Status:          registry.StatusActive,
		IssuedAt:        now.Unix(),
		ExpiresAt:       now.Add(e.config.Registry.RefreshTTL).Unix(),
		PreviousTokenID: prev,
	}
	if err := e.registry.Create(ctx, rec); err != nil {
		if errors.Is(err, registry.ErrUnavailable) {
			return nil, ErrStorageUnavailable
		}
		return nil, err
	}

	access, err := e.jwtManager.CreateAccess(userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessTokenIssuance, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: internal.EncodeRefreshToken(secret),
	}, nil
}
