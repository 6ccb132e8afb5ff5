package gorefresh

import (
	"errors"

	"github.com/averix07/goRefresh/internal/rate"
	"github.com/averix07/goRefresh/jwt"
	"github.com/averix07/goRefresh/registry"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goRefresh APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	tokenRegistry TokenRegistry
	userProvider  UserProvider
	auditSink     AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithRegistry overrides the default Redis token registry with a custom
// [TokenRegistry] implementation, such as the Postgres-backed store in
// registry/postgres.
//
// WithRegistry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRegistry(reg TokenRegistry) *Builder {
	b.tokenRegistry = reg
	return b
}

// WithUserProvider describes the withuserprovider operation and its observable behavior.
//
// WithUserProvider may return an error when input validation, dependency calls, or security checks fail.
// WithUserProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		if b.tokenRegistry == nil {
			return nil, errors.New("redis client required")
		}
		if cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle {
			return nil, errors.New("throttling requires redis client")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	// -------- TOKEN REGISTRY --------
	tokenRegistry := b.tokenRegistry
	if tokenRegistry == nil {
		tokenRegistry = registry.NewStore(
			b.redis,
			cfg.Registry.RedisPrefix,
			cfg.Registry.ExpiryLeeway,
			cfg.Registry.RetentionGrace,
		)
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		registry: tokenRegistry,
	}

	engine.userProvider = b.userProvider
	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		RequireIAT:    cfg.JWT.RequireIAT,
		MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
