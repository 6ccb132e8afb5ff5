package gorefresh

import (
	"errors"
	"time"
)

// Config defines a public type used by goRefresh APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Registry RegistryConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goRefresh APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	// MaxFutureIAT caps how far in the future a token's iat claim may lie
	// before verification rejects it. Zero selects the 10 minute default.
	MaxFutureIAT time.Duration
	KeyID        string
	VerifyKeys   map[string][]byte
}

/*
====================================
REGISTRY CONFIG
====================================
*/

// RegistryConfig defines a public type used by goRefresh APIs.
//
// RegistryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegistryConfig struct {
	RedisPrefix string
	RefreshTTL  time.Duration
	// ExpiryLeeway is the bounded clock-skew tolerance applied to refresh
	// expiry checks in distributed deployments.
	ExpiryLeeway time.Duration
	// RetentionGrace extends record retention past expiry so a stale
	// secret still matches a record and is classified precisely.
	RetentionGrace time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goRefresh APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	EnableLoginThrottle     bool
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goRefresh APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goRefresh APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the documented default configuration.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
		},
		Registry: RegistryConfig{
			RedisPrefix:    "rt",
			RefreshTTL:     7 * 24 * time.Hour,
			ExpiryLeeway:   0,
			RetentionGrace: 24 * time.Hour,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:     true,
			EnableIPThrottle:        false,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: 1 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for fatal misconfiguration. A failure
// here aborts [Builder.Build]; it is never surfaced per-request.
//
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
		return errors.New("ed25519 requires PublicKey or VerifyKeys")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}

	// Registry
	if c.Registry.RefreshTTL <= 0 {
		return errors.New("Registry RefreshTTL must be > 0")
	}
	if c.Registry.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("Registry RefreshTTL must exceed JWT AccessTTL")
	}
	if c.Registry.ExpiryLeeway < 0 || c.Registry.ExpiryLeeway > 2*time.Minute {
		return errors.New("Registry ExpiryLeeway must be between 0 and 2m")
	}
	if c.Registry.RetentionGrace < 0 {
		return errors.New("Registry RetentionGrace must be >= 0")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
