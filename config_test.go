package gorefresh

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with keys",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "zero access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "unsupported signing method",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hs256 with shared key",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PrivateKey = []byte("shared-secret-shared-secret-1234")
				c.JWT.PublicKey = nil
			},
			wantValid: true,
		},
		{
			name: "ed25519 missing private key",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = nil
			},
			wantValid: false,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway above bound",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "max future iat tuned",
			mutate: func(c *Config) {
				c.JWT.MaxFutureIAT = 30 * time.Minute
			},
			wantValid: true,
		},
		{
			name: "max future iat above bound",
			mutate: func(c *Config) {
				c.JWT.MaxFutureIAT = 25 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "refresh ttl must exceed access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = time.Hour
				c.Registry.RefreshTTL = time.Hour
			},
			wantValid: false,
		},
		{
			name: "expiry leeway above bound",
			mutate: func(c *Config) {
				c.Registry.ExpiryLeeway = 5 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "expiry leeway at bound",
			mutate: func(c *Config) {
				c.Registry.ExpiryLeeway = 2 * time.Minute
			},
			wantValid: true,
		},
		{
			name: "negative retention grace",
			mutate: func(c *Config) {
				c.Registry.RetentionGrace = -time.Hour
			},
			wantValid: false,
		},
		{
			name: "login throttle without attempts",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "throttles disabled skip limits",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = false
				c.Security.EnableRefreshThrottle = false
				c.Security.MaxLoginAttempts = 0
				c.Security.MaxRefreshAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := validConfig(t)
	clone := cloneConfig(cfg)

	clone.JWT.PrivateKey[0] ^= 0xFF
	if cfg.JWT.PrivateKey[0] == clone.JWT.PrivateKey[0] {
		t.Fatal("expected cloned private key to be independent")
	}
}
