package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synqronlabs/domainauth"
)

func baseVars() map[string]string {
	return map[string]string{
		"VERIFY_SECRET":  "s3cret",
		"MAIL_HOSTNAME":  "mail.example.net",
		"SERVICE_DOMAIN": "example.net",
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(baseVars())
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.RecheckInterval)
	assert.Equal(t, 8, cfg.SweepConcurrency)
	assert.Equal(t, ResolverMiekg, cfg.Resolver)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.Sandboxed())
}

func TestLoadFromOverrides(t *testing.T) {
	vars := baseVars()
	vars["APP_ENV"] = "testing"
	vars["LOG_LEVEL"] = "debug"
	vars["DNS_NAMESERVERS"] = "1.1.1.1:53,9.9.9.9:53"
	vars["DNS_LOOKUP_TIMEOUT"] = "3s"
	vars["SWEEP_SCHEDULE"] = "*/15 * * * *"

	cfg, err := LoadFrom(vars)
	require.NoError(t, err)

	assert.True(t, cfg.Sandboxed())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"1.1.1.1:53", "9.9.9.9:53"}, cfg.Nameservers)
	assert.Equal(t, 3*time.Second, cfg.LookupTimeout)
	assert.Equal(t, "*/15 * * * *", cfg.SweepSchedule)
}

func TestLoadFromMissing(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		wantErr error
	}{
		{"secret", "VERIFY_SECRET", domainauth.ErrMissingSecret},
		{"mail hostname", "MAIL_HOSTNAME", domainauth.ErrMissingMailHostname},
		{"service domain", "SERVICE_DOMAIN", domainauth.ErrMissingServiceDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := baseVars()
			delete(vars, tt.drop)

			_, err := LoadFrom(vars)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable duration", "DNS_LOOKUP_TIMEOUT", "soon"},
		{"zero timeout", "DNS_LOOKUP_TIMEOUT", "0s"},
		{"zero concurrency", "SWEEP_CONCURRENCY", "0"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"unknown resolver", "DNS_RESOLVER", "bind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := baseVars()
			vars[tt.key] = tt.value

			_, err := LoadFrom(vars)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
