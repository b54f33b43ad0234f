// Package config loads the daemon configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/synqronlabs/domainauth"
)

// EnvironmentTesting selects the sandbox fetcher: DNS is never queried and
// every check passes.
const EnvironmentTesting = "testing"

// Resolver backends.
const (
	ResolverMiekg  = "miekg"
	ResolverSystem = "system"
)

// ErrInvalidConfig is returned when the environment cannot be parsed.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the daemon configuration.
type Config struct {
	Environment string     `env:"APP_ENV" envDefault:"production"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	Secret        string `env:"VERIFY_SECRET"`
	MailHostname  string `env:"MAIL_HOSTNAME"`
	ServiceDomain string `env:"SERVICE_DOMAIN"`

	// "miekg" queries nameservers directly; "system" uses the Go resolver.
	Resolver      string        `env:"DNS_RESOLVER" envDefault:"miekg"`
	Nameservers   []string      `env:"DNS_NAMESERVERS" envSeparator:","`
	DNSSEC        bool          `env:"DNS_DNSSEC"`
	LookupTimeout time.Duration `env:"DNS_LOOKUP_TIMEOUT" envDefault:"10s"`
	LookupRetries int           `env:"DNS_RETRIES" envDefault:"2"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	RecheckInterval time.Duration `env:"RECHECK_INTERVAL" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Empty selects the in-memory store.
	DatabaseURL string `env:"DATABASE_URL"`

	// Empty selects the in-process lock.
	RedisURL    string        `env:"REDIS_URL"`
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"30s"`

	// Empty disables the scheduled sweep.
	SweepSchedule    string `env:"SWEEP_SCHEDULE"`
	SweepConcurrency int    `env:"SWEEP_CONCURRENCY" envDefault:"8"`
	SweepBatch       int    `env:"SWEEP_BATCH" envDefault:"500"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or out of range setting.
func (c Config) Validate() error {
	switch {
	case c.Secret == "":
		return domainauth.ErrMissingSecret
	case c.MailHostname == "":
		return domainauth.ErrMissingMailHostname
	case c.ServiceDomain == "":
		return domainauth.ErrMissingServiceDomain
	case c.Resolver != ResolverMiekg && c.Resolver != ResolverSystem:
		return fmt.Errorf("%w: unknown DNS_RESOLVER %q", ErrInvalidConfig, c.Resolver)
	case c.LookupTimeout <= 0:
		return fmt.Errorf("%w: DNS_LOOKUP_TIMEOUT must be positive", ErrInvalidConfig)
	case c.RecheckInterval <= 0:
		return fmt.Errorf("%w: RECHECK_INTERVAL must be positive", ErrInvalidConfig)
	case c.SweepConcurrency < 1:
		return fmt.Errorf("%w: SWEEP_CONCURRENCY must be at least 1", ErrInvalidConfig)
	case c.SweepBatch < 1:
		return fmt.Errorf("%w: SWEEP_BATCH must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Sandboxed reports whether DNS lookups should be bypassed.
func (c Config) Sandboxed() bool {
	return c.Environment == EnvironmentTesting
}
