package domainauth

import (
	"log/slog"
	"time"

	"github.com/synqronlabs/domainauth/dns"
	"github.com/synqronlabs/domainauth/lock"
)

// DefaultLockTimeout bounds how long a check waits for another check of the
// same domain to finish.
const DefaultLockTimeout = 30 * time.Second

// Builder assembles a Service.
//
//	svc, err := domainauth.New(store).
//	    Secret(os.Getenv("VERIFY_SECRET")).
//	    MailHostname("mail.example.net").
//	    ServiceDomain("example.net").
//	    Resolver(dns.NewResolver(dns.ResolverConfig{})).
//	    Logger(logger).
//	    Build()
type Builder struct {
	store         Store
	secret        string
	mailHostname  string
	serviceDomain string
	fetcher       Fetcher
	resolver      dns.Resolver
	lookupTimeout time.Duration
	lookupObs     dns.Observer
	locker        lock.Locker
	lockTimeout   time.Duration
	observer      Observer
	logger        *slog.Logger
	now           func() time.Time
}

// New starts building a Service on the given store.
func New(store Store) *Builder {
	return &Builder{
		store:       store,
		lockTimeout: DefaultLockTimeout,
	}
}

// Secret sets the secret mixed into ownership tokens.
func (b *Builder) Secret(secret string) *Builder {
	b.secret = secret
	return b
}

// MailHostname sets the host a domain's MX must point to.
func (b *Builder) MailHostname(host string) *Builder {
	b.mailHostname = host
	return b
}

// ServiceDomain sets the service's own domain used for SPF and DKIM.
func (b *Builder) ServiceDomain(domain string) *Builder {
	b.serviceDomain = domain
	return b
}

// Fetcher sets the record fetcher directly. It takes precedence over Resolver.
func (b *Builder) Fetcher(f Fetcher) *Builder {
	b.fetcher = f
	return b
}

// Resolver sets the resolver wrapped in a dns.Fetcher.
func (b *Builder) Resolver(r dns.Resolver) *Builder {
	b.resolver = r
	return b
}

// LookupTimeout bounds every lookup when the fetcher is built from Resolver.
func (b *Builder) LookupTimeout(d time.Duration) *Builder {
	b.lookupTimeout = d
	return b
}

// LookupObserver is notified after every lookup when the fetcher is built
// from Resolver.
func (b *Builder) LookupObserver(o dns.Observer) *Builder {
	b.lookupObs = o
	return b
}

// Sandbox replaces DNS with dns.Sandbox: every check passes.
// Use only for test and staging environments.
func (b *Builder) Sandbox() *Builder {
	b.fetcher = dns.Sandbox{}
	return b
}

// Locker sets the per-domain lock. Default: an in-process lock.KeyedMutex.
func (b *Builder) Locker(l lock.Locker) *Builder {
	b.locker = l
	return b
}

// LockTimeout sets how long a check waits for the domain lock.
func (b *Builder) LockTimeout(d time.Duration) *Builder {
	b.lockTimeout = d
	return b
}

// Observer sets the check observer, typically *metrics.Metrics.
func (b *Builder) Observer(o Observer) *Builder {
	b.observer = o
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Clock sets the time source for transition timestamps.
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and creates the Service.
func (b *Builder) Build() (*Service, error) {
	if b.store == nil {
		return nil, ErrMissingStore
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fetcher := b.fetcher
	if fetcher == nil && b.resolver != nil {
		fetcher = dns.NewFetcher(b.resolver, dns.WithTimeout(b.lookupTimeout), dns.WithObserver(b.lookupObs))
	}

	engine, err := NewEngine(EngineConfig{
		Secret:        b.secret,
		MailHostname:  b.mailHostname,
		ServiceDomain: b.serviceDomain,
		Fetcher:       fetcher,
		Now:           b.now,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	locker := b.locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}

	lockTimeout := b.lockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	if engine.Sandboxed() {
		logger.Warn("dns lookups are bypassed, every check passes")
	}

	return &Service{
		store:       b.store,
		engine:      engine,
		locker:      locker,
		lockTimeout: lockTimeout,
		observer:    b.observer,
		logger:      logger,
	}, nil
}
