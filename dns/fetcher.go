package dns

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordType selects which records Fetch retrieves.
type RecordType string

// Supported record types.
const (
	TypeTXT   RecordType = "TXT"
	TypeMX    RecordType = "MX"
	TypeCNAME RecordType = "CNAME"
)

// DefaultLookupTimeout bounds a single Fetch call.
const DefaultLookupTimeout = 10 * time.Second

// Record is a normalized DNS record.
//
// For TXT records Value is the published text unchanged. For MX and CNAME
// records Value is the target host, lowercased and without the trailing dot.
type Record struct {
	Type       RecordType
	Value      string
	Preference uint16 // MX only
}

// LookupError describes a failed Fetch. Err is one of the package errors
// or a wrapped transport error.
type LookupError struct {
	Name string
	Type RecordType
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("dns: %s lookup for %s failed: %v", e.Type, e.Name, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Observer is notified after every lookup a Fetcher performs.
type Observer func(t RecordType, elapsed time.Duration, err error)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-lookup timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithObserver registers a callback invoked after each lookup.
func WithObserver(o Observer) FetcherOption {
	return func(f *Fetcher) {
		f.observe = o
	}
}

// Fetcher performs bounded lookups against a Resolver and normalizes the answers.
type Fetcher struct {
	resolver Resolver
	timeout  time.Duration
	observe  Observer
}

// NewFetcher creates a Fetcher over the given resolver.
func NewFetcher(resolver Resolver, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		resolver: resolver,
		timeout:  DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch looks up records of type t at the absolute form of name.
// An empty answer is reported as ErrDNSNotFound. Every error is a *LookupError.
func (f *Fetcher) Fetch(ctx context.Context, name string, t RecordType) ([]Record, error) {
	name = Absolute(name)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	records, err := f.lookup(ctx, name, t)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !IsTimeout(err) {
		err = ErrDNSTimeout
	}
	if err == nil && len(records) == 0 {
		err = ErrDNSNotFound
	}

	if f.observe != nil {
		f.observe(t, time.Since(start), err)
	}

	if err != nil {
		return nil, &LookupError{Name: name, Type: t, Err: err}
	}
	return records, nil
}

func (f *Fetcher) lookup(ctx context.Context, name string, t RecordType) ([]Record, error) {
	switch t {
	case TypeTXT:
		res, err := f.resolver.LookupTXT(ctx, name)
		if err != nil {
			return nil, err
		}
		records := make([]Record, 0, len(res.Records))
		for _, txt := range res.Records {
			records = append(records, Record{Type: TypeTXT, Value: txt})
		}
		return records, nil

	case TypeMX:
		res, err := f.resolver.LookupMX(ctx, name)
		if err != nil {
			return nil, err
		}
		records := make([]Record, 0, len(res.Records))
		for _, mx := range res.Records {
			if mx == nil {
				continue
			}
			records = append(records, Record{Type: TypeMX, Value: Relative(mx.Host), Preference: mx.Pref})
		}
		return records, nil

	case TypeCNAME:
		res, err := f.resolver.LookupCNAME(ctx, name)
		if err != nil {
			return nil, err
		}
		records := make([]Record, 0, len(res.Records))
		for _, target := range res.Records {
			records = append(records, Record{Type: TypeCNAME, Value: Relative(target)})
		}
		return records, nil

	default:
		return nil, fmt.Errorf("dns: unsupported record type %q", t)
	}
}

// Sandbox is a fetcher for non-production environments. It performs no
// lookups; checks run against it pass unconditionally. Select it explicitly
// when wiring a test or staging deployment.
type Sandbox struct{}

// Fetch returns no records and no error.
func (Sandbox) Fetch(context.Context, string, RecordType) ([]Record, error) {
	return nil, nil
}

// Sandboxed marks Sandbox as a bypass fetcher.
func (Sandbox) Sandboxed() bool {
	return true
}
