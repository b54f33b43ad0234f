package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
)

// StdResolver implements Resolver on net.Resolver. It has no DNSSEC support
// and never reports Authentic answers.
type StdResolver struct {
	resolver *net.Resolver
}

// NewStdResolver creates a resolver on the system configuration. When
// nameservers are given (host:port), queries go to them in turn instead.
func NewStdResolver(nameservers ...string) *StdResolver {
	if len(nameservers) == 0 {
		return &StdResolver{resolver: net.DefaultResolver}
	}

	rot := &rotation{servers: nameservers}
	var dialer net.Dialer
	return &StdResolver{
		resolver: &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, rot.pick())
			},
		},
	}
}

// rotation hands out nameservers in turn.
type rotation struct {
	next    atomic.Uint32
	servers []string
}

func (r *rotation) pick() string {
	i := (r.next.Add(1) - 1) % uint32(len(r.servers))
	return r.servers[i]
}

// LookupTXT implements Resolver.
func (r *StdResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	txt, err := r.resolver.LookupTXT(ctx, Absolute(name))
	return stdResult(txt, err)
}

// LookupMX implements Resolver.
func (r *StdResolver) LookupMX(ctx context.Context, name string) (Result[*net.MX], error) {
	mx, err := r.resolver.LookupMX(ctx, Absolute(name))
	return stdResult(mx, err)
}

// LookupCNAME implements Resolver. net.Resolver follows the whole chain and
// answers with the last name, and a name without CNAME resolves to itself;
// that case is reported as ErrDNSNotFound.
func (r *StdResolver) LookupCNAME(ctx context.Context, name string) (Result[string], error) {
	abs := Absolute(name)

	target, err := r.resolver.LookupCNAME(ctx, abs)
	if err == nil && (target == "" || strings.EqualFold(Absolute(target), abs)) {
		return Result[string]{}, ErrDNSNotFound
	}
	return stdResult([]string{target}, err)
}

func stdResult[T any](records []T, err error) (Result[T], error) {
	if err != nil {
		return Result[T]{}, stdError(err)
	}
	if len(records) == 0 {
		return Result[T]{}, ErrDNSNotFound
	}
	return Result[T]{Records: records}, nil
}

// stdError maps net.DNSError flags onto the package errors.
func stdError(err error) error {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		return ErrDNSNotFound
	case errors.As(err, &dnsErr) && dnsErr.IsTimeout, errors.Is(err, context.DeadlineExceeded):
		return ErrDNSTimeout
	case errors.As(err, &dnsErr) && dnsErr.IsTemporary:
		return ErrDNSServFail
	}
	return fmt.Errorf("dns: lookup failed: %w", err)
}
