// Package dns performs the small, fixed set of DNS lookups domain verification
// needs: TXT, MX and CNAME records for absolute names.
//
// Two resolvers are provided. DNSResolver talks to nameservers directly through
// github.com/miekg/dns and can request DNSSEC validation. StdResolver uses the
// standard library resolver. Both satisfy Resolver, and a Fetcher turns either
// into normalized Record lists with a bounded per-lookup timeout.
//
// Lookup failures are ordinary values here. Callers are expected to treat
// ErrDNSNotFound, ErrDNSTimeout and friends as "not visible yet", since records
// that were just published may take a while to propagate.
package dns

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Lookup errors.
var (
	ErrDNSNotFound  = errors.New("dns: no records found")
	ErrDNSTimeout   = errors.New("dns: lookup timed out")
	ErrDNSServFail  = errors.New("dns: server failure")
	ErrDNSRefused   = errors.New("dns: query refused")
	ErrDNSBogus     = errors.New("dns: DNSSEC validation failed")
	ErrDNSTruncated = errors.New("dns: truncated response")
)

// Result holds the records of a single lookup.
type Result[T any] struct {
	Records []T

	// Authentic is true when the answer was DNSSEC-validated by the upstream
	// resolver. Always false for StdResolver.
	Authentic bool
}

// Resolver looks up the record types used by domain verification.
// Names may be passed with or without the trailing root dot.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) (Result[string], error)
	LookupMX(ctx context.Context, name string) (Result[*net.MX], error)
	LookupCNAME(ctx context.Context, name string) (Result[string], error)
}

// IsNotFound reports whether err means the name or record type does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDNSNotFound)
}

// IsTimeout reports whether err is a lookup timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrDNSTimeout)
}

// IsServFail reports whether err is a SERVFAIL answer.
func IsServFail(err error) bool {
	return errors.Is(err, ErrDNSServFail)
}

// IsTemporary reports whether a retry may produce a different answer.
func IsTemporary(err error) bool {
	return IsTimeout(err) || IsServFail(err)
}

// Absolute returns name with exactly one trailing root dot.
func Absolute(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// Relative strips the trailing root dot and lowercases a host name.
func Relative(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}
