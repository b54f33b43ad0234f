// Package predicate holds the pure checks applied to fetched DNS records.
//
// Each predicate is an isolated function over normalized records (see
// dns.Record). SPF and DMARC are matched with regular expressions rather
// than parsed; they are heuristics for "the expected record is published",
// not policy evaluators.
package predicate

import (
	"regexp"
	"slices"
	"strings"

	"github.com/synqronlabs/domainauth/dns"
	"github.com/synqronlabs/domainauth/token"
)

// DKIMSelector is the selector the service signs with.
const DKIMSelector = "default"

// Ownership reports whether any TXT record, trimmed, equals the expected token.
func Ownership(records []dns.Record, expected string) bool {
	return slices.ContainsFunc(records, func(r dns.Record) bool {
		return token.Matches(r.Value, expected)
	})
}

// MXTarget reports whether the most preferred MX record points at host.
// Records are ordered by ascending preference; ties keep their answer order.
// No records fails.
func MXTarget(records []dns.Record, host string) bool {
	if len(records) == 0 || host == "" {
		return false
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b dns.Record) int {
		return int(a.Preference) - int(b.Preference)
	})

	return sorted[0].Value == host
}

// SPF matches SPF TXT records that authorize the service.
type SPF struct {
	re *regexp.Regexp
}

// NewSPF builds the SPF predicate for the service's own domain.
// A record passes when it starts with "v=spf1", contains either
// "include:spf.<serviceDomain>" or "mx", and ends with "-all" or "~all".
func NewSPF(serviceDomain string) *SPF {
	return &SPF{
		re: regexp.MustCompile(`^v=spf1.*(include:spf\.` + regexp.QuoteMeta(serviceDomain) + `|mx).*[-~]all$`),
	}
}

// Match reports whether a single TXT value is an acceptable SPF record.
func (p *SPF) Match(txt string) bool {
	return p.re.MatchString(txt)
}

// Eval reports whether any record is an acceptable SPF record.
func (p *SPF) Eval(records []dns.Record) bool {
	return slices.ContainsFunc(records, func(r dns.Record) bool {
		return p.Match(r.Value)
	})
}

var dmarcPolicy = regexp.MustCompile(`^v=DMARC1.*p=(quarantine|reject)`)

// DMARCMatch reports whether a single TXT value is a DMARC record with an
// enforcing policy (quarantine or reject).
func DMARCMatch(txt string) bool {
	return dmarcPolicy.MatchString(txt)
}

// DMARC reports whether any record is an enforcing DMARC record.
func DMARC(records []dns.Record) bool {
	return slices.ContainsFunc(records, func(r dns.Record) bool {
		return DMARCMatch(r.Value)
	})
}

// DKIMCNAME reports whether any CNAME target delegates the DKIM selector to
// the service domain. Comparison ignores case and a trailing dot.
func DKIMCNAME(records []dns.Record, serviceDomain string) bool {
	want := dns.Relative(DKIMHost(serviceDomain))
	return slices.ContainsFunc(records, func(r dns.Record) bool {
		return dns.Relative(r.Value) == want
	})
}

// DKIMHost returns the selector host name under domain.
func DKIMHost(domain string) string {
	return DKIMSelector + "._domainkey." + strings.TrimSuffix(domain, ".")
}

// DMARCHost returns the DMARC policy host name under domain.
func DMARCHost(domain string) string {
	return "_dmarc." + strings.TrimSuffix(domain, ".")
}
