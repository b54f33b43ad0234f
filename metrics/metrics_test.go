package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/synqronlabs/domainauth"
	"github.com/synqronlabs/domainauth/dns"
)

func TestObserveCheck(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCheck(domainauth.FamilySending, domainauth.Result{Reason: domainauth.ReasonSPFMissing})
	m.ObserveCheck(domainauth.FamilySending, domainauth.Result{Reason: domainauth.ReasonSPFMissing})
	m.ObserveCheck(domainauth.FamilyMX, domainauth.Result{Success: true, Reason: domainauth.ReasonVerified})

	assert.InDelta(t, 2, testutil.ToFloat64(m.CheckOutcome.WithLabelValues("sending", "spf_missing", "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CheckOutcome.WithLabelValues("mx", "verified", "true")), 0)
}

func TestObserveLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLookup(dns.TypeTXT, time.Millisecond, nil)
	m.ObserveLookup(dns.TypeMX, time.Millisecond, dns.ErrDNSNotFound)
	m.ObserveLookup(dns.TypeMX, time.Second, &dns.LookupError{Type: dns.TypeMX, Err: dns.ErrDNSTimeout})

	assert.Equal(t, 3, testutil.CollectAndCount(m.LookupLatency))
}

func TestLookupOutcome(t *testing.T) {
	assert.Equal(t, "ok", lookupOutcome(nil))
	assert.Equal(t, "not_found", lookupOutcome(dns.ErrDNSNotFound))
	assert.Equal(t, "timeout", lookupOutcome(dns.ErrDNSTimeout))
	assert.Equal(t, "servfail", lookupOutcome(dns.ErrDNSServFail))
	assert.Equal(t, "error", lookupOutcome(errors.New("boom")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCheck(domainauth.FamilyMX, domainauth.Result{})
		m.ObserveLookup(dns.TypeTXT, 0, nil)
		m.ObserveSweep(domainauth.FamilyMX, "passed")
	})
}
