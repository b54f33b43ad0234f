// Package metrics exposes Prometheus metrics for domain verification.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/synqronlabs/domainauth"
	"github.com/synqronlabs/domainauth/dns"
)

// Metrics provides observability for checks, lookups and sweeps.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Check outcomes by family and reason
	CheckOutcome *prometheus.CounterVec

	// DNS lookup latency by record type and outcome
	LookupLatency *prometheus.HistogramVec

	// Domains processed by the sweeper by family and outcome
	SweepDomains *prometheus.CounterVec
}

var _ domainauth.Observer = (*Metrics)(nil)

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainauth_checks_total",
			Help: "Verification checks by family and reason",
		}, []string{"family", "reason", "success"}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainauth_lookup_duration_seconds",
			Help:    "Duration of DNS lookups by record type and outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"type", "outcome"}),

		SweepDomains: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainauth_sweep_domains_total",
			Help: "Domains processed by scheduled sweeps",
		}, []string{"family", "outcome"}),
	}
}

// ObserveCheck implements domainauth.Observer.
func (m *Metrics) ObserveCheck(f domainauth.Family, r domainauth.Result) {
	if m == nil {
		return
	}
	success := "false"
	if r.Success {
		success = "true"
	}
	m.CheckOutcome.WithLabelValues(string(f), string(r.Reason), success).Inc()
}

// ObserveLookup records a lookup. It matches dns.Observer.
func (m *Metrics) ObserveLookup(t dns.RecordType, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.LookupLatency.WithLabelValues(string(t), lookupOutcome(err)).Observe(elapsed.Seconds())
}

// ObserveSweep records one domain processed by a sweep.
func (m *Metrics) ObserveSweep(f domainauth.Family, outcome string) {
	if m == nil {
		return
	}
	m.SweepDomains.WithLabelValues(string(f), outcome).Inc()
}

func lookupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case dns.IsNotFound(err):
		return "not_found"
	case dns.IsTimeout(err):
		return "timeout"
	case dns.IsServFail(err):
		return "servfail"
	}
	return "error"
}
