package domainauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/synqronlabs/domainauth/dns"
	"github.com/synqronlabs/domainauth/predicate"
	"github.com/synqronlabs/domainauth/token"
)

// Fetcher retrieves normalized DNS records. *dns.Fetcher is the production
// implementation; dns.Sandbox bypasses lookups entirely.
type Fetcher interface {
	Fetch(ctx context.Context, name string, t dns.RecordType) ([]dns.Record, error)
}

// sandboxed is implemented by fetchers that stand in for DNS in
// non-production environments. Checks against them always pass.
type sandboxed interface {
	Sandboxed() bool
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Secret is mixed into every ownership token. Required.
	Secret string

	// MailHostname is the host the service receives mail on; a domain's
	// most preferred MX must point here. Required.
	MailHostname string

	// ServiceDomain is the service's own domain, used for the SPF include
	// and the DKIM CNAME target. Required.
	ServiceDomain string

	// Fetcher performs DNS lookups. Required.
	Fetcher Fetcher

	// Now returns the timestamp recorded on transitions. Default: time.Now.
	Now func() time.Time

	// Logger receives debug output about failed checks. Default: discard.
	Logger *slog.Logger
}

// Outcome is what a check produces: a result for the caller and, on first
// success, the transition the persistence layer must apply.
type Outcome struct {
	Result     Result
	Transition *Transition
}

// Engine is the verification state machine. It performs DNS lookups through
// its Fetcher but never writes; transitions are returned to the caller.
// An Engine is safe for concurrent use.
type Engine struct {
	secret       string
	mailHostname string
	fetcher      Fetcher
	sandbox      bool
	sending      []sendingStep
	now          func() time.Time
	logger       *slog.Logger
}

// sendingStep is one record requirement of the sending check.
type sendingStep struct {
	label  string
	reason ReasonCode
	msg    string
	host   func(hostname string) string
	rtype  dns.RecordType
	eval   func([]dns.Record) bool
}

// NewEngine validates cfg and creates an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	switch {
	case cfg.Secret == "":
		return nil, ErrMissingSecret
	case cfg.MailHostname == "":
		return nil, ErrMissingMailHostname
	case cfg.ServiceDomain == "":
		return nil, ErrMissingServiceDomain
	case cfg.Fetcher == nil:
		return nil, ErrMissingFetcher
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	serviceDomain := dns.Relative(cfg.ServiceDomain)
	spf := predicate.NewSPF(serviceDomain)

	e := &Engine{
		secret:       cfg.Secret,
		mailHostname: dns.Relative(cfg.MailHostname),
		fetcher:      cfg.Fetcher,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
	if s, ok := cfg.Fetcher.(sandboxed); ok && s.Sandboxed() {
		e.sandbox = true
	}

	// Evaluated in this order; the first failure is reported.
	e.sending = []sendingStep{
		{
			label:  "SPF record",
			reason: ReasonSPFMissing,
			msg:    MsgSPFNotFound,
			host:   func(h string) string { return h },
			rtype:  dns.TypeTXT,
			eval:   spf.Eval,
		},
		{
			label:  "DMARC record",
			reason: ReasonDMARCMissing,
			msg:    MsgDMARCNotFound,
			host:   predicate.DMARCHost,
			rtype:  dns.TypeTXT,
			eval:   predicate.DMARC,
		},
		{
			label:  "CNAME default._domainkey record",
			reason: ReasonDKIMMissing,
			msg:    MsgDKIMNotFound,
			host:   predicate.DKIMHost,
			rtype:  dns.TypeCNAME,
			eval: func(records []dns.Record) bool {
				return predicate.DKIMCNAME(records, serviceDomain)
			},
		},
	}

	return e, nil
}

// Sandboxed reports whether the engine bypasses DNS.
func (e *Engine) Sandboxed() bool {
	return e.sandbox
}

// CheckVerification checks the ownership TXT record. An already verified
// domain passes immediately: no lookup is made and no token is derived,
// because the owner's domain count may have changed since.
func (e *Engine) CheckVerification(ctx context.Context, d *Domain) Outcome {
	if d.IsVerified() {
		return Outcome{Result: success(ReasonAlreadyVerified, MsgAlreadyVerified)}
	}
	if e.sandbox {
		return e.pass(d, FamilyOwnership, success(ReasonSandbox, MsgVerified))
	}

	expected := token.Derive(e.secret, d.OwnerID, d.DomainCount)

	records, err := e.fetcher.Fetch(ctx, d.Hostname, dns.TypeTXT)
	if err != nil {
		return Outcome{Result: e.lookupFailure(ctx, d, FamilyOwnership, "Verification TXT record", ReasonOwnershipMismatch, MsgOwnershipNotFound, err)}
	}

	if !predicate.Ownership(records, expected) {
		e.logger.DebugContext(ctx, "ownership token not published",
			slog.String("domain_id", d.ID),
			slog.String("hostname", d.Hostname),
			slog.Int("txt_records", len(records)),
		)
		return Outcome{Result: failure(ReasonOwnershipMismatch, MsgOwnershipNotFound)}
	}

	return e.pass(d, FamilyOwnership, success(ReasonVerified, MsgVerified))
}

// CheckMxRecords checks that the most preferred MX record points at the
// service's mail host. It re-checks validated domains, but the validation
// timestamp is only produced once.
func (e *Engine) CheckMxRecords(ctx context.Context, d *Domain) Outcome {
	if e.sandbox {
		return e.pass(d, FamilyMX, success(ReasonSandbox, MsgMXValidated))
	}

	records, err := e.fetcher.Fetch(ctx, d.Hostname, dns.TypeMX)
	if err != nil {
		return Outcome{Result: e.lookupFailure(ctx, d, FamilyMX, "MX record", ReasonMXMissing, MsgMXNotFound, err)}
	}

	if !predicate.MXTarget(records, e.mailHostname) {
		e.logger.DebugContext(ctx, "mx target mismatch",
			slog.String("domain_id", d.ID),
			slog.String("hostname", d.Hostname),
			slog.String("want", e.mailHostname),
		)
		return Outcome{Result: failure(ReasonMXMismatch, MsgMXMismatch)}
	}

	return e.pass(d, FamilyMX, success(ReasonVerified, MsgMXValidated))
}

// CheckVerificationForSending checks SPF, DMARC and the DKIM CNAME in that
// order and stops at the first record that is missing or wrong.
// On success the result carries a snapshot with the sending timestamp set.
func (e *Engine) CheckVerificationForSending(ctx context.Context, d *Domain) Outcome {
	if e.sandbox {
		return e.passSending(d, success(ReasonSandbox, MsgSandboxSending))
	}

	for _, step := range e.sending {
		records, err := e.fetcher.Fetch(ctx, step.host(d.Hostname), step.rtype)
		if err != nil {
			return Outcome{Result: e.lookupFailure(ctx, d, FamilySending, step.label, step.reason, step.msg, err)}
		}
		if !step.eval(records) {
			e.logger.DebugContext(ctx, "sending record rejected",
				slog.String("domain_id", d.ID),
				slog.String("hostname", d.Hostname),
				slog.String("record", step.label),
			)
			return Outcome{Result: failure(step.reason, step.msg)}
		}
	}

	return e.passSending(d, success(ReasonVerified, MsgSendingVerified))
}

func (e *Engine) passSending(d *Domain, r Result) Outcome {
	out := e.pass(d, FamilySending, r)
	snapshot := d.Clone()
	if out.Transition != nil {
		snapshot.Apply(*out.Transition)
	}
	out.Result.Domain = snapshot
	return out
}

// pass builds a successful outcome, with a transition if the family has not
// been recorded yet.
func (e *Engine) pass(d *Domain, f Family, r Result) Outcome {
	out := Outcome{Result: r}
	if d.Timestamp(f) == nil {
		out.Transition = &Transition{DomainID: d.ID, Family: f, At: e.now()}
	}
	return out
}

// lookupFailure turns a fetch error into a negative result. A missing record
// is reported the same way as a wrong one; anything else is a lookup failure.
func (e *Engine) lookupFailure(ctx context.Context, d *Domain, f Family, label string, missing ReasonCode, msg string, err error) Result {
	if dns.IsNotFound(err) {
		return failure(missing, msg)
	}

	e.logger.InfoContext(ctx, "dns lookup failed",
		slog.String("domain_id", d.ID),
		slog.String("hostname", d.Hostname),
		slog.String("family", string(f)),
		slog.String("record", label),
		slog.Any("error", err),
	)
	return failure(ReasonLookupFailed, lookupFailedMessage(label))
}
