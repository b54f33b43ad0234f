// Package domainauth verifies that a customer controls an email domain and
// that the domain is set up to send mail through the service.
//
// Three independent checks are provided, each backed by live DNS lookups:
//
//   - Ownership: a TXT record on the domain carries a token derived from a
//     service secret, the owner and the owner's domain count (see package token).
//   - MX: the most preferred MX record points at the service's mail host.
//   - Sending: an SPF record authorizes the service, a DMARC record enforces
//     quarantine or reject, and default._domainkey is a CNAME to the service's
//     DKIM selector. These are checked in that order and the first failure is
//     reported.
//
// Each check moves one state forward (UNVERIFIED to VERIFIED, UNVALIDATED to
// VALIDATED, UNVERIFIED_FOR_SENDING to VERIFIED_FOR_SENDING) by setting a
// timestamp once. Nothing in this package clears a timestamp.
//
// # Engine and Service
//
// Engine is the state machine. It fetches records, applies the predicates and
// returns an Outcome holding a Result and, on first success, a Transition. It
// never writes.
//
// Service wraps an Engine with a Store and a per-domain lock:
//
//	svc, err := domainauth.New(store).
//	    Secret(cfg.Secret).
//	    MailHostname("mail.example.net").
//	    ServiceDomain("example.net").
//	    Resolver(dns.NewResolver(dns.ResolverConfig{})).
//	    Logger(logger).
//	    Build()
//
//	res, err := svc.Recheck(ctx, ownerID, domainID)
//	switch {
//	case errors.Is(err, domainauth.ErrAlreadyVerified):
//	    // nothing to do
//	case err != nil:
//	    // store or lock failure
//	case !res.Success:
//	    // show res.Message; records may still be propagating
//	}
//
// DNS failures are never returned as errors. A missing record, a wrong record
// and an unreachable nameserver all produce a Result with Success false and a
// message suggesting the user try again later.
//
// For test and staging environments, Builder.Sandbox installs dns.Sandbox and
// every check passes without lookups.
package domainauth
