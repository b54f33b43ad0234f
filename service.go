package domainauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/synqronlabs/domainauth/lock"
)

// Service is the entry point used by the HTTP layer and the sweeper.
// Each check runs under a per-domain lock: load, evaluate, write.
type Service struct {
	store       Store
	engine      *Engine
	locker      lock.Locker
	lockTimeout time.Duration
	observer    Observer
	logger      *slog.Logger
}

// Engine returns the underlying state machine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Authorize returns ErrDomainNotFound unless domainID exists and belongs to
// ownerID.
func (s *Service) Authorize(ctx context.Context, ownerID, domainID string) error {
	_, err := s.store.GetOwned(ctx, ownerID, domainID)
	return err
}

// Recheck re-runs the ownership check for a domain owned by ownerID on
// request of that owner. A domain that is already verified is rejected with
// ErrAlreadyVerified before any lookup is made.
func (s *Service) Recheck(ctx context.Context, ownerID, domainID string) (Result, error) {
	d, err := s.store.GetOwned(ctx, ownerID, domainID)
	if err != nil {
		return Result{}, err
	}
	if d.IsVerified() {
		return Result{}, ErrAlreadyVerified
	}
	return s.CheckVerification(ctx, domainID)
}

// CheckVerification runs the ownership check and records the first success.
func (s *Service) CheckVerification(ctx context.Context, domainID string) (Result, error) {
	return s.Check(ctx, FamilyOwnership, domainID)
}

// CheckMxRecords runs the MX check and records the first success.
func (s *Service) CheckMxRecords(ctx context.Context, domainID string) (Result, error) {
	return s.Check(ctx, FamilyMX, domainID)
}

// CheckVerificationForSending runs the SPF, DMARC and DKIM checks. On success
// the result carries the domain as reloaded from the store.
func (s *Service) CheckVerificationForSending(ctx context.Context, domainID string) (Result, error) {
	return s.Check(ctx, FamilySending, domainID)
}

// Check runs the check of family f against a domain.
// DNS problems never surface as errors; only store and lock failures do.
func (s *Service) Check(ctx context.Context, f Family, domainID string) (Result, error) {
	run, err := s.runner(f)
	if err != nil {
		return Result{}, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	release, err := s.locker.Lock(lockCtx, domainID)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("domainauth: %s check of %s: %w", f, domainID, err)
	}
	defer release()

	d, err := s.store.Get(ctx, domainID)
	if err != nil {
		return Result{}, err
	}

	out := run(ctx, d)

	if out.Transition != nil {
		if err := s.store.MarkVerified(ctx, *out.Transition); err != nil {
			return Result{}, errors.Join(fmt.Errorf("domainauth: record %s transition for %s", f, domainID), err)
		}
		d.Apply(*out.Transition)

		s.logger.InfoContext(ctx, "domain state advanced",
			slog.String("domain_id", d.ID),
			slog.String("hostname", d.Hostname),
			slog.String("family", string(f)),
			slog.String("state", string(d.State(f))),
		)
	}

	if f == FamilySending && out.Result.Success {
		fresh, err := s.store.Get(ctx, domainID)
		if err != nil {
			return Result{}, err
		}
		out.Result.Domain = fresh
	}

	if s.observer != nil {
		s.observer.ObserveCheck(f, out.Result)
	}

	return out.Result, nil
}

func (s *Service) runner(f Family) (func(context.Context, *Domain) Outcome, error) {
	switch f {
	case FamilyOwnership:
		return s.engine.CheckVerification, nil
	case FamilyMX:
		return s.engine.CheckMxRecords, nil
	case FamilySending:
		return s.engine.CheckVerificationForSending, nil
	}
	return nil, fmt.Errorf("domainauth: unknown check family %q", f)
}
