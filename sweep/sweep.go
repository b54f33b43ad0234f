// Package sweep rechecks pending domains in bulk.
//
// A Sweeper lists domains whose state has not advanced yet and runs the
// matching check for each of them with bounded parallelism. A failure on one
// domain is logged and counted; it never stops the rest of the sweep.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/synqronlabs/domainauth"
)

// Defaults used when no option overrides them.
const (
	DefaultConcurrency = 8
	DefaultBatch       = 500
)

// Outcome labels reported to the Observer.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// ErrInvalidSchedule is returned when a cron expression cannot be parsed.
var ErrInvalidSchedule = errors.New("sweep: invalid schedule")

// Lister returns domains still waiting for a family's check to pass.
type Lister interface {
	ListPending(ctx context.Context, f domainauth.Family, limit int) ([]*domainauth.Domain, error)
}

// Checker runs one check. *domainauth.Service implements it.
type Checker interface {
	Check(ctx context.Context, f domainauth.Family, domainID string) (domainauth.Result, error)
}

// Observer is notified once per domain processed.
type Observer interface {
	ObserveSweep(f domainauth.Family, outcome string)
}

// Report summarizes one sweep.
type Report struct {
	Checked int
	Passed  int
	Failed  int
	Errors  int
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithConcurrency bounds how many checks run at once.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBatch bounds how many domains one sweep picks up per family.
func WithBatch(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithFamilies selects the checks to run. Default: ownership only.
func WithFamilies(families ...domainauth.Family) Option {
	return func(s *Sweeper) {
		if len(families) > 0 {
			s.families = families
		}
	}
}

// WithObserver sets the per-domain observer, typically *metrics.Metrics.
func WithObserver(o Observer) Option {
	return func(s *Sweeper) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sweeper rechecks pending domains.
type Sweeper struct {
	lister      Lister
	checker     Checker
	families    []domainauth.Family
	concurrency int
	batch       int
	observer    Observer
	logger      *slog.Logger
}

// New creates a Sweeper.
func New(lister Lister, checker Checker, opts ...Option) *Sweeper {
	s := &Sweeper{
		lister:      lister,
		checker:     checker,
		families:    []domainauth.Family{domainauth.FamilyOwnership},
		concurrency: DefaultConcurrency,
		batch:       DefaultBatch,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep over every configured family. It returns an error
// only if pending domains could not be listed or ctx was cancelled.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	var report Report
	for _, f := range s.families {
		r, err := s.runFamily(ctx, f)
		report.Checked += r.Checked
		report.Passed += r.Passed
		report.Failed += r.Failed
		report.Errors += r.Errors
		if err != nil {
			return report, err
		}
	}

	s.logger.InfoContext(ctx, "sweep finished",
		slog.Int("checked", report.Checked),
		slog.Int("passed", report.Passed),
		slog.Int("failed", report.Failed),
		slog.Int("errors", report.Errors),
	)
	return report, nil
}

func (s *Sweeper) runFamily(ctx context.Context, f domainauth.Family) (Report, error) {
	pending, err := s.lister.ListPending(ctx, f, s.batch)
	if err != nil {
		return Report{}, fmt.Errorf("sweep: list pending %s: %w", f, err)
	}

	var passed, failed, errs atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, d := range pending {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			res, err := s.checker.Check(gctx, f, d.ID)
			switch {
			case err != nil:
				errs.Add(1)
				s.observe(f, OutcomeError)
				s.logger.WarnContext(gctx, "sweep check failed",
					slog.String("domain_id", d.ID),
					slog.String("hostname", d.Hostname),
					slog.String("family", string(f)),
					slog.Any("error", err),
				)
			case res.Success:
				passed.Add(1)
				s.observe(f, OutcomePassed)
			default:
				failed.Add(1)
				s.observe(f, OutcomeFailed)
				s.logger.DebugContext(gctx, "sweep check negative",
					slog.String("domain_id", d.ID),
					slog.String("family", string(f)),
					slog.String("reason", string(res.Reason)),
				)
			}
			return nil
		})
	}

	err = g.Wait()
	r := Report{
		Passed: int(passed.Load()),
		Failed: int(failed.Load()),
		Errors: int(errs.Load()),
	}
	r.Checked = r.Passed + r.Failed + r.Errors
	return r, err
}

func (s *Sweeper) observe(f domainauth.Family, outcome string) {
	if s.observer != nil {
		s.observer.ObserveSweep(f, outcome)
	}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five field cron expression or a descriptor such as
// "@every 10m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}
	return schedule, nil
}

// Schedule runs a sweep on every activation of expr until ctx is done.
// An activation that fires while the previous sweep is still running is
// skipped.
func (s *Sweeper) Schedule(ctx context.Context, expr string) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(schedule, cron.FuncJob(func() {
		if _, err := s.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "sweep aborted", slog.Any("error", err))
		}
	}))

	s.logger.InfoContext(ctx, "sweep scheduled",
		slog.String("schedule", expr),
		slog.Time("next", schedule.Next(time.Now())),
	)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
