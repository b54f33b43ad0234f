package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/synqronlabs/domainauth"
	"github.com/synqronlabs/domainauth/config"
	"github.com/synqronlabs/domainauth/dns"
	"github.com/synqronlabs/domainauth/httpapi"
	"github.com/synqronlabs/domainauth/lock"
	"github.com/synqronlabs/domainauth/metrics"
	"github.com/synqronlabs/domainauth/store"
	"github.com/synqronlabs/domainauth/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	domains, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	builder := domainauth.New(domains).
		Secret(cfg.Secret).
		MailHostname(cfg.MailHostname).
		ServiceDomain(cfg.ServiceDomain).
		LockTimeout(cfg.LockTimeout).
		Observer(m).
		Logger(logger)

	if cfg.Sandboxed() {
		builder.Sandbox()
	} else {
		builder.
			Resolver(newResolver(cfg)).
			LookupTimeout(cfg.LookupTimeout).
			LookupObserver(m.ObserveLookup)
	}

	if cfg.RedisURL != "" {
		client, err := lock.OpenRedis(ctx, cfg.RedisURL, 3, 2*time.Second)
		if err != nil {
			return err
		}
		defer client.Close()
		builder.Locker(lock.NewRedis(client,
			lock.WithTTL(cfg.LockTimeout+cfg.LookupTimeout*4),
			lock.WithLogger(logger),
		))
	}

	svc, err := builder.Build()
	if err != nil {
		return err
	}

	limiter := httpapi.NewLimiter(cfg.RecheckInterval)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	httpapi.New(svc, logger, httpapi.WithLimiter(limiter)).Register(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.Bool("sandbox", cfg.Sandboxed()))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		limiter.RunJanitor(gctx, cfg.RecheckInterval*4)
		return nil
	})

	if cfg.SweepSchedule != "" {
		sweeper := sweep.New(domains, svc,
			sweep.WithConcurrency(cfg.SweepConcurrency),
			sweep.WithBatch(cfg.SweepBatch),
			sweep.WithObserver(m),
			sweep.WithLogger(logger),
		)
		g.Go(func() error {
			return sweeper.Schedule(gctx, cfg.SweepSchedule)
		})
	}

	return g.Wait()
}

func newResolver(cfg config.Config) dns.Resolver {
	if cfg.Resolver == config.ResolverSystem {
		return dns.NewStdResolver(cfg.Nameservers...)
	}
	return dns.NewResolver(dns.ResolverConfig{
		Nameservers: cfg.Nameservers,
		DNSSEC:      cfg.DNSSEC,
		Retries:     cfg.LookupRetries,
	})
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (domainauth.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using the in-memory store")
		return store.NewMemory(), func() {}, nil
	}

	pgCfg, err := env.ParseAs[store.PostgresConfig]()
	if err != nil {
		return nil, nil, err
	}

	pool, err := store.Connect(ctx, pgCfg)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store.NewPostgres(pool), pool.Close, nil
}
