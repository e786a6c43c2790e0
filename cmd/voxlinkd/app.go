package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aks-o/voxlink-sub005/auth"
	"github.com/aks-o/voxlink-sub005/cache"
	"github.com/aks-o/voxlink-sub005/config"
	"github.com/aks-o/voxlink-sub005/health"
	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/observe/exporters"
	"github.com/aks-o/voxlink-sub005/provider"
	"github.com/aks-o/voxlink-sub005/provider/httpvendor"
	"github.com/aks-o/voxlink-sub005/provider/static"
	"github.com/aks-o/voxlink-sub005/search"
	"github.com/aks-o/voxlink-sub005/store"
	"github.com/aks-o/voxlink-sub005/store/postgres"
)

// app holds the wired service.
type app struct {
	cfg      *config.Config
	logger   observe.Logger
	observer observe.Observer
	metrics  *prometheus.Registry
	manager  *provider.Manager
	cache    *cache.MemoryCache
	orch     *search.Orchestrator
	health   *health.Aggregator
	authn    auth.Authenticator // nil when no operator credentials are configured

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, metrics: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.Observe
	obsCfg.ExporterOptions = append(obsCfg.ExporterOptions, exporters.WithRegisterer(a.metrics))
	a.observer, err = observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.observer.Shutdown(shutdownCtx)
	})
	a.logger = a.observer.Logger()

	mw, err := observe.MiddlewareFromObserver(a.observer)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}

	registry := provider.NewRegistry()
	if err := errors.Join(httpvendor.Register(registry), static.Register(registry)); err != nil {
		return nil, err
	}
	bindings, err := registry.BuildAll(cfg.Providers)
	if err != nil {
		return nil, err
	}
	a.manager, err = provider.NewManager(provider.ManagerConfig{
		ProbeInterval: cfg.Health.ProbeInterval,
		ProbeTimeout:  cfg.Health.ProbeTimeout,
		Logger:        a.logger,
		Middleware:    mw,
	}, bindings...)
	if err != nil {
		return nil, err
	}

	var codec cache.Codec = cache.JSONCodec{}
	if cfg.Cache.Compression == "zstd" {
		zc, err := cache.NewZstdCodec(cache.JSONCodec{})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, zc.Close)
		codec = zc
	}
	a.cache = cache.NewMemoryCache()

	a.health = health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Health.ProbeTimeout})
	for _, c := range a.manager.Checkers() {
		a.health.Register(c.Name(), c)
	}

	repo, err := a.repository(ctx)
	if err != nil {
		return nil, err
	}

	a.orch, err = search.NewOrchestrator(a.manager, a.cache, search.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		SearchTTL:    cfg.Cache.SearchTTL,
		DetailTTL:    cfg.Cache.DetailTTL,
		MaxTTL:       cfg.Cache.MaxTTL,
		Retry: search.RetryConfig{
			MaxAttempts: cfg.Search.Retry.MaxAttempts,
			BaseDelay:   cfg.Search.Retry.BaseDelay,
			MaxDelay:    cfg.Search.Retry.MaxDelay,
			Jitter:      cfg.Search.Retry.Jitter,
		},
		BulkConcurrency: cfg.Search.BulkConcurrency,
		Codec:           codec,
		Repository:      repo,
		Logger:          a.logger,
		Tracer:          a.observer.Tracer(),
		Metrics:         mw.Metrics(),
	})
	if err != nil {
		return nil, err
	}

	a.authn, err = authenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}
	if a.authn == nil {
		a.logger.Warn(ctx, "no operator credentials configured, operator routes are unauthenticated")
	}
	return a, nil
}

// repository opens PostgreSQL when a DSN is configured and falls back to
// process memory otherwise.
func (a *app) repository(ctx context.Context) (store.Repository, error) {
	db := a.cfg.Database
	if db.DSN == "" {
		a.logger.Warn(ctx, "no database configured, number records are kept in memory")
		return store.NewMemoryRepository(), nil
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             db.DSN,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		ApplicationName: a.cfg.Service.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if db.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
	}
	a.health.Register("postgres", health.NewPingChecker("postgres", pool.Ping, health.WithSlowThreshold(time.Second)))
	return postgres.NewRepository(pool), nil
}

func authenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	var chain auth.Chain
	if len(cfg.APIKeys) > 0 {
		keys, err := auth.NewMemoryKeyStore(cfg.APIKeys...)
		if err != nil {
			return nil, err
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, keys))
	}
	if cfg.JWTSecret != "" {
		j, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, j)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

// serve starts background work and the HTTP server, and blocks until ctx
// ends and shutdown completes.
func (a *app) serve(ctx context.Context) error {
	a.manager.StartHealthProbe(ctx)
	go a.purgeLoop(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Service.Listen,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "voxlinkd listening",
			observe.F("addr", srv.Addr),
			observe.F("providers", len(a.cfg.Providers)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	a.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Service.ShutdownTimeout)
	defer cancel()

	return errors.Join(serveErr, srv.Shutdown(shutdownCtx), a.close(shutdownCtx))
}

func (a *app) purgeLoop(ctx context.Context) {
	interval := a.cfg.Cache.SearchTTL
	if interval <= 0 {
		interval = cache.SearchPolicy().DefaultTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.cache.Purge(); n > 0 {
				a.logger.Debug(ctx, "purged expired cache entries", observe.F("entries", n))
			}
		}
	}
}

func (a *app) close(context.Context) error {
	if a.manager != nil {
		a.manager.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
