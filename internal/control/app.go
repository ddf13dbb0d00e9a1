// Package control assembles and runs the application: cache tiers,
// fetcher, archive, facade, refresher and the health listener.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/lottopipe/lottopipe/internal/cache"
	"github.com/lottopipe/lottopipe/internal/core/config"
	"github.com/lottopipe/lottopipe/internal/core/resilience"
	"github.com/lottopipe/lottopipe/internal/core/worker"
	"github.com/lottopipe/lottopipe/internal/health"
	"github.com/lottopipe/lottopipe/internal/infra/fetch"
	"github.com/lottopipe/lottopipe/internal/infra/storage/postgres"
	"github.com/lottopipe/lottopipe/internal/metrics"
	"github.com/lottopipe/lottopipe/internal/service"
)

// App is the assembled application.
type App struct {
	cfg          *config.AppConfig
	cacheMgr     *cache.Manager
	svc          *service.Service
	refresher    *worker.Refresher
	healthServer *health.Server
	db           *postgres.DB
	log          *slog.Logger
}

// NewApp creates the application with all dependencies wired. Nothing
// here touches package-level state; every component receives its
// collaborators explicitly.
func NewApp(cfg *config.AppConfig) (*App, error) {
	// 1. Cache tiers
	cacheMgr, err := cache.NewManager(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	// 2. Source fetcher behind its circuit breaker
	breaker := resilience.NewBreaker(cfg.Breaker)
	breaker.OnStateChange(func(s resilience.BreakerState) {
		metrics.BreakerState.Set(float64(s))
	})
	fetcher := fetch.NewFetcher(cfg.Source, fetch.NewPageExtractor(), breaker)

	// 3. Optional Postgres archive
	var db *postgres.DB
	var archive service.Archive
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		archive = postgres.NewDrawRepo(db)
		slog.Info("Draw archive enabled")
	} else {
		slog.Info("Draw archive disabled, scraping only")
	}

	// 4. Facade and background workers
	svc := service.New(cacheMgr, fetcher, archive, cfg.Retry, cfg.TTL)
	refresher := worker.NewRefresher(cfg.Refresher, svc)
	healthServer := health.NewServer(svc, cfg.Server.Port)

	return &App{
		cfg:          cfg,
		cacheMgr:     cacheMgr,
		svc:          svc,
		refresher:    refresher,
		healthServer: healthServer,
		db:           db,
		log:          slog.Default(),
	}, nil
}

// Service exposes the facade, mainly for embedding callers.
func (a *App) Service() *service.Service {
	return a.svc
}

// Start starts the health listener and background workers.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	go a.cacheMgr.StartSweeper(ctx)
	go a.refresher.Start(ctx)

	a.log.Info("Started", "port", a.cfg.Server.Port, "source", a.cfg.Source.BaseURL)
	return nil
}

// Stop shuts the application down.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping...")

	if err := a.cacheMgr.Close(); err != nil {
		a.log.Warn("Failed to close cache", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close db", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}
