// Command api is the Seatwatch API server. It serves the watch API and runs
// the availability scheduler, the notification worker, the watch listener
// and the maintenance tickers in one process.
//
// Usage:
//
//	seatwatch-api
//	API_PORT=8080 seatwatch-api

// @title Seatwatch API
// @version 1.0.0
// @description Train seat availability watches. Users register a route, date and departure window; the scheduler polls the availability provider and notifies them when seats open up.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Seatwatch
// @license.name MIT
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/albapepper/seatwatch/internal/api"
	"github.com/albapepper/seatwatch/internal/api/handler"
	"github.com/albapepper/seatwatch/internal/cache"
	"github.com/albapepper/seatwatch/internal/config"
	"github.com/albapepper/seatwatch/internal/db"
	"github.com/albapepper/seatwatch/internal/listener"
	"github.com/albapepper/seatwatch/internal/maintenance"
	"github.com/albapepper/seatwatch/internal/monitor"
	"github.com/albapepper/seatwatch/internal/notifications"
	"github.com/albapepper/seatwatch/internal/provider/railapi"
	"github.com/albapepper/seatwatch/internal/station"
	"github.com/albapepper/seatwatch/internal/watch"

	_ "github.com/albapepper/seatwatch/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Applying schema...")
	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return err
	}

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	stations, err := station.Load(cfg.StationsFile)
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}
	logger.Info("Station directory loaded", "stations", stations.Len(), "file", cfg.StationsFile)

	loc := cfg.Location()
	store := watch.NewPostgresStore(pool.Pool)
	service := watch.NewService(store, stations, loc, logger)

	// --- Notifications ---
	outbox := notifications.NewPgOutbox(pool.Pool)
	transport, closeTransport := notifications.NewTransport(notifications.TransportConfig{
		Kind:               cfg.NotifyTransport,
		FCMCredentialsFile: cfg.FCMCredentialsFile,
		AMQPURL:            cfg.AMQPURL,
		AMQPQueue:          cfg.AMQPQueue,
	}, logger)
	defer closeTransport()
	dispatcher := notifications.NewDispatcher(outbox, logger)
	logger.Info("Notification transport selected", "transport", fmt.Sprintf("%T", transport))

	// --- Monitor ---
	client := railapi.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey,
		cfg.ProviderRequestsPerMinute, cfg.ProviderTimeout, logger)
	probe := monitor.NewProbe(client, cfg.ProviderTimeout, logger)
	lifecycle := monitor.NewLifecycle(store, dispatcher, stations, loc, logger)
	runner := monitor.NewRunner(store, probe, lifecycle, logger)
	passRunner := monitor.NewLockedRunner(runner, pool.NewAdvisoryLock(db.PassLockKey))
	scheduler := monitor.NewScheduler(passRunner, store, monitor.SchedulerConfig{
		IdleInterval:   cfg.SchedulerIdleInterval,
		ActiveInterval: cfg.SchedulerActiveInterval,
		CadenceCheck:   cfg.SchedulerCadenceCheck,
	}, logger)

	// --- HTTP ---
	appCache := cache.New(ctx, cfg.CacheEnabled)
	router := api.NewRouter(handler.Deps{
		DB:        pool,
		Cache:     appCache,
		Watches:   service,
		Stations:  stations,
		Scheduler: scheduler,
		Logger:    logger,
	}, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Seatwatch API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		scheduler.Start(gctx)
		return nil
	})

	worker := notifications.NewWorker(outbox, transport, logger)
	g.Go(func() error {
		worker.Start(gctx)
		return nil
	})

	// Watches created by other instances or directly in SQL switch the
	// cadence without waiting for the next periodic check.
	g.Go(func() error {
		listener.Start(gctx, cfg.DatabaseURL, func(ctx context.Context, userID string) {
			scheduler.CheckCadence(ctx)
		}, logger)
		return nil
	})

	g.Go(func() error {
		maintenance.Start(gctx, pool, maintenance.DefaultConfig(), logger)
		return nil
	})

	return g.Wait()
}
