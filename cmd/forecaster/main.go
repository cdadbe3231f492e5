// Package main is the entry point for the OrcaMet forecast engine.
//
// The forecaster is a one-shot batch: it loads configuration, connects to the
// database, runs the fetch-blend-score-persist cycle for every active site,
// logs a summary, and exits. Scheduling is external (cron or a systemd timer).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"orcamet/internal/config"
	"orcamet/internal/db"
	"orcamet/internal/engine"
	"orcamet/internal/ensemble"
	"orcamet/internal/observability"
	"orcamet/internal/openmeteo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("orcamet forecaster starting",
		"environment", cfg.Environment,
		"horizon_days", cfg.Forecast.HorizonDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	client := openmeteo.NewClient(openmeteo.Config{
		APIKey:  cfg.Forecast.APIKey,
		Timeout: cfg.Forecast.FetchTimeout,
		Logger:  logger,
	})

	ensembleSvc := ensemble.NewService(ensemble.ServiceConfig{
		Fetcher:     client,
		PacingDelay: cfg.Forecast.PacingDelay,
		Logger:      logger,
		Metrics:     metrics,
	})

	runner := engine.NewRunner(engine.RunnerConfig{
		Ensemble: ensembleSvc,
		Run: engine.Config{
			HorizonDays:   cfg.Forecast.HorizonDays,
			WorkStartHour: cfg.Forecast.WorkStartHour,
			WorkEndHour:   cfg.Forecast.WorkEndHour,
		},
		Logger: logger,
	})

	batch := engine.NewBatch(engine.BatchConfig{
		Runner:     runner,
		Sites:      db.NewSiteRepository(pool),
		Thresholds: db.NewThresholdRepository(pool),
		Store:      db.NewForecastRunRepository(pool),
		Logger:     logger,
		Metrics:    metrics,
	})

	summary, err := batch.Run(ctx)
	if err != nil {
		return fmt.Errorf("running batch: %w", err)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("batch finished with %d failed site(s) of %d", summary.Failed, summary.Sites)
	}

	return nil
}

// newPool connects to PostgreSQL with the configured pool limits and verifies
// the connection before returning.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// newLogger creates a structured JSON slog.Logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
