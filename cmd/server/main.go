package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/activity"
	"github.com/matthewbaird/rentmetrics/internal/config"
	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", slog.Any("error", err))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pol, err := cfg.LoadPolicy()
	if err != nil {
		return err
	}

	var (
		store   records.Store
		history activity.Store
	)
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory store")
		store = records.NewMemoryStore()
		history = activity.NewMemoryStore()
	} else {
		sqlStore, err := records.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer sqlStore.Close()
		activityStore := activity.NewSQLiteStore(sqlStore.DB())
		if err := activityStore.CreateTable(ctx); err != nil {
			return err
		}
		logger.Info("using sqlite store")
		store, history = sqlStore, activityStore
	}

	if cfg.SeedDemo {
		if err := records.SeedDemoData(ctx, store, time.Now()); err != nil {
			return err
		}
		logger.Info("seeded demo portfolio", slog.String("portfolio_id", records.DemoPortfolioID))
	}

	return server.Run(ctx, server.Config{
		Port:       cfg.Port,
		Store:      store,
		Activity:   history,
		Policy:     pol,
		DigestCron: cfg.DigestCron,
		Logger:     logger,
	})
}
