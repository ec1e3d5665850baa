// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/rentmetrics/internal/activity"
	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/eventbus"
	"github.com/matthewbaird/rentmetrics/internal/feed"
	"github.com/matthewbaird/rentmetrics/internal/handler"
	"github.com/matthewbaird/rentmetrics/internal/policy"
	"github.com/matthewbaird/rentmetrics/internal/records"
)

const shutdownTimeout = 15 * time.Second

// Config holds server configuration.
type Config struct {
	Port       int
	Store      records.Store
	Activity   activity.Store // defaults to an in-memory store
	Policy     *policy.Policy
	DigestCron string
	Logger     *slog.Logger
}

// Services are the long-lived pieces behind the router.
type Services struct {
	Builder  *dashboard.Builder
	Activity activity.Store
	Bus      *eventbus.Bus
	Recorder *event.SnapshotRecorder
	Hub      *feed.Hub
	Digest   *Digest
}

// NewServices wires the event bus and its subscribers. The bus is not
// started.
func NewServices(cfg Config) *Services {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := dashboard.NewBuilder(cfg.Policy, logger)
	bus := eventbus.New(256, logger)
	recorder := event.NewSnapshotRecorder(cfg.Store)
	recorder.SetPublisher(bus)
	hub := feed.NewHub(cfg.Store, builder, logger)
	history := cfg.Activity
	if history == nil {
		history = activity.NewMemoryStore()
	}

	bus.Subscribe("log", eventbus.NewLogConsumer(logger))
	bus.Subscribe("activity", activity.NewIndexer(history, logger))
	bus.Subscribe("feed", hub)
	bus.Subscribe("alerts", eventbus.NewAlertConsumer(cfg.Store, builder, logger))

	return &Services{
		Builder:  builder,
		Activity: history,
		Bus:      bus,
		Recorder: recorder,
		Hub:      hub,
		Digest:   NewDigest(cfg.Store, builder, bus, logger),
	}
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config, svc *Services) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Logging(logger))
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mh := handler.NewMetricsHandler(svc.Builder, logger)
	ph := handler.NewPortfolioHandler(cfg.Store, svc.Recorder, svc.Builder, logger)
	ah := handler.NewActivityHandler(svc.Activity, logger)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/metrics", func(r chi.Router) {
			r.Get("/config", mh.HandleConfig)
			r.Post("/sla", mh.HandleSLA)
			r.Post("/tenant-risk", mh.HandleTenantRisk)
			r.Post("/vacancy", mh.HandleVacancy)
			r.Post("/rent-chasing", mh.HandleRentChasing)
			r.Post("/dashboard", mh.HandleDashboard)
		})
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", ph.HandleListPortfolios)
			r.Put("/{id}/snapshot", ph.HandlePutSnapshot)
			r.Get("/{id}/dashboard", ph.HandleGetDashboard)
			r.Get("/{id}/activity", ah.HandleGetActivity)
			r.Get("/{id}/feed", svc.Hub.ServeHTTP)
		})
	})
	return r
}

// Run starts the event bus, the digest schedule and the HTTP server, and
// shuts all three down when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := NewServices(cfg)
	svc.Bus.Start(ctx)
	defer svc.Bus.Stop()

	if err := svc.Digest.Start(ctx, cfg.DigestCron); err != nil {
		return err
	}
	defer svc.Digest.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("starting server", slog.String("addr", addr))

	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
