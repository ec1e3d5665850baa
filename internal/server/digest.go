package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// Digest recomputes every stored portfolio on a schedule and publishes a
// DigestCompleted event per portfolio.
type Digest struct {
	store   records.Store
	builder *dashboard.Builder
	bus     event.Publisher
	logger  *slog.Logger
	cron    *cron.Cron
	now     func() time.Time
}

func NewDigest(store records.Store, builder *dashboard.Builder, bus event.Publisher, logger *slog.Logger) *Digest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Digest{
		store:   store,
		builder: builder,
		bus:     bus,
		logger:  logger.With(slog.String("component", "digest")),
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Start schedules RunOnce. An empty schedule disables the digest.
func (d *Digest) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		d.logger.Info("digest disabled")
		return nil
	}
	_, err := d.cron.AddFunc(schedule, func() {
		if _, err := d.RunOnce(ctx); err != nil {
			d.logger.Error("scheduled digest failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid digest cron expression %q: %w", schedule, err)
	}
	d.logger.Info("digest scheduled", slog.String("cron", schedule))
	d.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running digest to finish.
func (d *Digest) Stop() {
	<-d.cron.Stop().Done()
}

// RunOnce builds the digest for every stored portfolio.
func (d *Digest) RunOnce(ctx context.Context) ([]event.DigestCompletedPayload, error) {
	ids, err := d.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing portfolios: %w", err)
	}
	now := d.now()
	out := make([]event.DigestCompletedPayload, 0, len(ids))
	for _, id := range ids {
		p, err := d.store.Get(ctx, id)
		if err != nil {
			d.logger.Warn("digest: skipping portfolio", slog.String("portfolio_id", id), slog.Any("error", err))
			continue
		}
		payload := digestPayload(d.builder.Build(p.Snapshot, now))
		evt := event.NewDigestCompleted(id, payload)
		d.logger.InfoContext(ctx, evt.Summary, slog.String("portfolio_id", id))
		d.bus.Publish(ctx, evt)
		out = append(out, payload)
	}
	return out, nil
}

func digestPayload(db dashboard.Dashboard) event.DigestCompletedPayload {
	byLevel := make(map[string]int, len(db.RentChasing.ByEscalation))
	for _, level := range types.Escalations {
		byLevel[string(level)] = db.RentChasing.ByEscalation[level]
	}
	return event.DigestCompletedPayload{
		OverdueTenants:    db.Headline.OverdueTenants,
		OverdueAmount:     db.Headline.OverdueLabel,
		ByEscalation:      byLevel,
		HighRiskTenants:   db.Headline.HighRiskTenants,
		CriticalVacancies: db.Headline.CriticalVacancies,
		OpenBreaches:      db.Headline.OpenBreaches,
	}
}
