package eventbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// AlertConsumer recomputes a portfolio's metrics after each snapshot update
// and logs a warning for every tenant that needs attention today: a final or
// urgent rent notice, high payment risk, or a critical vacancy prediction.
type AlertConsumer struct {
	store   records.Store
	builder *dashboard.Builder
	logger  *slog.Logger
	now     func() time.Time
}

// NewAlertConsumer creates an AlertConsumer.
func NewAlertConsumer(store records.Store, builder *dashboard.Builder, logger *slog.Logger) *AlertConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertConsumer{store: store, builder: builder, logger: logger, now: time.Now}
}

// HandleEvent ignores everything but SnapshotUpdated.
func (c *AlertConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.SnapshotUpdated {
		return nil
	}
	p, err := c.store.Get(ctx, evt.PortfolioID)
	if err != nil {
		return err
	}
	c.alert(ctx, evt.PortfolioID, c.builder.Build(p.Snapshot, c.now()))
	return nil
}

func (c *AlertConsumer) alert(ctx context.Context, portfolioID string, d dashboard.Dashboard) int {
	n := 0
	log := c.logger.With(slog.String("portfolio_id", portfolioID))
	for _, t := range d.RentChasing.Tenants {
		if t.Escalation != types.EscalationFinal && t.Escalation != types.EscalationUrgent {
			continue
		}
		n++
		log.WarnContext(ctx, "alert: rent escalation",
			slog.String("tenant_id", t.TenantID),
			slog.String("escalation", string(t.Escalation)),
			slog.Int("days_overdue", t.MaxDaysOverdue),
			slog.String("amount", t.TotalOverdue.String()))
	}
	for _, r := range d.TenantRisk {
		if r.Level != types.RiskHigh {
			continue
		}
		n++
		log.WarnContext(ctx, "alert: high payment risk",
			slog.String("tenant_id", r.TenantID), slog.Int("score", r.Score))
	}
	for _, v := range d.Vacancy {
		if v.Risk != types.VacancyCritical {
			continue
		}
		n++
		log.WarnContext(ctx, "alert: critical vacancy risk",
			slog.String("tenant_id", v.TenantID),
			slog.String("unit", v.UnitNumber),
			slog.Int("estimated_days", v.EstimatedDays))
	}
	return n
}
