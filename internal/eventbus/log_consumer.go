package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/rentmetrics/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	c.logger.InfoContext(ctx, "event",
		slog.String("event_type", evt.EventType),
		slog.String("event_id", evt.ID),
		slog.String("portfolio_id", evt.PortfolioID),
		slog.String("summary", evt.Summary))
	return nil
}
