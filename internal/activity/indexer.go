package activity

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/rentmetrics/internal/event"
)

// Indexer consumes domain events from the bus and writes them to the
// history store.
type Indexer struct {
	store  Store
	logger *slog.Logger
}

func NewIndexer(store Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger}
}

// HandleEvent records evt. Events without a portfolio are not indexed.
func (idx *Indexer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.PortfolioID == "" {
		idx.logger.DebugContext(ctx, "activity: skipping event without portfolio",
			slog.String("event_id", evt.ID), slog.String("event_type", evt.EventType))
		return nil
	}
	return idx.store.Write(ctx, Entry{
		EventID:     evt.ID,
		EventType:   evt.EventType,
		OccurredAt:  evt.OccurredAt,
		PortfolioID: evt.PortfolioID,
		Summary:     evt.Summary,
		Payload:     evt.Payload,
	})
}
