package event

import (
	"context"
	"fmt"

	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// SnapshotRecorder writes snapshots to a records.Store and, once the write
// succeeds, publishes SnapshotUpdated.
type SnapshotRecorder struct {
	store records.Store
	bus   Publisher
}

// NewSnapshotRecorder creates a SnapshotRecorder backed by store.
func NewSnapshotRecorder(store records.Store) *SnapshotRecorder {
	return &SnapshotRecorder{store: store}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *SnapshotRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Record stores snap as portfolioID's current snapshot.
func (r *SnapshotRecorder) Record(ctx context.Context, portfolioID string, snap types.Snapshot) (records.Portfolio, error) {
	p, err := r.store.Put(ctx, portfolioID, snap)
	if err != nil {
		return records.Portfolio{}, fmt.Errorf("recording snapshot: %w", err)
	}
	if r.bus != nil {
		r.bus.Publish(ctx, NewSnapshotUpdated(portfolioID, SnapshotUpdatedPayload{
			Tenants:     len(snap.Tenants),
			Payments:    len(snap.Payments),
			Maintenance: len(snap.Maintenance),
			Staff:       len(snap.Staff),
		}))
	}
	return p, nil
}
