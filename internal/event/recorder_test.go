package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

type capture struct {
	events []DomainEvent
}

func (c *capture) Publish(_ context.Context, evt DomainEvent) {
	c.events = append(c.events, evt)
}

func TestSnapshotRecorder_RecordPublishesAfterWrite(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemoryStore()
	bus := &capture{}
	rec := NewSnapshotRecorder(store)
	rec.SetPublisher(bus)

	snap := types.Snapshot{
		Tenants:  []types.Tenant{{ID: "t1"}, {ID: "t2"}},
		Payments: []types.Payment{{ID: "p1"}},
	}
	if _, err := rec.Record(ctx, "alpha", snap); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if _, err := store.Get(ctx, "alpha"); err != nil {
		t.Fatalf("snapshot not stored: %v", err)
	}
	if len(bus.events) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.events))
	}
	evt := bus.events[0]
	if evt.EventType != SnapshotUpdated {
		t.Errorf("EventType = %q, want %q", evt.EventType, SnapshotUpdated)
	}
	if evt.PortfolioID != "alpha" {
		t.Errorf("PortfolioID = %q, want alpha", evt.PortfolioID)
	}
	if evt.ID == "" {
		t.Errorf("event has no id")
	}
	var p SnapshotUpdatedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Tenants != 2 || p.Payments != 1 {
		t.Errorf("payload = %+v, want 2 tenants and 1 payment", p)
	}
}

func TestSnapshotRecorder_NoPublisher(t *testing.T) {
	rec := NewSnapshotRecorder(records.NewMemoryStore())
	if _, err := rec.Record(context.Background(), "alpha", types.Snapshot{}); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestNewDigestCompleted(t *testing.T) {
	evt := NewDigestCompleted("demo", DigestCompletedPayload{OverdueTenants: 3, OverdueAmount: "KES 54,000", HighRiskTenants: 1})
	if evt.EventType != DigestCompleted {
		t.Errorf("EventType = %q, want %q", evt.EventType, DigestCompleted)
	}
	want := "Digest: 3 tenants overdue (KES 54,000), 1 high risk, 0 critical vacancies"
	if evt.Summary != want {
		t.Errorf("Summary = %q, want %q", evt.Summary, want)
	}
}
