package eventbus

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/records"
)

// syncBuffer is a bytes.Buffer safe for the consumer goroutine to write to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestBus_DispatchesInOrder(t *testing.T) {
	b := New(8, nil)
	var got []string
	b.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		got = append(got, evt.PortfolioID)
		return nil
	}))
	b.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		b.Publish(context.Background(), event.DomainEvent{EventType: event.SnapshotUpdated, PortfolioID: id})
	}
	b.Stop()

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	var logs syncBuffer
	b := New(4, slog.New(slog.NewTextHandler(&logs, nil)))
	calls := 0
	b.Subscribe("broken", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	b.Subscribe("ok", HandlerFunc(func(context.Context, event.DomainEvent) error {
		calls++
		return nil
	}))
	b.Start(context.Background())
	b.Publish(context.Background(), event.DomainEvent{EventType: "x"})
	b.Stop()

	assert.Equal(t, 1, calls)
	assert.Contains(t, logs.String(), "handler=broken")
}

func TestBus_DropsWhenFullOrStopped(t *testing.T) {
	var logs syncBuffer
	b := New(1, slog.New(slog.NewTextHandler(&logs, nil)))
	// Not started: the second event has nowhere to go.
	b.Publish(context.Background(), event.DomainEvent{ID: "1"})
	b.Publish(context.Background(), event.DomainEvent{ID: "2"})
	assert.Contains(t, logs.String(), "buffer full")

	b.Start(context.Background())
	b.Stop()
	b.Publish(context.Background(), event.DomainEvent{ID: "3"})
	assert.Contains(t, logs.String(), "stopped")
}

func TestBus_DrainsOnCancel(t *testing.T) {
	b := New(8, nil)
	var mu sync.Mutex
	n := 0
	b.Subscribe("count", HandlerFunc(func(context.Context, event.DomainEvent) error {
		mu.Lock()
		n++
		mu.Unlock()
		return nil
	}))
	for i := 0; i < 3; i++ {
		b.Publish(context.Background(), event.DomainEvent{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Start(ctx)

	select {
	case <-b.done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not exit after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, n)
}

func TestAlertConsumer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)
	store := records.NewMemoryStore()
	require.NoError(t, records.SeedDemoData(ctx, store, now))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	c := NewAlertConsumer(store, dashboard.NewBuilder(nil, logger), logger)
	c.now = func() time.Time { return now }

	require.NoError(t, c.HandleEvent(ctx, event.DomainEvent{EventType: event.DigestCompleted, PortfolioID: records.DemoPortfolioID}))
	assert.Empty(t, logs.String())

	require.NoError(t, c.HandleEvent(ctx, event.DomainEvent{EventType: event.SnapshotUpdated, PortfolioID: records.DemoPortfolioID}))
	out := logs.String()
	assert.Contains(t, out, "alert: rent escalation")
	assert.Contains(t, out, "escalation=final")
	assert.Contains(t, out, "escalation=urgent")
	assert.Contains(t, out, "alert: critical vacancy risk")
	assert.Equal(t, 0, strings.Count(out, "escalation=firm"))

	err := c.HandleEvent(ctx, event.DomainEvent{EventType: event.SnapshotUpdated, PortfolioID: "missing"})
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestLogConsumer(t *testing.T) {
	var logs bytes.Buffer
	c := NewLogConsumer(slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, c.HandleEvent(context.Background(), event.NewSnapshotUpdated("demo", event.SnapshotUpdatedPayload{Tenants: 2})))
	assert.Contains(t, logs.String(), "event_type=snapshot_updated")
	assert.Contains(t, logs.String(), "portfolio_id=demo")
}
