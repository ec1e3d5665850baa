package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/rentmetrics/internal/event"
)

var base = time.Date(2026, time.March, 1, 7, 0, 0, 0, time.UTC)

func testEntry(portfolioID, eventType string, day int) Entry {
	return Entry{
		EventID:     fmt.Sprintf("%s-%s-%d", portfolioID, eventType, day),
		EventType:   eventType,
		OccurredAt:  base.AddDate(0, 0, day),
		PortfolioID: portfolioID,
		Summary:     fmt.Sprintf("%s on day %d", eventType, day),
		Payload:     json.RawMessage(`{"day":` + fmt.Sprint(day) + `}`),
	}
}

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "activity.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	s := NewSQLiteStore(db)
	if err := s.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": openSQLite(t),
	}
}

func TestStore_WriteAndQuery(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, e := range []Entry{
				testEntry("demo", event.SnapshotUpdated, 1),
				testEntry("demo", event.DigestCompleted, 2),
				testEntry("other", event.SnapshotUpdated, 3),
			} {
				if err := store.Write(ctx, e); err != nil {
					t.Fatalf("Write: %v", err)
				}
			}
			// Writing the same event twice is a no-op.
			if err := store.Write(ctx, testEntry("demo", event.SnapshotUpdated, 1)); err != nil {
				t.Fatalf("Write duplicate: %v", err)
			}

			results, cursor, total, err := store.Query(ctx, "demo", DefaultQueryOptions())
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if total != 2 || len(results) != 2 {
				t.Fatalf("total = %d, results = %d, want 2 and 2", total, len(results))
			}
			if cursor != "" {
				t.Errorf("cursor = %q, want none", cursor)
			}
			if results[0].EventType != event.DigestCompleted {
				t.Errorf("first = %s, want newest (digest) first", results[0].EventType)
			}
			if !results[1].OccurredAt.Equal(base.AddDate(0, 0, 1)) {
				t.Errorf("OccurredAt = %v, want %v", results[1].OccurredAt, base.AddDate(0, 0, 1))
			}
			if string(results[1].Payload) != `{"day":1}` {
				t.Errorf("Payload = %s", results[1].Payload)
			}
		})
	}
}

func TestStore_Filters(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for day := 0; day < 10; day++ {
				kind := event.SnapshotUpdated
				if day%2 == 1 {
					kind = event.DigestCompleted
				}
				store.Write(ctx, testEntry("demo", kind, day))
			}

			opts := DefaultQueryOptions()
			opts.EventTypes = []string{event.DigestCompleted}
			results, _, total, err := store.Query(ctx, "demo", opts)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if total != 5 || len(results) != 5 {
				t.Errorf("digests: total = %d, results = %d, want 5", total, len(results))
			}

			since, until := base.AddDate(0, 0, 3), base.AddDate(0, 0, 6)
			opts = QueryOptions{Since: &since, Until: &until}
			results, _, total, err = store.Query(ctx, "demo", opts)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if total != 4 || len(results) != 4 {
				t.Errorf("window: total = %d, results = %d, want 4", total, len(results))
			}
		})
	}
}

func TestStore_Pagination(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for day := 0; day < 5; day++ {
				store.Write(ctx, testEntry("demo", event.SnapshotUpdated, day))
			}

			opts := QueryOptions{Limit: 2}
			var seen []string
			for page := 0; page < 5; page++ {
				results, cursor, total, err := store.Query(ctx, "demo", opts)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				if total != 5 {
					t.Errorf("page %d total = %d, want 5", page, total)
				}
				for _, e := range results {
					seen = append(seen, e.EventID)
				}
				if cursor == "" {
					break
				}
				opts.Cursor = cursor
			}
			if len(seen) != 5 {
				t.Fatalf("paged through %d entries, want 5: %v", len(seen), seen)
			}
			if seen[0] != "demo-snapshot_updated-4" || seen[4] != "demo-snapshot_updated-0" {
				t.Errorf("order = %v, want newest first", seen)
			}
		})
	}
}

func TestIndexer_HandleEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	idx := NewIndexer(store, nil)

	evt := event.NewSnapshotUpdated("demo", event.SnapshotUpdatedPayload{Tenants: 6})
	if err := idx.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if err := idx.HandleEvent(ctx, event.DomainEvent{ID: "orphan", EventType: "x"}); err != nil {
		t.Fatalf("HandleEvent without portfolio: %v", err)
	}

	results, _, total, _ := store.Query(ctx, "demo", DefaultQueryOptions())
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if results[0].EventID != evt.ID || results[0].Summary != evt.Summary {
		t.Errorf("entry = %+v, want copy of %+v", results[0], evt)
	}
}
