// Package activity keeps the event history of each portfolio: every snapshot
// upload and every digest, newest first.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry is one recorded domain event.
type Entry struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	PortfolioID string          `json:"portfolio_id"`
	Summary     string          `json:"summary"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// QueryOptions controls filtering and pagination for portfolio history.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	EventTypes []string
	Limit      int    // default 100, max 500
	Cursor     string // occurred_at of the last entry of the previous page
}

// DefaultQueryOptions returns QueryOptions with the default page size.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 100}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

// Store is the interface for reading and writing history entries.
type Store interface {
	Write(ctx context.Context, e Entry) error

	// Query returns a portfolio's entries newest first.
	Query(ctx context.Context, portfolioID string, opts QueryOptions) (entries []Entry, nextCursor string, totalCount int, err error)
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// SQLiteStore implements Store on a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the activity_entries table and its portfolio index.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activity_entries (
			event_id     TEXT PRIMARY KEY,
			event_type   TEXT NOT NULL,
			occurred_at  TEXT NOT NULL,
			portfolio_id TEXT NOT NULL,
			summary      TEXT NOT NULL,
			payload      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_activity_portfolio_time
			ON activity_entries (portfolio_id, occurred_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating activity_entries: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Write(ctx context.Context, e Entry) error {
	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_entries (event_id, event_type, occurred_at, portfolio_id, summary, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		e.EventID, e.EventType, formatTime(e.OccurredAt), e.PortfolioID, e.Summary, payload)
	if err != nil {
		return fmt.Errorf("writing activity entry %s: %w", e.EventID, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, portfolioID string, opts QueryOptions) ([]Entry, string, int, error) {
	limit := opts.limit()

	conditions := []string{"portfolio_id = ?"}
	args := []any{portfolioID}
	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, formatTime(*opts.Since))
	}
	if opts.Until != nil {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, formatTime(*opts.Until))
	}
	if len(opts.EventTypes) > 0 {
		conditions = append(conditions,
			fmt.Sprintf("event_type IN (%s)", strings.TrimSuffix(strings.Repeat("?, ", len(opts.EventTypes)), ", ")))
		for _, et := range opts.EventTypes {
			args = append(args, et)
		}
	}
	where := strings.Join(conditions, " AND ")

	// The total ignores the cursor so every page reports the same count.
	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_entries WHERE "+where, args...).Scan(&totalCount); err != nil {
		return nil, "", 0, fmt.Errorf("counting activity entries: %w", err)
	}

	if opts.Cursor != "" {
		if cursorTime, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			conditions = append(conditions, "occurred_at < ?")
			args = append(args, formatTime(cursorTime))
			where = strings.Join(conditions, " AND ")
		}
	}

	query := `SELECT event_id, event_type, occurred_at, portfolio_id, summary, payload
		FROM activity_entries
		WHERE ` + where + `
		ORDER BY occurred_at DESC, event_id
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit+1)...) // one extra for the cursor
	if err != nil {
		return nil, "", 0, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var occurred string
		var payload sql.NullString
		if err := rows.Scan(&e.EventID, &e.EventType, &occurred, &e.PortfolioID, &e.Summary, &payload); err != nil {
			return nil, "", 0, fmt.Errorf("scanning activity entry: %w", err)
		}
		if e.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, "", 0, fmt.Errorf("parsing occurred_at of %s: %w", e.EventID, err)
		}
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", 0, err
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return entries, nextCursor, totalCount, nil
}
