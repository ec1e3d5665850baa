package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// SQLiteStore implements Store on a SQLite database, one JSON snapshot row
// per portfolio.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn (for example "file:rentmetrics.db")
// and creates the snapshot table if needed.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the portfolio_snapshots table.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			portfolio_id TEXT PRIMARY KEY,
			updated_at   TEXT NOT NULL,
			body         TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating portfolio_snapshots: %w", err)
	}
	return nil
}

// DB exposes the connection so other tables can share the database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, portfolioID string, snap types.Snapshot) (Portfolio, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return Portfolio{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	p := Portfolio{ID: portfolioID, UpdatedAt: time.Now().UTC(), Snapshot: snap}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (portfolio_id, updated_at, body)
		VALUES (?, ?, ?)
		ON CONFLICT (portfolio_id) DO UPDATE
			SET updated_at = excluded.updated_at, body = excluded.body`,
		portfolioID, p.UpdatedAt.Format(time.RFC3339Nano), string(body))
	if err != nil {
		return Portfolio{}, fmt.Errorf("writing snapshot %s: %w", portfolioID, err)
	}
	return p, nil
}

func (s *SQLiteStore) Get(ctx context.Context, portfolioID string) (Portfolio, error) {
	var updated, body string
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at, body FROM portfolio_snapshots WHERE portfolio_id = ?`, portfolioID,
	).Scan(&updated, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Portfolio{}, ErrNotFound
	}
	if err != nil {
		return Portfolio{}, fmt.Errorf("reading snapshot %s: %w", portfolioID, err)
	}

	p := Portfolio{ID: portfolioID}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Portfolio{}, fmt.Errorf("parsing updated_at for %s: %w", portfolioID, err)
	}
	if err := json.Unmarshal([]byte(body), &p.Snapshot); err != nil {
		return Portfolio{}, fmt.Errorf("decoding snapshot %s: %w", portfolioID, err)
	}
	return p, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT portfolio_id FROM portfolio_snapshots ORDER BY portfolio_id`)
	if err != nil {
		return nil, fmt.Errorf("listing portfolios: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning portfolio id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
