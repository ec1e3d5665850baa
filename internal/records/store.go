// Package records normalizes raw records-API payloads and keeps the latest
// snapshot of each portfolio.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// ErrNotFound is returned when no snapshot exists for a portfolio.
var ErrNotFound = errors.New("records: portfolio not found")

// Portfolio is a stored snapshot and when it was last replaced.
type Portfolio struct {
	ID        string         `json:"id"`
	UpdatedAt time.Time      `json:"updated_at"`
	Snapshot  types.Snapshot `json:"snapshot"`
}

// Store keeps one snapshot per portfolio. Put replaces any previous snapshot.
type Store interface {
	Put(ctx context.Context, portfolioID string, snap types.Snapshot) (Portfolio, error)
	Get(ctx context.Context, portfolioID string) (Portfolio, error)

	// List returns stored portfolio ids in ascending order.
	List(ctx context.Context) ([]string, error)
}
