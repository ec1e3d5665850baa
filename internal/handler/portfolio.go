package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/event"
	"github.com/matthewbaird/rentmetrics/internal/records"
)

// PortfolioHandler stores snapshots per portfolio and serves their dashboards.
type PortfolioHandler struct {
	store    records.Store
	recorder *event.SnapshotRecorder
	builder  *dashboard.Builder
	adapter  *records.Adapter
	logger   *slog.Logger
	now      func() time.Time
}

func NewPortfolioHandler(store records.Store, recorder *event.SnapshotRecorder, builder *dashboard.Builder, logger *slog.Logger) *PortfolioHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioHandler{
		store:    store,
		recorder: recorder,
		builder:  builder,
		adapter:  records.NewAdapter(logger),
		logger:   logger,
		now:      time.Now,
	}
}

type snapshotResponse struct {
	PortfolioID string    `json:"portfolio_id"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tenants     int       `json:"tenants"`
	Payments    int       `json:"payments"`
	Maintenance int       `json:"maintenance"`
	Staff       int       `json:"staff"`
}

// HandleListPortfolios lists stored portfolio ids.
// GET /v1/portfolios
func (h *PortfolioHandler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.List(r.Context())
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": ids})
}

// HandlePutSnapshot replaces a portfolio's snapshot and notifies subscribers.
// PUT /v1/portfolios/{id}/snapshot
func (h *PortfolioHandler) HandlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "portfolio id is required")
		return
	}
	snap, ok := decodeSnapshot(w, r, h.adapter)
	if !ok {
		return
	}
	p, err := h.recorder.Record(r.Context(), id, snap)
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		PortfolioID: p.ID,
		UpdatedAt:   p.UpdatedAt,
		Tenants:     len(snap.Tenants),
		Payments:    len(snap.Payments),
		Maintenance: len(snap.Maintenance),
		Staff:       len(snap.Staff),
	})
}

// HandleGetDashboard computes the dashboard for a stored snapshot.
// GET /v1/portfolios/{id}/dashboard
func (h *PortfolioHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	now, ok := parseNow(w, r, h.now)
	if !ok {
		return
	}
	p, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.builder.Build(p.Snapshot, now))
}
