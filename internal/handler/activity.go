package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/rentmetrics/internal/activity"
)

// ActivityHandler serves a portfolio's event history.
type ActivityHandler struct {
	store  activity.Store
	logger *slog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(store activity.Store, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{store: store, logger: logger}
}

// HandleGetActivity returns snapshot uploads and digests, newest first.
// GET /v1/portfolios/{id}/activity
func (h *ActivityHandler) HandleGetActivity(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")
	if portfolioID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "portfolio id is required")
		return
	}

	opts := activity.DefaultQueryOptions()
	q := r.URL.Query()
	if s := q.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			opts.Since = &t
		}
	}
	if u := q.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			opts.Until = &t
		}
	}
	if types := q.Get("types"); types != "" {
		opts.EventTypes = strings.Split(types, ",")
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			opts.Limit = min(n, 500)
		}
	}
	opts.Cursor = q.Get("cursor")

	entries, nextCursor, totalCount, err := h.store.Query(r.Context(), portfolioID, opts)
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}

	writeJSON(w, http.StatusOK, struct {
		Activities []activity.Entry `json:"activities"`
		NextCursor string           `json:"next_cursor,omitempty"`
		TotalCount int              `json:"total_count"`
	}{
		Activities: entries,
		NextCursor: nextCursor,
		TotalCount: totalCount,
	})
}
