package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/dashboard"
	"github.com/matthewbaird/rentmetrics/internal/records"
)

// MetricsHandler computes metrics over a snapshot posted in the request
// body. Nothing is stored.
type MetricsHandler struct {
	builder *dashboard.Builder
	adapter *records.Adapter
	logger  *slog.Logger
	now     func() time.Time
}

func NewMetricsHandler(builder *dashboard.Builder, logger *slog.Logger) *MetricsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsHandler{
		builder: builder,
		adapter: records.NewAdapter(logger),
		logger:  logger,
		now:     time.Now,
	}
}

// HandleConfig returns every policy table.
// GET /v1/metrics/config
func (h *MetricsHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.builder.Policy())
}

// HandleSLA grades staff against SLA targets.
// POST /v1/metrics/sla
func (h *MetricsHandler) HandleSLA(w http.ResponseWriter, r *http.Request) {
	now, ok := parseNow(w, r, h.now)
	if !ok {
		return
	}
	snap, ok := decodeSnapshot(w, r, h.adapter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.builder.SLA.CalculateSLASummary(snap.Staff, snap.Maintenance, now))
}

// HandleTenantRisk scores every tenant's payment risk.
// POST /v1/metrics/tenant-risk
func (h *MetricsHandler) HandleTenantRisk(w http.ResponseWriter, r *http.Request) {
	now, ok := parseNow(w, r, h.now)
	if !ok {
		return
	}
	snap, ok := decodeSnapshot(w, r, h.adapter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.builder.Risk.CalculateAllTenantRiskScores(snap.Tenants, snap.Payments, snap.Maintenance, now))
}

// HandleVacancy predicts move-outs, riskiest first.
// POST /v1/metrics/vacancy
func (h *MetricsHandler) HandleVacancy(w http.ResponseWriter, r *http.Request) {
	now, ok := parseNow(w, r, h.now)
	if !ok {
		return
	}
	snap, ok := decodeSnapshot(w, r, h.adapter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.builder.Vacancy.PredictAllVacancies(snap.Tenants, snap.Payments, snap.Maintenance, now))
}

// HandleRentChasing builds the rent-chasing summary with drafted messages.
// POST /v1/metrics/rent-chasing
func (h *MetricsHandler) HandleRentChasing(w http.ResponseWriter, r *http.Request) {
	now, ok := parseNow(w, r, h.now)
	if !ok {
		return
	}
	snap, ok := decodeSnapshot(w, r, h.adapter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.builder.Chasing.GenerateChasingSummary(snap.Tenants, snap.Payments, now))
}

// HandleDashboard computes every metric at once.
// POST /v1/metrics/dashboard
func (h *MetricsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	now, ok := parseNow(w, r, h.now)
	if !ok {
		return
	}
	snap, ok := decodeSnapshot(w, r, h.adapter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.builder.Build(snap, now))
}
