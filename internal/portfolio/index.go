// Package portfolio attributes a snapshot's payments and maintenance requests
// to the tenants they belong to, once per engine call.
package portfolio

import (
	"log/slog"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// Index groups records by tenant position in the slice it was built from.
type Index struct {
	tenants  []types.Tenant
	payments [][]types.Payment
	byUnit   map[string][]types.MaintenanceRequest
	byTenant map[string][]types.MaintenanceRequest

	// Orphans counts payments that matched no tenant and were skipped.
	Orphans int
}

// NewIndex attributes every payment to a tenant. A payment carrying a tenant
// id belongs to that tenant or to nobody; only payments without one fall back
// to the unit's tenant. Unmatched payments are logged and skipped. Requests
// are attached by unit, or by tenant id when they carry no unit.
func NewIndex(tenants []types.Tenant, payments []types.Payment, requests []types.MaintenanceRequest, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{
		tenants:  tenants,
		payments: make([][]types.Payment, len(tenants)),
		byUnit:   make(map[string][]types.MaintenanceRequest),
		byTenant: make(map[string][]types.MaintenanceRequest),
	}

	byID := make(map[string]int, len(tenants))
	byUnitID := make(map[string]int, len(tenants))
	for i, t := range tenants {
		if t.ID != "" {
			if _, dup := byID[t.ID]; !dup {
				byID[t.ID] = i
			}
		}
		if t.UnitID != "" {
			if _, dup := byUnitID[t.UnitID]; !dup {
				byUnitID[t.UnitID] = i
			}
		}
	}

	for _, p := range payments {
		var (
			i  int
			ok bool
		)
		if p.TenantID != "" {
			i, ok = byID[p.TenantID]
		} else if p.UnitID != "" {
			i, ok = byUnitID[p.UnitID]
		}
		if !ok {
			ix.Orphans++
			logger.Warn("portfolio: skipping payment that matches no tenant",
				slog.String("payment_id", p.ID),
				slog.String("tenant_id", p.TenantID),
				slog.String("unit_id", p.UnitID))
			continue
		}
		ix.payments[i] = append(ix.payments[i], p)
	}

	for _, r := range requests {
		switch {
		case r.UnitID != "":
			ix.byUnit[r.UnitID] = append(ix.byUnit[r.UnitID], r)
		case r.TenantID != "":
			ix.byTenant[r.TenantID] = append(ix.byTenant[r.TenantID], r)
		}
	}
	return ix
}

// Payments returns the payments attributed to tenant i.
func (ix *Index) Payments(i int) []types.Payment {
	return ix.payments[i]
}

// Requests returns the maintenance requests raised on tenant i's unit, plus
// any unit-less requests filed by the tenant.
func (ix *Index) Requests(i int) []types.MaintenanceRequest {
	t := ix.tenants[i]
	unit := ix.byUnit[t.UnitID]
	if t.UnitID == "" {
		unit = nil
	}
	own := ix.byTenant[t.ID]
	if t.ID == "" {
		own = nil
	}
	if len(own) == 0 {
		return unit
	}
	out := make([]types.MaintenanceRequest, 0, len(unit)+len(own))
	out = append(out, unit...)
	return append(out, own...)
}
