package portfolio

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

func TestNewIndex_AttributesPayments(t *testing.T) {
	tenants := []types.Tenant{
		{ID: "t1", UnitID: "u1"},
		{ID: "t2", UnitID: "u2"},
	}
	payments := []types.Payment{
		{ID: "p1", TenantID: "t1"},
		{ID: "p2", UnitID: "u2"},
		{ID: "p3", TenantID: "gone", UnitID: "u1"},
		{ID: "p4", TenantID: "gone"},
		{ID: "p5"},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ix := NewIndex(tenants, payments, nil, logger)

	require.Len(t, ix.Payments(0), 1)
	assert.Equal(t, "p1", ix.Payments(0)[0].ID)
	require.Len(t, ix.Payments(1), 1)
	assert.Equal(t, "p2", ix.Payments(1)[0].ID)
	assert.Equal(t, 3, ix.Orphans)
	assert.Contains(t, buf.String(), "payment_id=p3", "a former tenant's payment is not charged to the unit's new occupant")
	assert.Contains(t, buf.String(), "payment_id=p4")
	assert.Contains(t, buf.String(), "payment_id=p5")
}

func TestIndex_Requests(t *testing.T) {
	tenants := []types.Tenant{
		{ID: "t1", UnitID: "u1"},
		{ID: "t2"},
		{ID: "t3", UnitID: "u1"},
	}
	requests := []types.MaintenanceRequest{
		{ID: "r1", UnitID: "u1"},
		{ID: "r2", TenantID: "t2"},
		{ID: "r3", TenantID: "t1"},
		{ID: "r4", UnitID: "u9"},
	}
	ix := NewIndex(tenants, nil, requests, nil)

	ids := func(rs []types.MaintenanceRequest) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"r1", "r3"}, ids(ix.Requests(0)))
	assert.Equal(t, []string{"r2"}, ids(ix.Requests(1)))
	assert.Equal(t, []string{"r1"}, ids(ix.Requests(2)), "co-tenants share the unit's requests")
}

func TestIndex_Empty(t *testing.T) {
	ix := NewIndex([]types.Tenant{{ID: "t1"}}, nil, nil, nil)
	assert.Empty(t, ix.Payments(0))
	assert.Empty(t, ix.Requests(0))
}
