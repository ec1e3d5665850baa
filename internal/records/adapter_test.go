package records

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

func TestDecodeTenants_NestedUserAndUnit(t *testing.T) {
	data := []byte(`[{
		"id": 42,
		"user": {"id": 7, "first_name": "Amina", "last_name": "Wanjiru", "phone_number": "0712345678", "email": "amina@example.com"},
		"unit": {"id": "u-9", "unit_number": "B2", "rent_amount": "18000.00", "property": {"id": "p-1", "name": "Riverside"}},
		"lease_end_date": "2026-06-30",
		"preferred_language": "Kiswahili",
		"lease_renewed": "true"
	}]`)

	got, err := NewAdapter(nil).DecodeTenants(data)
	require.NoError(t, err)
	require.Len(t, got, 1)

	tn := got[0]
	assert.Equal(t, "42", tn.ID)
	assert.Equal(t, "7", tn.UserID)
	assert.Equal(t, "u-9", tn.UnitID)
	assert.Equal(t, "B2", tn.UnitNumber)
	assert.Equal(t, "p-1", tn.PropertyID)
	assert.Equal(t, "Riverside", tn.PropertyName)
	assert.Equal(t, "Amina Wanjiru", tn.Name)
	assert.Equal(t, "0712345678", tn.Phone)
	assert.Equal(t, "amina@example.com", tn.Email)
	assert.Equal(t, types.Swahili, tn.PreferredLanguage)
	assert.True(t, tn.RenewalConfirmed)
	assert.True(t, decimal.NewFromInt(18000).Equal(tn.MonthlyRent))
	require.NotNil(t, tn.LeaseEnd)
	assert.Equal(t, time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), *tn.LeaseEnd)
	assert.Nil(t, tn.LeaseStart)
}

func TestDecodeTenants_CamelCaseFlat(t *testing.T) {
	data := []byte(`{"results": [{
		"id": "t1", "fullName": "Juma Hamisi", "phoneNumber": "+255 754 000 111",
		"unitId": "u1", "unitNumber": "7", "propertyName": "Kilimani Court",
		"leaseEnd": "2026-09-01T00:00:00Z"
	}]}`)

	got, err := NewAdapter(nil).DecodeTenants(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Juma Hamisi", got[0].Name)
	assert.Equal(t, "+255 754 000 111", got[0].Phone)
	assert.Equal(t, "u1", got[0].UnitID)
	assert.Equal(t, "Kilimani Court", got[0].PropertyName)
	assert.Equal(t, types.Language(""), got[0].PreferredLanguage)
	require.NotNil(t, got[0].LeaseEnd)
}

func TestDecodePayments_Aliases(t *testing.T) {
	data := []byte(`[
		{"id": "p1", "tenant": "t1", "amount": "15000.50", "dueDate": "2026-03-01", "paymentDate": "2026-03-04T08:30:00Z", "payment_status": "Completed", "payment_type": "RENT"},
		{"id": "p2", "tenant_id": "t1", "amount": 2000, "due_date": "2026-03-01", "created_at": "2026-02-20 09:00:00", "status": "pending", "type": "water"},
		{"id": "p3", "unit": {"id": "u1"}, "amount": "not money", "due_date": "soon"}
	]`)

	got, err := NewAdapter(nil).DecodePayments(data)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "t1", got[0].TenantID)
	assert.True(t, decimal.RequireFromString("15000.50").Equal(got[0].Amount))
	assert.Equal(t, types.PaymentCompleted, got[0].Status)
	assert.Equal(t, types.PaymentTypeRent, got[0].Type)
	require.NotNil(t, got[0].PaidAt)
	assert.Equal(t, 4, got[0].PaidAt.Day())

	assert.Equal(t, types.PaymentTypeWater, got[1].Type)
	require.NotNil(t, got[1].PaidAt, "created_at is the last paid-date fallback")

	assert.Equal(t, "u1", got[2].UnitID)
	assert.True(t, got[2].Amount.IsZero())
	assert.Nil(t, got[2].DueDate, "bad timestamps become nil")
	assert.True(t, got[2].IsRent())
}

func TestDecodeMaintenance_Aliases(t *testing.T) {
	data := []byte(`[
		{"id": 1, "unit": "u1", "priority": "URGENT", "status": "In Progress", "reported_date": "2026-03-01T10:00:00Z",
		 "acknowledged_at": "2026-03-01T10:30:00Z", "assigned_to": {"id": "s1", "name": "Grace"}, "issue_type": "Plumbing"},
		{"id": 2, "unitId": "u2", "priority": "low", "status": "completed", "createdAt": "2026-03-01T10:00:00Z",
		 "completed_date": "2026-03-02T10:00:00Z", "assignedTo": "s2"}
	]`)

	got, err := NewAdapter(nil).DecodeMaintenance(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, types.PriorityUrgent, got[0].Priority)
	assert.Equal(t, types.RequestInProgress, got[0].Status)
	assert.Equal(t, "s1", got[0].AssignedTo)
	assert.Equal(t, "plumbing", got[0].Category)
	require.NotNil(t, got[0].AcknowledgedAt)

	assert.Equal(t, "u2", got[1].UnitID)
	assert.Equal(t, "s2", got[1].AssignedTo)
	assert.False(t, got[1].ReportedAt.IsZero())
	require.NotNil(t, got[1].CompletedAt)
}

func TestDecodeStaff(t *testing.T) {
	data := []byte(`[{"id": "s1", "user": {"id": 9, "first_name": "Grace", "last_name": "Wambui"}, "department": "maintenance"}]`)
	got, err := NewAdapter(nil).DecodeStaff(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.Staff{ID: "s1", UserID: "9", Name: "Grace Wambui", Department: "maintenance"}, got[0])
}

func TestAdapter_DropsRecordsWithoutID(t *testing.T) {
	var buf bytes.Buffer
	a := NewAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	got, err := a.DecodePayments([]byte(`[{"amount": 100}, {"id": "", "amount": 5}, {"id": "p1"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Contains(t, buf.String(), "dropping record without id")
}

func TestAdapter_MalformedJSON(t *testing.T) {
	a := NewAdapter(nil)
	_, err := a.DecodeTenants([]byte(`[{"id": `))
	assert.Error(t, err)
	_, err = a.DecodeStaff([]byte(`"staff"`))
	assert.Error(t, err)
	_, err = a.DecodeSnapshot([]byte(`[]`))
	assert.Error(t, err)
}

func TestDecodeSnapshot(t *testing.T) {
	data := []byte(`{
		"tenants": [{"id": "t1", "name": "Amina"}],
		"payments": [{"id": "p1", "tenant_id": "t1", "amount": 10}],
		"maintenance": [{"id": "m1", "unit_id": "u1", "priority": "high"}],
		"staff": [{"id": "s1", "name": "Grace"}]
	}`)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, snap.Tenants, 1)
	assert.Len(t, snap.Payments, 1)
	assert.Len(t, snap.Maintenance, 1)
	assert.Len(t, snap.Staff, 1)
	assert.Equal(t, "Amina", snap.Tenants[0].Name)
}

func TestDecodeSnapshot_MissingListsAreEmpty(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, snap.Tenants)
	assert.Empty(t, snap.Payments)
	assert.Empty(t, snap.Maintenance)
	assert.Empty(t, snap.Staff)
}
