package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// The records API is not consistent about field names: the same value shows
// up snake_cased, camelCased, or nested under a related object. Each field
// below lists the paths tried, in order; the first non-empty one wins.
var (
	tenantFields = struct {
		userID, unitID, unitNumber, propertyID, propertyName []string
		phone, email, language, leaseStart, leaseEnd          []string
		renewal, rent                                         []string
	}{
		userID:       []string{"user_id", "userId", "user.id"},
		unitID:       []string{"unit_id", "unitId", "unit.id", "unit"},
		unitNumber:   []string{"unit.unit_number", "unit.unitNumber", "unit_number", "unitNumber"},
		propertyID:   []string{"unit.property.id", "unit.property_id", "property_id", "propertyId", "property.id"},
		propertyName: []string{"unit.property.name", "unit.property_name", "property_name", "propertyName", "property.name"},
		phone:        []string{"user.phone_number", "user.phoneNumber", "user.phone", "phone_number", "phoneNumber", "phone"},
		email:        []string{"user.email", "email"},
		language:     []string{"preferred_language", "preferredLanguage", "user.preferred_language", "language"},
		leaseStart:   []string{"lease_start", "leaseStart", "lease_start_date", "leaseStartDate", "move_in_date"},
		leaseEnd:     []string{"lease_end", "leaseEnd", "lease_end_date", "leaseEndDate"},
		renewal:      []string{"renewal_confirmed", "renewalConfirmed", "lease_renewed"},
		rent:         []string{"monthly_rent", "monthlyRent", "rent_amount", "unit.rent_amount", "unit.rentAmount"},
	}

	paymentFields = struct {
		tenantID, unitID, amount, due, paid, status, kind []string
	}{
		tenantID: []string{"tenant_id", "tenantId", "tenant.id", "tenant"},
		unitID:   []string{"unit_id", "unitId", "unit.id", "unit"},
		amount:   []string{"amount", "amount_due"},
		due:      []string{"due_date", "dueDate"},
		paid:     []string{"payment_date", "paymentDate", "paid_at", "created_at", "createdAt"},
		status:   []string{"payment_status", "paymentStatus", "status"},
		kind:     []string{"payment_type", "paymentType", "type"},
	}

	maintenanceFields = struct {
		unitID, tenantID, category, priority, status []string
		reported, acknowledged, completed, assigned  []string
	}{
		unitID:       []string{"unit_id", "unitId", "unit.id", "unit"},
		tenantID:     []string{"tenant_id", "tenantId", "tenant.id", "tenant"},
		category:     []string{"category", "issue_type", "issueType"},
		priority:     []string{"priority"},
		status:       []string{"status"},
		reported:     []string{"reported_date", "reportedDate", "reported_at", "created_at", "createdAt"},
		acknowledged: []string{"acknowledged_date", "acknowledgedDate", "acknowledged_at", "first_response_at", "started_date"},
		completed:    []string{"completed_date", "completedDate", "completed_at", "resolved_at"},
		assigned:     []string{"assigned_to.id", "assignedTo.id", "assigned_to", "assignedTo"},
	}

	staffFields = struct {
		userID, department []string
	}{
		userID:     []string{"user_id", "userId", "user.id", "user"},
		department: []string{"department", "role"},
	}
)

// Adapter maps raw API records onto the normalized types.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter creates an Adapter. A nil logger uses slog.Default().
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// DecodeSnapshot decodes a full snapshot with the default logger.
func DecodeSnapshot(data []byte) (types.Snapshot, error) {
	return NewAdapter(nil).DecodeSnapshot(data)
}

// DecodeSnapshot decodes {tenants, payments, maintenance_requests, staff}.
// Missing lists are empty. "maintenance" and "maintenanceRequests" are
// accepted for the request list.
func (a *Adapter) DecodeSnapshot(data []byte) (types.Snapshot, error) {
	var raw map[string]any
	if err := unmarshal(data, &raw); err != nil {
		return types.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	list := func(keys ...string) []map[string]any {
		for _, k := range keys {
			if v, ok := raw[k]; ok && v != nil {
				return objects(v)
			}
		}
		return nil
	}
	snap := types.Snapshot{
		Tenants:     a.tenants(list("tenants")),
		Payments:    a.payments(list("payments")),
		Maintenance: a.maintenance(list("maintenance_requests", "maintenanceRequests", "maintenance")),
		Staff:       a.staff(list("staff")),
	}
	return snap, nil
}

// DecodeTenants decodes a JSON array, or a paginated {results: [...]} page,
// of tenant records.
func (a *Adapter) DecodeTenants(data []byte) ([]types.Tenant, error) {
	objs, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("decoding tenants: %w", err)
	}
	return a.tenants(objs), nil
}

// DecodePayments decodes a list of payment records.
func (a *Adapter) DecodePayments(data []byte) ([]types.Payment, error) {
	objs, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("decoding payments: %w", err)
	}
	return a.payments(objs), nil
}

// DecodeMaintenance decodes a list of maintenance request records.
func (a *Adapter) DecodeMaintenance(data []byte) ([]types.MaintenanceRequest, error) {
	objs, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("decoding maintenance requests: %w", err)
	}
	return a.maintenance(objs), nil
}

// DecodeStaff decodes a list of staff records.
func (a *Adapter) DecodeStaff(data []byte) ([]types.Staff, error) {
	objs, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("decoding staff: %w", err)
	}
	return a.staff(objs), nil
}

func (a *Adapter) tenants(objs []map[string]any) []types.Tenant {
	out := make([]types.Tenant, 0, len(objs))
	f := tenantFields
	for _, o := range objs {
		id := str(o, "id")
		if id == "" {
			a.drop("tenant", o)
			continue
		}
		out = append(out, types.Tenant{
			ID:                id,
			UserID:            str(o, f.userID...),
			UnitID:            str(o, f.unitID...),
			UnitNumber:        str(o, f.unitNumber...),
			PropertyID:        str(o, f.propertyID...),
			PropertyName:      str(o, f.propertyName...),
			Name:              personName(o),
			Phone:             str(o, f.phone...),
			Email:             str(o, f.email...),
			PreferredLanguage: language(str(o, f.language...)),
			LeaseStart:        timestamp(o, f.leaseStart...),
			LeaseEnd:          timestamp(o, f.leaseEnd...),
			RenewalConfirmed:  boolean(o, f.renewal...),
			MonthlyRent:       amount(o, f.rent...),
		})
	}
	return out
}

func (a *Adapter) payments(objs []map[string]any) []types.Payment {
	out := make([]types.Payment, 0, len(objs))
	f := paymentFields
	for _, o := range objs {
		id := str(o, "id")
		if id == "" {
			a.drop("payment", o)
			continue
		}
		out = append(out, types.Payment{
			ID:       id,
			TenantID: str(o, f.tenantID...),
			UnitID:   str(o, f.unitID...),
			Amount:   amount(o, f.amount...),
			DueDate:  timestamp(o, f.due...),
			PaidAt:   timestamp(o, f.paid...),
			Status:   types.PaymentStatus(enum(str(o, f.status...))),
			Type:     types.PaymentType(enum(str(o, f.kind...))),
		})
	}
	return out
}

func (a *Adapter) maintenance(objs []map[string]any) []types.MaintenanceRequest {
	out := make([]types.MaintenanceRequest, 0, len(objs))
	f := maintenanceFields
	for _, o := range objs {
		id := str(o, "id")
		if id == "" {
			a.drop("maintenance request", o)
			continue
		}
		r := types.MaintenanceRequest{
			ID:             id,
			UnitID:         str(o, f.unitID...),
			TenantID:       str(o, f.tenantID...),
			Category:       enum(str(o, f.category...)),
			Priority:       types.Priority(enum(str(o, f.priority...))),
			Status:         types.RequestStatus(enum(str(o, f.status...))),
			AcknowledgedAt: timestamp(o, f.acknowledged...),
			CompletedAt:    timestamp(o, f.completed...),
			AssignedTo:     str(o, f.assigned...),
		}
		if t := timestamp(o, f.reported...); t != nil {
			r.ReportedAt = *t
		}
		out = append(out, r)
	}
	return out
}

func (a *Adapter) staff(objs []map[string]any) []types.Staff {
	out := make([]types.Staff, 0, len(objs))
	f := staffFields
	for _, o := range objs {
		id := str(o, "id")
		if id == "" {
			a.drop("staff", o)
			continue
		}
		out = append(out, types.Staff{
			ID:         id,
			UserID:     str(o, f.userID...),
			Name:       personName(o),
			Department: str(o, f.department...),
		})
	}
	return out
}

func (a *Adapter) drop(kind string, o map[string]any) {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	a.logger.Warn("records: dropping record without id",
		slog.String("kind", kind), slog.Any("fields", keys))
}

func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeList accepts a bare array or a {results|data: [...]} page.
func decodeList(data []byte) ([]map[string]any, error) {
	var v any
	if err := unmarshal(data, &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []any:
		return objects(t), nil
	case map[string]any:
		for _, k := range []string{"results", "data"} {
			if inner, ok := t[k].([]any); ok {
				return objects(inner), nil
			}
		}
		return nil, errors.New("expected a list or a {results: [...]} page")
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func objects(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// lookup follows a dotted path through nested objects.
func lookup(o map[string]any, path string) any {
	var cur any = o
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// str returns the first path holding a non-empty scalar, as a string.
func str(o map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := lookup(o, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func boolean(o map[string]any, paths ...string) bool {
	for _, p := range paths {
		switch v := lookup(o, p).(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		}
	}
	return false
}

// amount parses a number or numeric string. Unparseable values are zero.
func amount(o map[string]any, paths ...string) decimal.Decimal {
	s := str(o, paths...)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timestamp parses the first path holding a recognizable time. Zone-less
// values are read as UTC; unparseable values are nil.
func timestamp(o map[string]any, paths ...string) *time.Time {
	for _, p := range paths {
		s := str(o, p)
		if s == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

func personName(o map[string]any) string {
	for _, prefix := range []string{"user.", ""} {
		first := str(o, prefix+"first_name", prefix+"firstName")
		last := str(o, prefix+"last_name", prefix+"lastName")
		if name := strings.TrimSpace(first + " " + last); name != "" {
			return name
		}
	}
	return str(o, "user.full_name", "user.name", "full_name", "fullName", "name")
}

// enum lowercases v and folds spaces and hyphens to underscores, so
// "In Progress" and "in-progress" both become "in_progress".
func enum(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(v)
}

func language(v string) types.Language {
	switch enum(v) {
	case "sw", "swahili", "kiswahili":
		return types.Swahili
	case "":
		return ""
	default:
		return types.English
	}
}
