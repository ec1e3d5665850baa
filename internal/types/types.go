// Package types provides the normalized Go shapes of the operational records
// the metric engines read. The records API delivers these with inconsistent
// field names; internal/records maps them into these structs before any
// engine sees them.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is an occupant of a unit, with its lease dates and contact details.
type Tenant struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id,omitempty"`
	UnitID            string          `json:"unit_id,omitempty"`
	UnitNumber        string          `json:"unit_number,omitempty"`
	PropertyID        string          `json:"property_id,omitempty"`
	PropertyName      string          `json:"property_name,omitempty"`
	Name              string          `json:"name"`
	Phone             string          `json:"phone,omitempty"`
	Email             string          `json:"email,omitempty"`
	PreferredLanguage Language        `json:"preferred_language,omitempty"` // "en" or "sw"
	LeaseStart        *time.Time      `json:"lease_start,omitempty"`
	LeaseEnd          *time.Time      `json:"lease_end,omitempty"`
	RenewalConfirmed  bool            `json:"renewal_confirmed"`
	MonthlyRent       decimal.Decimal `json:"monthly_rent"`
}

// DisplayName returns the tenant name, or a placeholder when the record has none.
func (t Tenant) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return "Tenant"
}

// Language returns the tenant's preferred message language, defaulting to English.
func (t Tenant) Language() Language {
	if t.PreferredLanguage == Swahili {
		return Swahili
	}
	return English
}

// Payment is a single charge owed by a tenant, paid or not.
type Payment struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenant_id,omitempty"`
	UnitID   string          `json:"unit_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  *time.Time      `json:"due_date,omitempty"`
	PaidAt   *time.Time      `json:"paid_at,omitempty"`
	Status   PaymentStatus   `json:"status"`
	Type     PaymentType     `json:"type"`
}

// IsRent reports whether the payment is a rent charge. Records with no type
// are treated as rent.
func (p Payment) IsRent() bool {
	return p.Type == "" || p.Type == PaymentTypeRent
}

// IsSettled reports whether nothing is owed on the payment anymore.
func (p Payment) IsSettled() bool {
	switch p.Status {
	case PaymentCompleted, PaymentCancelled, PaymentRefunded:
		return true
	default:
		return false
	}
}

// PaidLate reports whether the payment was, or still is, late at now.
// A payment without a due date is never late.
func (p Payment) PaidLate(now time.Time) bool {
	if p.DueDate == nil {
		return false
	}
	due := *p.DueDate
	if p.Status == PaymentCompleted {
		if p.PaidAt == nil {
			return false
		}
		return DaysBetween(due, *p.PaidAt) > 0
	}
	if p.IsSettled() {
		return false
	}
	return DaysBetween(due, now) > 0
}

// MaintenanceRequest is a work order raised against a unit.
type MaintenanceRequest struct {
	ID             string        `json:"id"`
	UnitID         string        `json:"unit_id,omitempty"`
	TenantID       string        `json:"tenant_id,omitempty"`
	Category       string        `json:"category,omitempty"`
	Priority       Priority      `json:"priority"`
	Status         RequestStatus `json:"status"`
	ReportedAt     time.Time     `json:"reported_at"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	AssignedTo     string        `json:"assigned_to,omitempty"`
}

// IssueCategory returns the request category, or "general" when unset.
func (r MaintenanceRequest) IssueCategory() string {
	if r.Category == "" {
		return "general"
	}
	return r.Category
}

// Staff is a member of the maintenance or management team.
type Staff struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id,omitempty"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
}

// Snapshot is one portfolio's records at a point in time.
type Snapshot struct {
	Tenants     []Tenant             `json:"tenants"`
	Payments    []Payment            `json:"payments"`
	Maintenance []MaintenanceRequest `json:"maintenance_requests"`
	Staff       []Staff              `json:"staff"`
}

// DaysBetween returns the number of calendar days from a to b, negative when
// b is before a. Both times are compared as dates in b's location.
func DaysBetween(a, b time.Time) int {
	loc := b.Location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
