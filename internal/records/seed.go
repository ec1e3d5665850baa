package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// DemoPortfolioID is the portfolio SeedDemoData writes.
const DemoPortfolioID = "demo"

var demoNamespace = uuid.MustParse("6f1c2a8e-4b7d-4e0a-9c3f-2d5b8e7a1c40")

// demoID returns a stable id so a reseeded demo keeps its links valid.
func demoID(kind, name string) string {
	return uuid.NewSHA1(demoNamespace, []byte(kind+"/"+name)).String()
}

// SeedDemoData stores a small portfolio relative to now: one tenant per
// chasing level, a lease about to lapse, a clean payer, and a maintenance
// team with mixed SLA records.
func SeedDemoData(ctx context.Context, store Store, now time.Time) error {
	snap := DemoSnapshot(now)
	if _, err := store.Put(ctx, DemoPortfolioID, snap); err != nil {
		return fmt.Errorf("seeding demo portfolio: %w", err)
	}
	return nil
}

// DemoSnapshot builds the demo records without storing them.
func DemoSnapshot(now time.Time) types.Snapshot {
	day := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}
	hours := func(t time.Time, h float64) *time.Time {
		v := t.Add(time.Duration(h * float64(time.Hour)))
		return &v
	}
	const property = "Riverside Apartments"
	rent := decimal.NewFromInt(18000)

	type demoTenant struct {
		name, unit, phone string
		lang              types.Language
		leaseEndDays      int
		renewed           bool
		overdueDays       []int // unpaid rent, days past due (negative: not yet due)
		lateHistory       int   // of the last six months, how many were paid late
	}
	scenarios := []demoTenant{
		{name: "Amina Wanjiru", unit: "A1", phone: "0712 345 678", lang: types.Swahili, leaseEndDays: 240, overdueDays: []int{-2}},
		{name: "Brian Otieno", unit: "A2", phone: "0722 111 222", leaseEndDays: 300, overdueDays: []int{2}, lateHistory: 1},
		{name: "Cynthia Mutua", unit: "A3", phone: "+254 733 444 555", leaseEndDays: 150, overdueDays: []int{6}, lateHistory: 2},
		{name: "David Kamau", unit: "B1", phone: "0700 987 654", lang: types.Swahili, leaseEndDays: 45, overdueDays: []int{11}, lateHistory: 3},
		{name: "Esther Njeri", unit: "B2", leaseEndDays: 20, overdueDays: []int{42, 12}, lateHistory: 5},
		{name: "Faith Achieng", unit: "B3", phone: "0711 000 111", leaseEndDays: 25, renewed: true},
	}

	var snap types.Snapshot
	for _, s := range scenarios {
		tenantID := demoID("tenant", s.name)
		unitID := demoID("unit", s.unit)
		snap.Tenants = append(snap.Tenants, types.Tenant{
			ID:                tenantID,
			UnitID:            unitID,
			UnitNumber:        s.unit,
			PropertyID:        demoID("property", property),
			PropertyName:      property,
			Name:              s.name,
			Phone:             s.phone,
			PreferredLanguage: s.lang,
			LeaseStart:        day(s.leaseEndDays - 365),
			LeaseEnd:          day(s.leaseEndDays),
			RenewalConfirmed:  s.renewed,
			MonthlyRent:       rent,
		})

		for m := 1; m <= 6; m++ {
			due := day(-30*m - 45)
			paid := *due
			if m <= s.lateHistory {
				paid = paid.AddDate(0, 0, 9)
			}
			snap.Payments = append(snap.Payments, types.Payment{
				ID:       demoID("payment", fmt.Sprintf("%s/%d", s.name, m)),
				TenantID: tenantID,
				UnitID:   unitID,
				Amount:   rent,
				DueDate:  due,
				PaidAt:   &paid,
				Status:   types.PaymentCompleted,
				Type:     types.PaymentTypeRent,
			})
		}
		for i, d := range s.overdueDays {
			snap.Payments = append(snap.Payments, types.Payment{
				ID:       demoID("payment", fmt.Sprintf("%s/open/%d", s.name, i)),
				TenantID: tenantID,
				UnitID:   unitID,
				Amount:   rent,
				DueDate:  day(-d),
				Status:   types.PaymentPending,
				Type:     types.PaymentTypeRent,
			})
		}
	}

	snap.Staff = []types.Staff{
		{ID: demoID("staff", "grace"), Name: "Grace Wambui", Department: "maintenance"},
		{ID: demoID("staff", "hassan"), Name: "Hassan Ali", Department: "maintenance"},
		{ID: demoID("staff", "irene"), Name: "Irene Chebet", Department: "management"},
	}

	type demoRequest struct {
		staff, unit, category string
		priority              types.Priority
		reportedDaysAgo       int
		ackHours, fixHours    float64 // zero fixHours: still open
	}
	requests := []demoRequest{
		{"grace", "A1", "plumbing", types.PriorityUrgent, 40, 0.5, 3},
		{"grace", "A2", "electrical", types.PriorityHigh, 33, 2, 20},
		{"grace", "A3", "general", types.PriorityMedium, 20, 6, 48},
		{"grace", "B1", "plumbing", types.PriorityLow, 12, 20, 100},
		{"hassan", "B2", "plumbing", types.PriorityHigh, 60, 10, 70},
		{"hassan", "B2", "plumbing", types.PriorityHigh, 50, 12, 40},
		{"hassan", "B2", "security", types.PriorityUrgent, 9, 3, 0},
		{"hassan", "B1", "appliance", types.PriorityMedium, 5, 0, 0},
		{"", "B2", "pest", types.PriorityLow, 2, 0, 0},
	}
	for i, r := range requests {
		reported := now.AddDate(0, 0, -r.reportedDaysAgo)
		req := types.MaintenanceRequest{
			ID:         demoID("request", fmt.Sprintf("%d", i)),
			UnitID:     demoID("unit", r.unit),
			Category:   r.category,
			Priority:   r.priority,
			Status:     types.RequestPending,
			ReportedAt: reported,
		}
		if r.staff != "" {
			req.AssignedTo = demoID("staff", r.staff)
		}
		if r.ackHours > 0 {
			req.AcknowledgedAt = hours(reported, r.ackHours)
			req.Status = types.RequestInProgress
		}
		if r.fixHours > 0 {
			req.CompletedAt = hours(reported, r.fixHours)
			req.Status = types.RequestCompleted
		}
		snap.Maintenance = append(snap.Maintenance, req)
	}
	return snap
}
