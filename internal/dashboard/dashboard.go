// Package dashboard runs every metric engine over one snapshot with a shared
// policy, so every panel on a page agrees on thresholds.
package dashboard

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/rentmetrics/internal/chasing"
	"github.com/matthewbaird/rentmetrics/internal/format"
	"github.com/matthewbaird/rentmetrics/internal/policy"
	"github.com/matthewbaird/rentmetrics/internal/risk"
	"github.com/matthewbaird/rentmetrics/internal/sla"
	"github.com/matthewbaird/rentmetrics/internal/types"
	"github.com/matthewbaird/rentmetrics/internal/vacancy"
)

// Headline holds the counts shown on the dashboard's summary cards.
type Headline struct {
	Tenants           int             `json:"tenants"`
	HighRiskTenants   int             `json:"highRiskTenants"`
	CriticalVacancies int             `json:"criticalVacancies"`
	OverdueTenants    int             `json:"overdueTenants"`
	OverdueAmount     decimal.Decimal `json:"overdueAmount"`
	OverdueLabel      string          `json:"overdueLabel"`
	SLACompliance     float64         `json:"slaCompliance"`
	OpenBreaches      int             `json:"openBreaches"`
}

// Dashboard is every derived metric for one portfolio snapshot.
type Dashboard struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	Headline    Headline               `json:"headline"`
	SLA         sla.Summary            `json:"sla"`
	TenantRisk  []risk.TenantRiskScore `json:"tenantRisk"`
	Vacancy     []vacancy.Alert        `json:"vacancy"`
	RentChasing chasing.Summary        `json:"rentChasing"`
}

// Builder holds one engine of each kind, all under the same policy.
type Builder struct {
	policy  *policy.Policy
	SLA     *sla.Engine
	Risk    *risk.Engine
	Vacancy *vacancy.Engine
	Chasing *chasing.Engine
}

// NewBuilder creates a Builder. Nil arguments fall back to the default policy
// and logger.
func NewBuilder(p *policy.Policy, logger *slog.Logger) *Builder {
	if p == nil {
		p = policy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		policy:  p,
		SLA:     sla.New(p, logger),
		Risk:    risk.New(p, logger),
		Vacancy: vacancy.New(p, logger),
		Chasing: chasing.New(p, logger),
	}
}

// Policy returns the policy every engine in b uses.
func (b *Builder) Policy() *policy.Policy {
	return b.policy
}

// Build computes the dashboard with the default policy.
func Build(snap types.Snapshot, now time.Time) Dashboard {
	return NewBuilder(nil, nil).Build(snap, now)
}

// Build runs every engine over snap as of now.
func (b *Builder) Build(snap types.Snapshot, now time.Time) Dashboard {
	d := Dashboard{
		GeneratedAt: now,
		SLA:         b.SLA.CalculateSLASummary(snap.Staff, snap.Maintenance, now),
		TenantRisk:  b.Risk.CalculateAllTenantRiskScores(snap.Tenants, snap.Payments, snap.Maintenance, now),
		Vacancy:     b.Vacancy.PredictAllVacancies(snap.Tenants, snap.Payments, snap.Maintenance, now),
		RentChasing: b.Chasing.GenerateChasingSummary(snap.Tenants, snap.Payments, now),
	}
	d.Headline = b.headline(d, len(snap.Tenants))
	return d
}

func (b *Builder) headline(d Dashboard, tenants int) Headline {
	h := Headline{
		Tenants:        tenants,
		OverdueTenants: d.RentChasing.TotalOverdue,
		OverdueAmount:  d.RentChasing.TotalAmount,
		OverdueLabel:   format.FormatCurrency(d.RentChasing.TotalAmount, b.policy.Currency),
		SLACompliance:  d.SLA.OverallSLACompliance,
		OpenBreaches:   d.SLA.OpenBreaches,
	}
	for _, r := range d.TenantRisk {
		if r.Level == types.RiskHigh {
			h.HighRiskTenants++
		}
	}
	for _, v := range d.Vacancy {
		if v.Risk == types.VacancyCritical {
			h.CriticalVacancies++
		}
	}
	return h
}
