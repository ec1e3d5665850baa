// Package risk scores how likely each tenant is to pay late or not at all.
//
// A score blends four factors, each normalized to [0,100] with higher
// meaning riskier:
//
//   - lateness: the recency-weighted share of due rent that was paid late
//     or is still unpaid past its due date
//   - overdue: how far past due the oldest unpaid rent is
//   - volatility: how much completed payment amounts vary
//   - maintenance: how often the tenant's unit raised requests recently
//
// Weights and constants come from the policy tables.
package risk

import (
	"log/slog"
	"math"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/policy"
	"github.com/matthewbaird/rentmetrics/internal/portfolio"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// Factors are the normalized risk inputs for one tenant.
type Factors struct {
	Lateness    float64 `json:"lateness"`
	Overdue     float64 `json:"overdue"`
	Volatility  float64 `json:"volatility"`
	Maintenance float64 `json:"maintenance"`
}

// TenantRiskScore is one tenant's payment risk.
type TenantRiskScore struct {
	TenantID string          `json:"tenantId"`
	Score    int             `json:"score"`
	Level    types.RiskLevel `json:"level"`
	Factors  Factors         `json:"factors"`
	Tenant   *types.Tenant   `json:"tenant"`
}

// Engine scores tenants under one policy.
type Engine struct {
	policy *policy.Policy
	logger *slog.Logger
}

// New creates an Engine. Nil arguments fall back to the default policy and logger.
func New(p *policy.Policy, logger *slog.Logger) *Engine {
	if p == nil {
		p = policy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: p, logger: logger}
}

// CalculateAllTenantRiskScores scores every tenant with the default policy.
func CalculateAllTenantRiskScores(tenants []types.Tenant, payments []types.Payment, maintenance []types.MaintenanceRequest, now time.Time) []TenantRiskScore {
	return New(nil, nil).CalculateAllTenantRiskScores(tenants, payments, maintenance, now)
}

// CalculateAllTenantRiskScores returns one score per tenant, in input order.
// Tenants without any payment history get the no-history baseline for
// lateness and zero for the other payment factors.
func (e *Engine) CalculateAllTenantRiskScores(tenants []types.Tenant, payments []types.Payment, maintenance []types.MaintenanceRequest, now time.Time) []TenantRiskScore {
	ix := portfolio.NewIndex(tenants, payments, maintenance, e.logger.With(slog.String("engine", "risk")))
	out := make([]TenantRiskScore, 0, len(tenants))
	for i := range tenants {
		out = append(out, e.score(&tenants[i], ix.Payments(i), ix.Requests(i), now))
	}
	return out
}

// CalculateTenantRiskScore scores a single tenant against records already
// attributed to it.
func (e *Engine) CalculateTenantRiskScore(t types.Tenant, payments []types.Payment, maintenance []types.MaintenanceRequest, now time.Time) TenantRiskScore {
	return e.score(&t, payments, maintenance, now)
}

func (e *Engine) score(t *types.Tenant, payments []types.Payment, requests []types.MaintenanceRequest, now time.Time) TenantRiskScore {
	m := e.policy.RiskModel
	f := Factors{
		Lateness:    lateness(payments, now, m),
		Overdue:     overdue(payments, now, m),
		Volatility:  volatility(payments, m),
		Maintenance: maintenanceLoad(requests, now, m),
	}
	w := e.policy.RiskWeights
	blended := w.Lateness*f.Lateness + w.Overdue*f.Overdue + w.Volatility*f.Volatility + w.Maintenance*f.Maintenance
	score := policy.ClampScore(blended)
	return TenantRiskScore{
		TenantID: t.ID,
		Score:    score,
		Level:    e.policy.RiskLevel(score),
		Factors: Factors{
			Lateness:    policy.Round1(f.Lateness),
			Overdue:     policy.Round1(f.Overdue),
			Volatility:  policy.Round1(f.Volatility),
			Maintenance: policy.Round1(f.Maintenance),
		},
		Tenant: t,
	}
}

func lateness(payments []types.Payment, now time.Time, m policy.RiskModel) float64 {
	var late, total float64
	for _, p := range payments {
		if !p.IsRent() || p.DueDate == nil || p.DueDate.After(now) {
			continue
		}
		if p.Status == types.PaymentCancelled || p.Status == types.PaymentRefunded {
			continue
		}
		w := 1.0
		if types.DaysBetween(*p.DueDate, now) <= m.RecentWindowDays {
			w = m.RecentMultiplier
		}
		total += w
		if p.PaidLate(now) {
			late += w
		}
	}
	if total == 0 {
		return m.NoHistoryBaseline
	}
	return 100 * late / total
}

func overdue(payments []types.Payment, now time.Time, m policy.RiskModel) float64 {
	maxDays := 0
	for _, p := range payments {
		if !p.IsRent() || p.IsSettled() || p.DueDate == nil {
			continue
		}
		if d := types.DaysBetween(*p.DueDate, now); d > maxDays {
			maxDays = d
		}
	}
	return math.Min(100, float64(maxDays)*100/float64(m.OverdueSaturationDays))
}

// volatility is the coefficient of variation of completed payment amounts,
// scaled and capped at 100.
func volatility(payments []types.Payment, m policy.RiskModel) float64 {
	var amounts []float64
	for _, p := range payments {
		if p.Status == types.PaymentCompleted && p.IsRent() {
			amounts = append(amounts, p.Amount.InexactFloat64())
		}
	}
	if len(amounts) < 2 {
		return 0
	}
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(len(amounts))
	if mean <= 0 {
		return 0
	}
	var sq float64
	for _, a := range amounts {
		sq += (a - mean) * (a - mean)
	}
	cv := math.Sqrt(sq/float64(len(amounts))) / mean
	return math.Min(100, cv*m.VolatilityScale)
}

func maintenanceLoad(requests []types.MaintenanceRequest, now time.Time, m policy.RiskModel) float64 {
	since := now.AddDate(0, 0, -m.MaintenanceWindowDays)
	n := 0
	for _, r := range requests {
		if r.ReportedAt.IsZero() || r.ReportedAt.Before(since) || r.ReportedAt.After(now) {
			continue
		}
		n++
	}
	return math.Min(100, float64(n)*m.PointsPerRequest)
}
