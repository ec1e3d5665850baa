// Package vacancy predicts which tenants are likely to leave, and roughly when.
package vacancy

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/policy"
	"github.com/matthewbaird/rentmetrics/internal/portfolio"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// Factors are the three independent vacancy signals, each in [0,100].
type Factors struct {
	LeaseEndProximity    float64 `json:"leaseEndProximity"`
	LateRentPattern      float64 `json:"lateRentPattern"`
	MaintenanceFrequency float64 `json:"maintenanceFrequency"`
}

// Alert is the vacancy prediction for one tenant.
type Alert struct {
	TenantID      string            `json:"tenantId"`
	TenantName    string            `json:"tenantName"`
	UnitNumber    string            `json:"unitNumber"`
	PropertyName  string            `json:"propertyName"`
	Score         int               `json:"score"`
	Risk          types.VacancyRisk `json:"risk"`
	EstimatedDays int               `json:"estimatedDays"`
	LeaseEnd      *time.Time        `json:"leaseEnd"`
	Factors       Factors           `json:"factors"`
}

// Engine predicts vacancies under one policy.
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

// PredictAllVacancies predicts every tenant with the default policy.
func PredictAllVacancies(tenants []types.Tenant, payments []types.Payment, maintenance []types.MaintenanceRequest, now time.Time) []Alert {
	return New(nil, nil).PredictAllVacancies(tenants, payments, maintenance, now)
}

// PredictAllVacancies returns one alert per tenant, highest score first.
func (e *Engine) PredictAllVacancies(tenants []types.Tenant, payments []types.Payment, maintenance []types.MaintenanceRequest, now time.Time) []Alert {
	ix := portfolio.NewIndex(tenants, payments, maintenance, e.logger.With(slog.String("engine", "vacancy")))
	alerts := make([]Alert, 0, len(tenants))
	for i, t := range tenants {
		alerts = append(alerts, e.predict(t, ix.Payments(i), ix.Requests(i), now))
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Score != alerts[j].Score {
			return alerts[i].Score > alerts[j].Score
		}
		return alerts[i].TenantID < alerts[j].TenantID
	})
	return alerts
}

// Predict scores a single tenant against records already attributed to it.
func (e *Engine) Predict(t types.Tenant, payments []types.Payment, maintenance []types.MaintenanceRequest, now time.Time) Alert {
	return e.predict(t, payments, maintenance, now)
}

func (e *Engine) predict(t types.Tenant, payments []types.Payment, requests []types.MaintenanceRequest, now time.Time) Alert {
	m := e.policy.VacancyModel
	w := e.policy.VacancyWeights

	f := Factors{
		LeaseEndProximity:    e.leaseProximity(t, now),
		LateRentPattern:      lateRentPattern(payments, now, m.RecentPayments),
		MaintenanceFrequency: maintenanceFrequency(requests, now, m),
	}
	score := policy.ClampScore(w.LeaseEndProximity*f.LeaseEndProximity +
		w.LateRentPattern*f.LateRentPattern +
		w.MaintenanceFrequency*f.MaintenanceFrequency)

	return Alert{
		TenantID:      t.ID,
		TenantName:    t.DisplayName(),
		UnitNumber:    t.UnitNumber,
		PropertyName:  t.PropertyName,
		Score:         score,
		Risk:          e.policy.VacancyLevel(score),
		EstimatedDays: e.estimateDays(t, f, now),
		LeaseEnd:      t.LeaseEnd,
		Factors: Factors{
			LeaseEndProximity:    policy.Round1(f.LeaseEndProximity),
			LateRentPattern:      policy.Round1(f.LateRentPattern),
			MaintenanceFrequency: policy.Round1(f.MaintenanceFrequency),
		},
	}
}

func (e *Engine) leaseProximity(t types.Tenant, now time.Time) float64 {
	m := e.policy.VacancyModel
	if t.LeaseEnd == nil {
		return m.UnknownLeasePoints
	}
	points := e.policy.LeaseProximityPoints(types.DaysBetween(now, *t.LeaseEnd))
	if t.RenewalConfirmed {
		points *= m.RenewalFactor
	}
	return points
}

// estimateDays starts from the days left on the lease (or the horizon when
// the lease end is unknown) and pulls the estimate in by the tenant's
// payment and maintenance behavior. The result never exceeds the lease end.
func (e *Engine) estimateDays(t types.Tenant, f Factors, now time.Time) int {
	m := e.policy.VacancyModel
	w := e.policy.VacancyWeights

	base := float64(m.HorizonDays)
	if t.LeaseEnd != nil {
		base = math.Max(0, float64(types.DaysBetween(now, *t.LeaseEnd)))
	}
	var behavior float64
	if share := w.LateRentPattern + w.MaintenanceFrequency; share > 0 {
		behavior = (w.LateRentPattern*f.LateRentPattern + w.MaintenanceFrequency*f.MaintenanceFrequency) / share
	}
	return int(math.Round(base * (1 - m.BehaviorPull*behavior/100)))
}

// lateRentPattern is the share of the n most recently due rent payments that
// were paid late or remain unpaid past due.
func lateRentPattern(payments []types.Payment, now time.Time, n int) float64 {
	var due []types.Payment
	for _, p := range payments {
		if !p.IsRent() || p.DueDate == nil || p.DueDate.After(now) {
			continue
		}
		if p.Status == types.PaymentCancelled || p.Status == types.PaymentRefunded {
			continue
		}
		due = append(due, p)
	}
	if len(due) == 0 {
		return 0
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].DueDate.Equal(*due[j].DueDate) {
			return due[i].ID < due[j].ID
		}
		return due[i].DueDate.After(*due[j].DueDate)
	})
	if len(due) > n {
		due = due[:n]
	}
	late := 0
	for _, p := range due {
		if p.PaidLate(now) {
			late++
		}
	}
	return 100 * float64(late) / float64(len(due))
}

func maintenanceFrequency(requests []types.MaintenanceRequest, now time.Time, m policy.VacancyModel) float64 {
	since := now.AddDate(0, 0, -m.MaintenanceWindowDays)
	n := 0
	for _, r := range requests {
		if r.ReportedAt.IsZero() || r.ReportedAt.Before(since) || r.ReportedAt.After(now) {
			continue
		}
		n++
	}
	excess := n - m.MaintenanceBaseline
	if excess <= 0 {
		return 0
	}
	return math.Min(100, m.PointsPerExcess*float64(excess))
}
