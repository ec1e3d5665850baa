package policy

import (
	"math"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// bucket returns the band with the highest floor not above score. Bands are
// sorted by floor descending and the last floor is 0, so every score in
// [0,100] lands in exactly one band. Negative scores fall to the lowest band.
func bucket(bands []Band, score float64) Band {
	for _, b := range bands {
		if score >= b.Min {
			return b
		}
	}
	return bands[len(bands)-1]
}

func findBand(bands []Band, key string) (Band, bool) {
	for _, b := range bands {
		if b.Key == key {
			return b, true
		}
	}
	return Band{}, false
}

// Target returns the SLA target for priority. Unknown priorities use the
// medium target.
func (p *Policy) Target(pr types.Priority) SLATarget {
	if t, ok := p.SLATargets[string(pr)]; ok {
		return t
	}
	return p.SLATargets[string(types.PriorityMedium)]
}

// Grade maps a staff performance score to its grade.
func (p *Policy) Grade(score int) types.Grade {
	return types.Grade(bucket(p.PerformanceGrades, float64(score)).Key)
}

// GradeBand returns the label/color entry for g.
func (p *Policy) GradeBand(g types.Grade) (Band, bool) {
	return findBand(p.PerformanceGrades, string(g))
}

// RiskLevel maps a tenant risk score to its level.
func (p *Policy) RiskLevel(score int) types.RiskLevel {
	return types.RiskLevel(bucket(p.RiskLevels, float64(score)).Key)
}

// RiskBand returns the label/color entry for l.
func (p *Policy) RiskBand(l types.RiskLevel) (Band, bool) {
	return findBand(p.RiskLevels, string(l))
}

// VacancyLevel maps a vacancy score to its risk bucket.
func (p *Policy) VacancyLevel(score int) types.VacancyRisk {
	return types.VacancyRisk(bucket(p.VacancyRisk, float64(score)).Key)
}

// VacancyBand returns the label/color entry for r.
func (p *Policy) VacancyBand(r types.VacancyRisk) (Band, bool) {
	return findBand(p.VacancyRisk, string(r))
}

// Escalation maps days overdue (negative when not yet due) to a chasing
// level. ok is false when the payment is too far from due to chase.
func (p *Policy) Escalation(daysOverdue int) (level types.Escalation, ok bool) {
	for _, b := range p.Escalations {
		if daysOverdue >= b.MinDays {
			return types.Escalation(b.Key), true
		}
	}
	return "", false
}

// EscalationBand returns the label/color/channel entry for e.
func (p *Policy) EscalationBand(e types.Escalation) (EscalationBand, bool) {
	for _, b := range p.Escalations {
		if b.Key == string(e) {
			return b, true
		}
	}
	return EscalationBand{}, false
}

// UpcomingWindowDays is how many days before the due date chasing begins.
func (p *Policy) UpcomingWindowDays() int {
	if b, ok := p.EscalationBand(types.EscalationUpcoming); ok && b.MinDays < 0 {
		return -b.MinDays
	}
	return 0
}

// LeaseProximityPoints maps days until lease end to vacancy points.
func (p *Policy) LeaseProximityPoints(daysToEnd int) float64 {
	for _, b := range p.VacancyModel.LeaseProximity {
		if daysToEnd <= b.MaxDays {
			return b.Points
		}
	}
	return p.VacancyModel.BeyondPoints
}

// ClampScore rounds a blended score to the nearest integer in [0,100].
func ClampScore(x float64) int {
	s := int(math.Round(x))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// Round1 rounds a reported factor or average to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
