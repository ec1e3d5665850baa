package policy

import (
	"errors"
	"fmt"
	"math"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// ValidationError describes one table that breaks a cross-field rule.
type ValidationError struct {
	Table  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("policy: %s: %s", e.Table, e.Reason)
}

// Validate checks the rules CUE constraints do not express: ordering across
// priorities, complete and gap-free band tables, and weights summing to one.
// All violations are returned together.
func (p *Policy) Validate() error {
	var errs []error
	add := func(table, format string, args ...any) {
		errs = append(errs, ValidationError{Table: table, Reason: fmt.Sprintf(format, args...)})
	}

	var prev *SLATarget
	var prevName types.Priority
	for _, pr := range types.Priorities {
		t, ok := p.SLATargets[string(pr)]
		if !ok {
			add("sla_targets", "missing priority %q", pr)
			continue
		}
		if t.AcknowledgeHours > t.ResolveHours {
			add("sla_targets", "%s acknowledge target exceeds resolve target", pr)
		}
		if prev != nil {
			if t.ResolveHours <= prev.ResolveHours {
				add("sla_targets", "%s resolve target must exceed %s", pr, prevName)
			}
			if t.AcknowledgeHours <= prev.AcknowledgeHours {
				add("sla_targets", "%s acknowledge target must exceed %s", pr, prevName)
			}
		}
		tt := t
		prev, prevName = &tt, pr
	}

	checkWeights := func(table string, ws ...float64) {
		var sum float64
		for _, w := range ws {
			sum += w
		}
		if math.Abs(sum-1) > 1e-6 {
			add(table, "weights sum to %.4f, want 1", sum)
		}
	}
	w := p.SLAWeights
	checkWeights("sla_weights", w.Acknowledgement, w.Resolution, w.CompletionRate, w.RepeatIssues)
	rw := p.RiskWeights
	checkWeights("risk_weights", rw.Lateness, rw.Overdue, rw.Volatility, rw.Maintenance)
	vw := p.VacancyWeights
	checkWeights("vacancy_weights", vw.LeaseEndProximity, vw.LateRentPattern, vw.MaintenanceFrequency)

	checkBands := func(table string, bands []Band, keys ...string) {
		if len(bands) == 0 {
			add(table, "no bands")
			return
		}
		seen := make(map[string]bool, len(bands))
		for i, b := range bands {
			seen[b.Key] = true
			if i > 0 && b.Min == bands[i-1].Min {
				add(table, "bands %q and %q share floor %v", bands[i-1].Key, b.Key, b.Min)
			}
		}
		if bands[len(bands)-1].Min != 0 {
			add(table, "lowest band %q must start at 0", bands[len(bands)-1].Key)
		}
		for _, k := range keys {
			if !seen[k] {
				add(table, "missing band %q", k)
			}
		}
		if len(seen) != len(keys) {
			add(table, "want exactly %d bands, got %d", len(keys), len(seen))
		}
	}
	checkBands("performance_grades", p.PerformanceGrades,
		string(types.GradeExcellent), string(types.GradeGood), string(types.GradeFair), string(types.GradePoor))
	checkBands("risk_levels", p.RiskLevels,
		string(types.RiskHigh), string(types.RiskMedium), string(types.RiskLow))
	checkBands("vacancy_risk", p.VacancyRisk,
		string(types.VacancyCritical), string(types.VacancyHigh), string(types.VacancyMedium), string(types.VacancyLow))

	// Escalations are sorted by floor, highest first; severity must follow.
	if len(p.Escalations) != len(types.Escalations) {
		add("escalations", "want %d levels, got %d", len(types.Escalations), len(p.Escalations))
	} else {
		for i, b := range p.Escalations {
			want := types.Escalations[len(types.Escalations)-1-i]
			if types.Escalation(b.Key) != want {
				add("escalations", "level %q out of order, want %q at position %d", b.Key, want, i)
			}
			if i > 0 && b.MinDays == p.Escalations[i-1].MinDays {
				add("escalations", "levels %q and %q share floor %d", p.Escalations[i-1].Key, b.Key, b.MinDays)
			}
		}
		if up, ok := p.EscalationBand(types.EscalationUpcoming); ok && up.MinDays > 0 {
			add("escalations", "upcoming must start on or before the due date")
		}
		if fr, ok := p.EscalationBand(types.EscalationFriendly); ok && fr.MinDays < 1 {
			add("escalations", "friendly must start after the due date")
		}
	}

	for i, b := range p.VacancyModel.LeaseProximity {
		if i > 0 && b.MaxDays == p.VacancyModel.LeaseProximity[i-1].MaxDays {
			add("vacancy_model.lease_proximity", "duplicate max_days %d", b.MaxDays)
		}
	}

	return errors.Join(errs...)
}
