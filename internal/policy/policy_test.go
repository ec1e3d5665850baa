package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

func TestDefault_Tables(t *testing.T) {
	p := Default()

	assert.Equal(t, "KES", p.Currency)
	assert.Equal(t, SLATarget{AcknowledgeHours: 1, ResolveHours: 4}, p.Target(types.PriorityUrgent))
	assert.Equal(t, SLATarget{AcknowledgeHours: 48, ResolveHours: 168}, p.Target(types.PriorityLow))
	assert.Equal(t, 30, p.RepeatWindowDays)
	assert.InDelta(t, 0.35, p.SLAWeights.Resolution, 1e-9)
	require.Len(t, p.Escalations, 5)
	assert.Equal(t, "final", p.Escalations[0].Key)
	assert.Equal(t, 3, p.UpcomingWindowDays())
}

func TestTarget_UnknownPriorityFallsBackToMedium(t *testing.T) {
	p := Default()
	assert.Equal(t, p.Target(types.PriorityMedium), p.Target("emergency"))
}

func TestSLATargets_StrictlyIncreasing(t *testing.T) {
	p := Default()
	for i := 1; i < len(types.Priorities); i++ {
		prev := p.Target(types.Priorities[i-1])
		cur := p.Target(types.Priorities[i])
		assert.Greater(t, cur.ResolveHours, prev.ResolveHours, "resolve %s", types.Priorities[i])
		assert.Greater(t, cur.AcknowledgeHours, prev.AcknowledgeHours, "acknowledge %s", types.Priorities[i])
	}
}

func TestGrade_CutPoints(t *testing.T) {
	p := Default()
	tests := []struct {
		score int
		want  types.Grade
	}{
		{100, types.GradeExcellent},
		{90, types.GradeExcellent},
		{89, types.GradeGood},
		{75, types.GradeGood},
		{74, types.GradeFair},
		{50, types.GradeFair},
		{49, types.GradePoor},
		{0, types.GradePoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Grade(tt.score), "score %d", tt.score)
	}
}

func TestRiskLevel_CutPoints(t *testing.T) {
	p := Default()
	assert.Equal(t, types.RiskLow, p.RiskLevel(33))
	assert.Equal(t, types.RiskMedium, p.RiskLevel(34))
	assert.Equal(t, types.RiskMedium, p.RiskLevel(66))
	assert.Equal(t, types.RiskHigh, p.RiskLevel(67))
}

func TestVacancyLevel_CutPoints(t *testing.T) {
	p := Default()
	assert.Equal(t, types.VacancyLow, p.VacancyLevel(24))
	assert.Equal(t, types.VacancyMedium, p.VacancyLevel(25))
	assert.Equal(t, types.VacancyHigh, p.VacancyLevel(50))
	assert.Equal(t, types.VacancyCritical, p.VacancyLevel(75))
}

// Every score in [0,100] must land in exactly one band of each scale.
func TestBandCoverage(t *testing.T) {
	p := Default()
	scales := map[string][]Band{
		"performance_grades": p.PerformanceGrades,
		"risk_levels":        p.RiskLevels,
		"vacancy_risk":       p.VacancyRisk,
	}
	for name, bands := range scales {
		for s := 0; s <= 100; s++ {
			claims := 0
			for i, b := range bands {
				upper := 101.0
				if i > 0 {
					upper = bands[i-1].Min
				}
				if float64(s) >= b.Min && float64(s) < upper {
					claims++
				}
			}
			assert.Equal(t, 1, claims, "%s: score %d claimed by %d bands", name, s, claims)
		}
	}
}

func TestEscalation_DayRanges(t *testing.T) {
	p := Default()
	tests := []struct {
		days int
		want types.Escalation
		ok   bool
	}{
		{-4, "", false},
		{-3, types.EscalationUpcoming, true},
		{0, types.EscalationUpcoming, true},
		{1, types.EscalationFriendly, true},
		{3, types.EscalationFriendly, true},
		{4, types.EscalationFirm, true},
		{7, types.EscalationFirm, true},
		{8, types.EscalationUrgent, true},
		{14, types.EscalationUrgent, true},
		{15, types.EscalationFinal, true},
		{120, types.EscalationFinal, true},
	}
	for _, tt := range tests {
		got, ok := p.Escalation(tt.days)
		assert.Equal(t, tt.ok, ok, "days %d", tt.days)
		assert.Equal(t, tt.want, got, "days %d", tt.days)
	}
}

func TestEscalation_Monotonic(t *testing.T) {
	p := Default()
	prev := -1
	for d := -3; d <= 60; d++ {
		lvl, ok := p.Escalation(d)
		require.True(t, ok)
		assert.GreaterOrEqual(t, lvl.Severity(), prev, "days %d", d)
		prev = lvl.Severity()
	}
}

func TestLeaseProximityPoints(t *testing.T) {
	p := Default()
	assert.Equal(t, 100.0, p.LeaseProximityPoints(-10))
	assert.Equal(t, 100.0, p.LeaseProximityPoints(0))
	assert.Equal(t, 90.0, p.LeaseProximityPoints(30))
	assert.Equal(t, 70.0, p.LeaseProximityPoints(45))
	assert.Equal(t, 25.0, p.LeaseProximityPoints(180))
	assert.Equal(t, 5.0, p.LeaseProximityPoints(400))
}

func TestBuild_ScalarOverride(t *testing.T) {
	p, err := Build([]byte(`currency: "USD"
repeat_window_days: 14
`))
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, 14, p.RepeatWindowDays)
	// Untouched tables keep their defaults.
	assert.Equal(t, 4.0, p.Target(types.PriorityUrgent).ResolveHours)
}

func TestBuild_TableOverrideReplacesTable(t *testing.T) {
	p, err := Build([]byte(`sla_targets: {
	urgent: {acknowledge_hours: 2, resolve_hours: 6}
	high: {acknowledge_hours: 4, resolve_hours: 24}
	medium: {acknowledge_hours: 24, resolve_hours: 72}
	low: {acknowledge_hours: 48, resolve_hours: 168}
}
`))
	require.NoError(t, err)
	assert.Equal(t, 6.0, p.Target(types.PriorityUrgent).ResolveHours)
}

func TestBuild_ConstraintViolation(t *testing.T) {
	_, err := Build([]byte(`repeat_window_days: -1`))
	require.Error(t, err)
}

func TestBuild_WeightsMustSumToOne(t *testing.T) {
	_, err := Build([]byte(`sla_weights: acknowledgement: 0.5`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sla_weights")
}

func TestBuild_UnorderedTargetsRejected(t *testing.T) {
	_, err := Build([]byte(`sla_targets: {
	urgent: {acknowledge_hours: 1, resolve_hours: 48}
	high: {acknowledge_hours: 4, resolve_hours: 24}
	medium: {acknowledge_hours: 24, resolve_hours: 72}
	low: {acknowledge_hours: 48, resolve_hours: 168}
}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "urgent")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.cue")
	require.NoError(t, os.WriteFile(path, []byte(`default_country_code: "255"`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "255", p.DefaultCountryCode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
}

func TestValidate_BandGaps(t *testing.T) {
	p := *Default()
	p.RiskLevels = []Band{
		{Key: "high", Min: 67},
		{Key: "medium", Min: 34},
		{Key: "low", Min: 5},
	}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start at 0")
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-4))
	assert.Equal(t, 91, ClampScore(90.8125))
	assert.Equal(t, 100, ClampScore(100.4))
	assert.Equal(t, 100, ClampScore(250))
	assert.Equal(t, 93.8, Round1(93.75))
	assert.Equal(t, 46.2, Round1(46.153))
}
