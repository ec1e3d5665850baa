// Package policy holds the threshold, weight, label, and color tables every
// metric engine and every dashboard badge reads. The tables are defined once,
// in policy.cue, and loaded through CUE so that an operator override is
// checked against the same constraints as the defaults.
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed policy.cue
var defaultSource []byte

// SLATarget is the acknowledge/resolve target for one priority, in hours.
type SLATarget struct {
	AcknowledgeHours float64 `json:"acknowledge_hours"`
	ResolveHours     float64 `json:"resolve_hours"`
}

// Band is one bucket of a 0-100 score scale.
type Band struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Color string  `json:"color"`
	Min   float64 `json:"min"`
}

// EscalationBand is one rent-chasing level keyed by days overdue.
type EscalationBand struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	MinDays int    `json:"min_days"`
	Channel string `json:"channel"`
}

// ProximityBand maps days-to-lease-end to vacancy points.
type ProximityBand struct {
	MaxDays int     `json:"max_days"`
	Points  float64 `json:"points"`
}

// SLAWeights blend the four staff performance factors.
type SLAWeights struct {
	Acknowledgement float64 `json:"acknowledgement"`
	Resolution      float64 `json:"resolution"`
	CompletionRate  float64 `json:"completion_rate"`
	RepeatIssues    float64 `json:"repeat_issues"`
}

// RiskWeights blend the tenant risk factors.
type RiskWeights struct {
	Lateness    float64 `json:"lateness"`
	Overdue     float64 `json:"overdue"`
	Volatility  float64 `json:"volatility"`
	Maintenance float64 `json:"maintenance"`
}

// RiskModel holds the tenant risk factor constants.
type RiskModel struct {
	RecentWindowDays      int     `json:"recent_window_days"`
	RecentMultiplier      float64 `json:"recent_multiplier"`
	NoHistoryBaseline     float64 `json:"no_history_baseline"`
	OverdueSaturationDays int     `json:"overdue_saturation_days"`
	VolatilityScale       float64 `json:"volatility_scale"`
	MaintenanceWindowDays int     `json:"maintenance_window_days"`
	PointsPerRequest      float64 `json:"points_per_request"`
}

// VacancyWeights blend the vacancy factors.
type VacancyWeights struct {
	LeaseEndProximity    float64 `json:"lease_end_proximity"`
	LateRentPattern      float64 `json:"late_rent_pattern"`
	MaintenanceFrequency float64 `json:"maintenance_frequency"`
}

// VacancyModel holds the vacancy factor constants.
type VacancyModel struct {
	LeaseProximity        []ProximityBand `json:"lease_proximity"`
	BeyondPoints          float64         `json:"beyond_points"`
	UnknownLeasePoints    float64         `json:"unknown_lease_points"`
	RenewalFactor         float64         `json:"renewal_factor"`
	RecentPayments        int             `json:"recent_payments"`
	MaintenanceWindowDays int             `json:"maintenance_window_days"`
	MaintenanceBaseline   int             `json:"maintenance_baseline"`
	PointsPerExcess       float64         `json:"points_per_excess"`
	HorizonDays           int             `json:"horizon_days"`
	BehaviorPull          float64         `json:"behavior_pull"`
}

// Policy is the resolved set of tables. It is read-only once built.
type Policy struct {
	Currency           string               `json:"currency"`
	DefaultCountryCode string               `json:"default_country_code"`
	SLATargets         map[string]SLATarget `json:"sla_targets"`
	SLAWeights         SLAWeights           `json:"sla_weights"`
	RepeatWindowDays   int                  `json:"repeat_window_days"`
	PerformanceGrades  []Band               `json:"performance_grades"`
	RiskLevels         []Band               `json:"risk_levels"`
	RiskWeights        RiskWeights          `json:"risk_weights"`
	RiskModel          RiskModel            `json:"risk_model"`
	VacancyRisk        []Band               `json:"vacancy_risk"`
	VacancyWeights     VacancyWeights       `json:"vacancy_weights"`
	VacancyModel       VacancyModel         `json:"vacancy_model"`
	Escalations        []EscalationBand     `json:"escalations"`
}

var (
	defaultOnce   sync.Once
	defaultPolicy *Policy
)

// Default returns the policy built from the embedded defaults. It panics if
// the embedded document does not validate.
func Default() *Policy {
	defaultOnce.Do(func() {
		p, err := Build()
		if err != nil {
			panic(fmt.Sprintf("policy: embedded defaults invalid: %v", err))
		}
		defaultPolicy = p
	})
	return defaultPolicy
}

// Load builds a policy from the defaults unified with the CUE file at path.
// An empty path yields the defaults.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Build()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: reading %s: %w", path, err)
	}
	return Build(src)
}

// Build compiles the defaults, unifies each override source onto them in
// order, and decodes the result. Overrides are plain CUE data: setting a
// scalar replaces its default, setting a table replaces the whole table.
func Build(overrides ...[]byte) (*Policy, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(defaultSource, cue.Filename("policy.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("policy: compiling defaults: %s", cueerrors.Details(err, nil))
	}
	for i, src := range overrides {
		o := ctx.CompileBytes(src, cue.Filename(fmt.Sprintf("override-%d.cue", i)))
		if err := o.Err(); err != nil {
			return nil, fmt.Errorf("policy: compiling override %d: %s", i, cueerrors.Details(err, nil))
		}
		v = v.Unify(o)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("policy: %s", cueerrors.Details(err, nil))
	}

	var p Policy
	if err := v.Decode(&p); err != nil {
		return nil, fmt.Errorf("policy: decoding: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// normalize orders every band table from the highest floor down so lookups
// can take the first match.
func (p *Policy) normalize() {
	for _, bands := range [][]Band{p.PerformanceGrades, p.RiskLevels, p.VacancyRisk} {
		sort.SliceStable(bands, func(i, j int) bool { return bands[i].Min > bands[j].Min })
	}
	sort.SliceStable(p.Escalations, func(i, j int) bool {
		return p.Escalations[i].MinDays > p.Escalations[j].MinDays
	})
	sort.SliceStable(p.VacancyModel.LeaseProximity, func(i, j int) bool {
		return p.VacancyModel.LeaseProximity[i].MaxDays < p.VacancyModel.LeaseProximity[j].MaxDays
	})
}
