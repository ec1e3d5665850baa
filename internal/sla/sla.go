// Package sla grades maintenance staff against per-priority acknowledge and
// resolve targets.
package sla

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/policy"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// RequestSLA is the SLA outcome of one maintenance request.
type RequestSLA struct {
	RequestID        string           `json:"requestId"`
	Priority         types.Priority   `json:"priority"`
	Target           policy.SLATarget `json:"target"`
	AcknowledgeHours *float64         `json:"acknowledgeHours"`
	ResolveTimeHours *float64         `json:"resolveTimeHours"`
	WithinSLA        *bool            `json:"withinSLA"` // nil while the request is open
	WithinAckSLA     *bool            `json:"withinAckSLA"`
	ElapsedHours     float64          `json:"elapsedHours"`
	Breached         bool             `json:"breached"` // open and already past the resolve target
}

// Factors are the normalized inputs to a staff score, each in [0,100].
type Factors struct {
	Acknowledgement float64 `json:"acknowledgement"`
	Resolution      float64 `json:"resolution"`
	CompletionRate  float64 `json:"completionRate"`
	RepeatIssues    float64 `json:"repeatIssues"`
}

// StaffPerformance is one staff member's graded SLA record.
type StaffPerformance struct {
	StaffID             string      `json:"staffId"`
	StaffName           string      `json:"staffName"`
	Department          string      `json:"department"`
	Score               int         `json:"score"`
	Grade               types.Grade `json:"grade"`
	Factors             Factors     `json:"factors"`
	TotalAssigned       int         `json:"totalAssigned"`
	Completed           int         `json:"completed"`
	AvgAcknowledgeHours float64     `json:"avgAcknowledgeHours"`
	AvgResolveHours     float64     `json:"avgResolveHours"`
	SLAComplianceRate   float64     `json:"slaComplianceRate"`
	RepeatIssueCount    int         `json:"repeatIssueCount"`
	OpenBreaches        int         `json:"openBreaches"`
}

// Summary aggregates every graded staff member plus portfolio-wide figures.
type Summary struct {
	Staff                []StaffPerformance `json:"staff"`
	TotalRequests        int                `json:"totalRequests"`
	UnassignedRequests   int                `json:"unassignedRequests"`
	CompletedRequests    int                `json:"completedRequests"`
	AvgAcknowledgeHours  float64            `json:"avgAcknowledgeHours"`
	AvgResolveHours      float64            `json:"avgResolveHours"`
	OverallSLACompliance float64            `json:"overallSLACompliance"`
	OpenBreaches         int                `json:"openBreaches"`
}

// Engine computes SLA metrics under one policy.
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

// CalculateRequestSLA evaluates one request with the default policy.
func CalculateRequestSLA(r types.MaintenanceRequest, now time.Time) RequestSLA {
	return New(nil, nil).CalculateRequestSLA(r, now)
}

// CalculateStaffPerformance grades one staff member with the default policy.
func CalculateStaffPerformance(staff types.Staff, requests []types.MaintenanceRequest, now time.Time) StaffPerformance {
	return New(nil, nil).CalculateStaffPerformance(staff, requests, now)
}

// CalculateSLASummary grades every staff member with the default policy.
func CalculateSLASummary(staff []types.Staff, requests []types.MaintenanceRequest, now time.Time) Summary {
	return New(nil, nil).CalculateSLASummary(staff, requests, now)
}

// CalculateRequestSLA evaluates one request against its priority's target.
// Resolve time and compliance exist only for completed requests with a
// completion timestamp; acknowledge latency only when a first response was
// recorded.
func (e *Engine) CalculateRequestSLA(r types.MaintenanceRequest, now time.Time) RequestSLA {
	target := e.policy.Target(r.Priority)
	out := RequestSLA{
		RequestID: r.ID,
		Priority:  r.Priority,
		Target:    target,
	}

	if r.AcknowledgedAt != nil && !r.ReportedAt.IsZero() {
		ack := hoursBetween(r.ReportedAt, *r.AcknowledgedAt)
		within := ack <= target.AcknowledgeHours
		out.AcknowledgeHours = &ack
		out.WithinAckSLA = &within
	}

	switch {
	case r.Status == types.RequestCompleted && r.CompletedAt != nil && !r.ReportedAt.IsZero():
		resolve := hoursBetween(r.ReportedAt, *r.CompletedAt)
		within := resolve <= target.ResolveHours
		out.ResolveTimeHours = &resolve
		out.WithinSLA = &within
		out.ElapsedHours = resolve
	case isOpen(r) && !r.ReportedAt.IsZero():
		out.ElapsedHours = hoursBetween(r.ReportedAt, now)
		out.Breached = out.ElapsedHours > target.ResolveHours
	}
	return out
}

// CalculateStaffPerformance grades staff on the requests assigned to them.
func (e *Engine) CalculateStaffPerformance(staff types.Staff, requests []types.MaintenanceRequest, now time.Time) StaffPerformance {
	var assigned []types.MaintenanceRequest
	for _, r := range requests {
		if r.AssignedTo == staff.ID {
			assigned = append(assigned, r)
		}
	}
	return e.grade(staff, assigned, now)
}

// CalculateSLASummary grades every staff member with at least one assigned
// request and folds portfolio-wide averages over all requests. Requests
// assigned to an id missing from staff count as unassigned.
func (e *Engine) CalculateSLASummary(staff []types.Staff, requests []types.MaintenanceRequest, now time.Time) Summary {
	known := make(map[string]types.Staff, len(staff))
	order := make([]string, 0, len(staff))
	for _, s := range staff {
		if s.ID == "" {
			e.logger.Warn("sla: skipping staff record without id", slog.String("name", s.Name))
			continue
		}
		if _, dup := known[s.ID]; dup {
			e.logger.Warn("sla: duplicate staff record", slog.String("staff_id", s.ID))
			continue
		}
		known[s.ID] = s
		order = append(order, s.ID)
	}

	byStaff := make(map[string][]types.MaintenanceRequest, len(known))
	summary := Summary{TotalRequests: len(requests), Staff: []StaffPerformance{}}
	var totals tally
	for _, r := range requests {
		totals.add(e.CalculateRequestSLA(r, now), r)
		if r.Status == types.RequestCompleted {
			summary.CompletedRequests++
		}
		if r.AssignedTo == "" {
			summary.UnassignedRequests++
			continue
		}
		if _, ok := known[r.AssignedTo]; !ok {
			e.logger.Warn("sla: request assigned to unknown staff, counting as unassigned",
				slog.String("request_id", r.ID), slog.String("staff_id", r.AssignedTo))
			summary.UnassignedRequests++
			continue
		}
		byStaff[r.AssignedTo] = append(byStaff[r.AssignedTo], r)
	}

	for _, id := range order {
		reqs := byStaff[id]
		if len(reqs) == 0 {
			continue
		}
		summary.Staff = append(summary.Staff, e.grade(known[id], reqs, now))
	}
	sort.SliceStable(summary.Staff, func(i, j int) bool {
		a, b := summary.Staff[i], summary.Staff[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.StaffName != b.StaffName {
			return a.StaffName < b.StaffName
		}
		return a.StaffID < b.StaffID
	})

	summary.AvgAcknowledgeHours = policy.Round1(totals.avgAck())
	summary.AvgResolveHours = policy.Round1(totals.avgResolve())
	summary.OverallSLACompliance = policy.Round1(totals.compliance())
	summary.OpenBreaches = totals.breaches
	return summary
}

func (e *Engine) grade(staff types.Staff, assigned []types.MaintenanceRequest, now time.Time) StaffPerformance {
	perf := StaffPerformance{
		StaffID:       staff.ID,
		StaffName:     staff.Name,
		Department:    staff.Department,
		TotalAssigned: len(assigned),
	}

	var t tally
	var ackScores, resolveScores []float64
	for _, r := range assigned {
		res := e.CalculateRequestSLA(r, now)
		t.add(res, r)
		if r.Status == types.RequestCompleted {
			perf.Completed++
		}
		if res.AcknowledgeHours != nil && countsForAck(r) {
			ackScores = append(ackScores, targetScore(*res.AcknowledgeHours, res.Target.AcknowledgeHours))
		}
		if res.ResolveTimeHours != nil {
			resolveScores = append(resolveScores, targetScore(*res.ResolveTimeHours, res.Target.ResolveHours))
		}
	}
	perf.RepeatIssueCount = countRepeats(assigned, time.Duration(e.policy.RepeatWindowDays)*24*time.Hour)

	perf.Factors.Acknowledgement = mean(ackScores)
	perf.Factors.Resolution = mean(resolveScores)
	if perf.TotalAssigned > 0 {
		perf.Factors.CompletionRate = 100 * float64(perf.Completed) / float64(perf.TotalAssigned)
	}
	perf.Factors.RepeatIssues = 100
	if perf.Completed > 0 {
		perf.Factors.RepeatIssues = math.Max(0, 100-100*float64(perf.RepeatIssueCount)/float64(perf.Completed))
	}

	// Acknowledgement and resolution only count when there is something to
	// measure; otherwise their weight is spread over the remaining factors.
	w := e.policy.SLAWeights
	blended := w.CompletionRate*perf.Factors.CompletionRate + w.RepeatIssues*perf.Factors.RepeatIssues
	weight := w.CompletionRate + w.RepeatIssues
	if len(ackScores) > 0 {
		blended += w.Acknowledgement * perf.Factors.Acknowledgement
		weight += w.Acknowledgement
	}
	if len(resolveScores) > 0 {
		blended += w.Resolution * perf.Factors.Resolution
		weight += w.Resolution
	}
	if weight > 0 {
		blended /= weight
	}
	perf.Score = policy.ClampScore(blended)
	perf.Grade = e.policy.Grade(perf.Score)

	perf.Factors = Factors{
		Acknowledgement: policy.Round1(perf.Factors.Acknowledgement),
		Resolution:      policy.Round1(perf.Factors.Resolution),
		CompletionRate:  policy.Round1(perf.Factors.CompletionRate),
		RepeatIssues:    policy.Round1(perf.Factors.RepeatIssues),
	}
	perf.AvgAcknowledgeHours = policy.Round1(t.avgAck())
	perf.AvgResolveHours = policy.Round1(t.avgResolve())
	perf.SLAComplianceRate = policy.Round1(t.compliance())
	perf.OpenBreaches = t.breaches
	return perf
}

// tally accumulates the counts shared by per-staff and portfolio figures so
// both are derived the same way.
type tally struct {
	ackSum, resolveSum  float64
	ackCount, resolved  int
	withinSLA, breaches int
}

func (t *tally) add(res RequestSLA, r types.MaintenanceRequest) {
	if res.AcknowledgeHours != nil && countsForAck(r) {
		t.ackSum += *res.AcknowledgeHours
		t.ackCount++
	}
	if res.ResolveTimeHours != nil {
		t.resolveSum += *res.ResolveTimeHours
		t.resolved++
		if res.WithinSLA != nil && *res.WithinSLA {
			t.withinSLA++
		}
	}
	if res.Breached {
		t.breaches++
	}
}

func (t *tally) avgAck() float64 {
	if t.ackCount == 0 {
		return 0
	}
	return t.ackSum / float64(t.ackCount)
}

func (t *tally) avgResolve() float64 {
	if t.resolved == 0 {
		return 0
	}
	return t.resolveSum / float64(t.resolved)
}

func (t *tally) compliance() float64 {
	if t.resolved == 0 {
		return 0
	}
	return 100 * float64(t.withinSLA) / float64(t.resolved)
}

// countsForAck limits acknowledge averages to requests someone has worked on.
func countsForAck(r types.MaintenanceRequest) bool {
	return r.Status == types.RequestCompleted || r.Status == types.RequestInProgress
}

func isOpen(r types.MaintenanceRequest) bool {
	return r.Status == types.RequestPending || r.Status == types.RequestInProgress || r.Status == ""
}

// targetScore is 100 at or under target and decays as target/actual beyond it.
func targetScore(actual, target float64) float64 {
	if actual <= target || actual <= 0 {
		return 100
	}
	return 100 * target / actual
}

func hoursBetween(from, to time.Time) float64 {
	h := to.Sub(from).Hours()
	if h < 0 {
		return 0
	}
	return h
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
