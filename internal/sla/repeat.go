package sla

import (
	"sort"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/types"
)

// countRepeats counts completed requests that reopen an issue: the same unit
// and category reported again within window of an earlier completion.
// Requests without a unit cannot be matched and are ignored.
func countRepeats(requests []types.MaintenanceRequest, window time.Duration) int {
	groups := make(map[string][]types.MaintenanceRequest)
	for _, r := range requests {
		if r.Status != types.RequestCompleted || r.UnitID == "" {
			continue
		}
		key := r.UnitID + "\x00" + r.IssueCategory()
		groups[key] = append(groups[key], r)
	}

	repeats := 0
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			if group[i].ReportedAt.Equal(group[j].ReportedAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].ReportedAt.Before(group[j].ReportedAt)
		})
		for i, r := range group {
			for _, prior := range group[:i] {
				if prior.CompletedAt == nil {
					continue
				}
				gap := r.ReportedAt.Sub(*prior.CompletedAt)
				if gap >= 0 && gap <= window {
					repeats++
					break
				}
			}
		}
	}
	return repeats
}
