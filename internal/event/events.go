// Package event defines the domain events the service publishes when a
// portfolio's records or derived metrics change.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	SnapshotUpdated = "snapshot_updated"
	DigestCompleted = "digest_completed"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	PortfolioID string          `json:"portfolio_id"`
	Summary     string          `json:"summary"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// SnapshotUpdatedPayload describes a replaced portfolio snapshot.
type SnapshotUpdatedPayload struct {
	Tenants     int `json:"tenants"`
	Payments    int `json:"payments"`
	Maintenance int `json:"maintenance_requests"`
	Staff       int `json:"staff"`
}

func NewSnapshotUpdated(portfolioID string, p SnapshotUpdatedPayload) DomainEvent {
	return DomainEvent{
		ID:          newID(),
		EventType:   SnapshotUpdated,
		OccurredAt:  time.Now().UTC(),
		PortfolioID: portfolioID,
		Summary: fmt.Sprintf("Snapshot updated: %d tenants, %d payments, %d maintenance requests",
			p.Tenants, p.Payments, p.Maintenance),
		Payload: mustJSON(p),
	}
}

// DigestCompletedPayload carries the counts of one portfolio's daily digest.
type DigestCompletedPayload struct {
	OverdueTenants    int            `json:"overdue_tenants"`
	OverdueAmount     string         `json:"overdue_amount"`
	ByEscalation      map[string]int `json:"by_escalation"`
	HighRiskTenants   int            `json:"high_risk_tenants"`
	CriticalVacancies int            `json:"critical_vacancies"`
	OpenBreaches      int            `json:"open_breaches"`
}

func NewDigestCompleted(portfolioID string, p DigestCompletedPayload) DomainEvent {
	return DomainEvent{
		ID:          newID(),
		EventType:   DigestCompleted,
		OccurredAt:  time.Now().UTC(),
		PortfolioID: portfolioID,
		Summary: fmt.Sprintf("Digest: %d tenants overdue (%s), %d high risk, %d critical vacancies",
			p.OverdueTenants, p.OverdueAmount, p.HighRiskTenants, p.CriticalVacancies),
		Payload: mustJSON(p),
	}
}
