package types

// Priority is the urgency of a maintenance request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists priorities from most to least urgent.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// RequestStatus is the lifecycle state of a maintenance request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentPartial   PaymentStatus = "partial"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentType distinguishes rent from utility charges.
type PaymentType string

const (
	PaymentTypeRent        PaymentType = "rent"
	PaymentTypeWater       PaymentType = "water"
	PaymentTypeElectricity PaymentType = "electricity"
)

// Language is a message language code.
type Language string

const (
	English Language = "en"
	Swahili Language = "sw"
)

// Grade is a staff SLA performance grade.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeFair      Grade = "fair"
	GradePoor      Grade = "poor"
)

// RiskLevel is a tenant payment-risk bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// VacancyRisk is a vacancy-likelihood bucket.
type VacancyRisk string

const (
	VacancyLow      VacancyRisk = "low"
	VacancyMedium   VacancyRisk = "medium"
	VacancyHigh     VacancyRisk = "high"
	VacancyCritical VacancyRisk = "critical"
)

// Escalation is a rent-chasing tone, ordered by severity.
type Escalation string

const (
	EscalationUpcoming Escalation = "upcoming"
	EscalationFriendly Escalation = "friendly"
	EscalationFirm     Escalation = "firm"
	EscalationUrgent   Escalation = "urgent"
	EscalationFinal    Escalation = "final"
)

// Escalations lists levels from least to most severe.
var Escalations = []Escalation{
	EscalationUpcoming,
	EscalationFriendly,
	EscalationFirm,
	EscalationUrgent,
	EscalationFinal,
}

// Severity returns the position of e in Escalations, or -1 for an unknown level.
func (e Escalation) Severity() int {
	for i, lvl := range Escalations {
		if lvl == e {
			return i
		}
	}
	return -1
}

// Channel is a messaging channel for rent reminders.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)
