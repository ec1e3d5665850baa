// Package chasing decides how hard to chase each tenant for unpaid rent and
// drafts the reminder to send.
//
// Tenants are classified by their most overdue rent payment into one
// escalation level, from a courtesy reminder a few days before the due date
// up to a final notice. Every level has an SMS and a WhatsApp template in
// English and Swahili; all four variants are rendered for every tenant, and
// deep links are built in the tenant's preferred language.
package chasing

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/rentmetrics/internal/format"
	"github.com/matthewbaird/rentmetrics/internal/policy"
	"github.com/matthewbaird/rentmetrics/internal/portfolio"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// OverduePayment is one unpaid rent charge being chased. Amount is the full
// charge: records carry no remaining balance, so a partially paid charge is
// chased for its whole amount.
type OverduePayment struct {
	PaymentID   string          `json:"paymentId"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"dueDate"`
	DaysOverdue int             `json:"daysOverdue"` // negative when not yet due
}

// SuggestedMessage carries every rendered variant plus the recommended channel.
type SuggestedMessage struct {
	SMS             string        `json:"sms"`
	WhatsApp        string        `json:"whatsapp"`
	SMSSwahili      string        `json:"smsSwahili"`
	WhatsAppSwahili string        `json:"whatsappSwahili"`
	Channel         types.Channel `json:"channel"`
}

// Links are pre-filled messaging deep links. Both are empty when the tenant
// has no usable phone number.
type Links struct {
	WhatsApp string `json:"whatsapp"`
	SMS      string `json:"sms"`
}

// OverdueTenant is a tenant with rent that is overdue or about to fall due.
// TotalOverdue sums the overdue payments only; rent that is not due yet is
// counted only when nothing is overdue.
type OverdueTenant struct {
	TenantID         string           `json:"tenantId"`
	TenantName       string           `json:"tenantName"`
	Phone            string           `json:"phone"`
	UnitNumber       string           `json:"unitNumber"`
	PropertyName     string           `json:"propertyName"`
	Language         types.Language   `json:"language"`
	TotalOverdue     decimal.Decimal  `json:"totalOverdue"`
	MaxDaysOverdue   int              `json:"maxDaysOverdue"`
	OverduePayments  []OverduePayment `json:"overduePayments"`
	Escalation       types.Escalation `json:"escalation"`
	SuggestedMessage SuggestedMessage `json:"suggestedMessage"`
	Links            Links            `json:"links"`
}

// Summary is the chasing triage list for a portfolio.
type Summary struct {
	Tenants      []OverdueTenant          `json:"tenants"`
	TotalOverdue int                      `json:"totalOverdue"`
	TotalAmount  decimal.Decimal          `json:"totalAmount"`
	ByEscalation map[types.Escalation]int `json:"byEscalation"`
}

// Engine classifies arrears and drafts reminders under one policy.
type Engine struct {
	policy  *policy.Policy
	catalog *Catalog
	logger  *slog.Logger
}

// New creates an Engine with the embedded message catalog. Nil arguments
// fall back to the default policy and logger.
func New(p *policy.Policy, logger *slog.Logger) *Engine {
	if p == nil {
		p = policy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: p, catalog: DefaultCatalog(), logger: logger}
}

// WithCatalog returns a copy of e that renders from c.
func (e *Engine) WithCatalog(c *Catalog) *Engine {
	cp := *e
	cp.catalog = c
	return &cp
}

// GenerateChasingSummary builds the chasing summary with the default policy.
func GenerateChasingSummary(tenants []types.Tenant, payments []types.Payment, now time.Time) Summary {
	return New(nil, nil).GenerateChasingSummary(tenants, payments, now)
}

// GetWhatsAppLink builds a wa.me link for phone, normalized with the default
// country code.
func GetWhatsAppLink(phone, text string) string {
	return format.WhatsAppLink(format.NormalizePhone(phone, policy.Default().DefaultCountryCode), text)
}

// GetSMSLink builds an sms: link for phone, normalized with the default
// country code.
func GetSMSLink(phone, text string) string {
	return format.SMSLink(format.NormalizePhone(phone, policy.Default().DefaultCountryCode), text)
}

// GenerateChasingSummary classifies every tenant with unpaid rent that is
// overdue or due within the upcoming window, most severe first. Tenants with
// nothing to chase are left out.
func (e *Engine) GenerateChasingSummary(tenants []types.Tenant, payments []types.Payment, now time.Time) Summary {
	ix := portfolio.NewIndex(tenants, payments, nil, e.logger.With(slog.String("engine", "chasing")))

	summary := Summary{
		Tenants:      []OverdueTenant{},
		TotalAmount:  decimal.Zero,
		ByEscalation: make(map[types.Escalation]int, len(types.Escalations)),
	}
	for _, lvl := range types.Escalations {
		summary.ByEscalation[lvl] = 0
	}

	for i, t := range tenants {
		ot, ok := e.classify(t, ix.Payments(i), now)
		if !ok {
			continue
		}
		e.draft(&ot, t)
		summary.Tenants = append(summary.Tenants, ot)
		summary.TotalAmount = summary.TotalAmount.Add(ot.TotalOverdue)
		summary.ByEscalation[ot.Escalation]++
	}
	summary.TotalOverdue = len(summary.Tenants)

	sort.SliceStable(summary.Tenants, func(i, j int) bool {
		a, b := summary.Tenants[i], summary.Tenants[j]
		if sa, sb := a.Escalation.Severity(), b.Escalation.Severity(); sa != sb {
			return sa > sb
		}
		if a.MaxDaysOverdue != b.MaxDaysOverdue {
			return a.MaxDaysOverdue > b.MaxDaysOverdue
		}
		if c := a.TotalOverdue.Cmp(b.TotalOverdue); c != 0 {
			return c > 0
		}
		return a.TenantID < b.TenantID
	})
	return summary
}

// classify collects the tenant's chaseable rent and picks the escalation
// level from the most overdue payment.
func (e *Engine) classify(t types.Tenant, payments []types.Payment, now time.Time) (OverdueTenant, bool) {
	window := e.policy.UpcomingWindowDays()
	var owed []OverduePayment
	for _, p := range payments {
		if !p.IsRent() || p.IsSettled() || p.DueDate == nil {
			continue
		}
		days := types.DaysBetween(*p.DueDate, now)
		if days < -window {
			continue
		}
		owed = append(owed, OverduePayment{
			PaymentID:   p.ID,
			Amount:      p.Amount,
			DueDate:     *p.DueDate,
			DaysOverdue: days,
		})
	}
	if len(owed) == 0 {
		return OverdueTenant{}, false
	}
	sort.SliceStable(owed, func(i, j int) bool {
		if owed[i].DaysOverdue != owed[j].DaysOverdue {
			return owed[i].DaysOverdue > owed[j].DaysOverdue
		}
		return owed[i].PaymentID < owed[j].PaymentID
	})

	// Rent not yet due only counts toward the total when nothing is overdue.
	overdueTotal, upcomingTotal := decimal.Zero, decimal.Zero
	for _, o := range owed {
		if o.DaysOverdue > 0 {
			overdueTotal = overdueTotal.Add(o.Amount)
		} else {
			upcomingTotal = upcomingTotal.Add(o.Amount)
		}
	}
	total := overdueTotal
	if total.IsZero() {
		total = upcomingTotal
	}
	maxDays := owed[0].DaysOverdue
	level, ok := e.policy.Escalation(maxDays)
	if !ok {
		return OverdueTenant{}, false
	}
	return OverdueTenant{
		TenantID:        t.ID,
		TenantName:      t.DisplayName(),
		Phone:           t.Phone,
		UnitNumber:      t.UnitNumber,
		PropertyName:    t.PropertyName,
		Language:        t.Language(),
		TotalOverdue:    total,
		MaxDaysOverdue:  maxDays,
		OverduePayments: owed,
		Escalation:      level,
	}, true
}

// draft renders the four message variants and the deep links.
func (e *Engine) draft(ot *OverdueTenant, t types.Tenant) {
	data := MessageData{
		Name:        ot.TenantName,
		Amount:      format.FormatCurrency(ot.TotalOverdue, e.policy.Currency),
		Unit:        ot.UnitNumber,
		Property:    ot.PropertyName,
		DueDate:     format.FormatDate(ot.OverduePayments[0].DueDate),
		DaysOverdue: ot.MaxDaysOverdue,
		Count:       countTotaled(ot.OverduePayments),
	}
	msg := SuggestedMessage{
		SMS:             e.render(types.English, ot.Escalation, types.ChannelSMS, data, ot.TenantID),
		WhatsApp:        e.render(types.English, ot.Escalation, types.ChannelWhatsApp, data, ot.TenantID),
		SMSSwahili:      e.render(types.Swahili, ot.Escalation, types.ChannelSMS, data, ot.TenantID),
		WhatsAppSwahili: e.render(types.Swahili, ot.Escalation, types.ChannelWhatsApp, data, ot.TenantID),
		Channel:         types.ChannelWhatsApp,
	}
	if band, ok := e.policy.EscalationBand(ot.Escalation); ok {
		msg.Channel = types.Channel(band.Channel)
	}
	ot.SuggestedMessage = msg

	phone := format.NormalizePhone(t.Phone, e.policy.DefaultCountryCode)
	if phone == "" {
		return
	}
	smsText, waText := msg.SMS, msg.WhatsApp
	if ot.Language == types.Swahili {
		smsText, waText = msg.SMSSwahili, msg.WhatsAppSwahili
	}
	ot.Links = Links{
		WhatsApp: format.WhatsAppLink(phone, waText),
		SMS:      format.SMSLink(phone, smsText),
	}
}

// countTotaled counts the payments that make up TotalOverdue.
func countTotaled(owed []OverduePayment) int {
	n := 0
	for _, o := range owed {
		if o.DaysOverdue > 0 {
			n++
		}
	}
	if n == 0 {
		return len(owed)
	}
	return n
}

func (e *Engine) render(lang types.Language, level types.Escalation, ch types.Channel, data MessageData, tenantID string) string {
	text, err := e.catalog.Render(lang, level, ch, data)
	if err != nil {
		e.logger.Warn("chasing: message render failed",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		return ""
	}
	return text
}
