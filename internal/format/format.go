// Package format renders amounts, durations, dates, and messaging deep links
// the same way on every dashboard page and in every generated message.
package format

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatCurrency renders amount with thousands separators, e.g. "KES 12,500"
// or "KES 1,250.50". Whole amounts drop the decimals.
func FormatCurrency(amount decimal.Decimal, currency string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	rounded := amount.Round(2)
	var body string
	if rounded.Equal(rounded.Truncate(0)) {
		body = humanize.Comma(rounded.IntPart())
	} else {
		frac := rounded.Sub(rounded.Truncate(0)).Shift(2).IntPart()
		body = fmt.Sprintf("%s.%02d", humanize.Comma(rounded.IntPart()), frac)
	}
	if currency == "" {
		return sign + body
	}
	return currency + " " + sign + body
}

// FormatHours renders a duration given in hours: "45m" under an hour,
// "3.5h" under a day, and "2d 4h" beyond that.
func FormatHours(hours float64) string {
	if hours < 0 || math.IsNaN(hours) {
		return "-"
	}
	if hours < 1 {
		return fmt.Sprintf("%dm", int(math.Round(hours*60)))
	}
	if hours < 24 {
		h := math.Round(hours*10) / 10
		if h == math.Trunc(h) {
			return fmt.Sprintf("%dh", int(h))
		}
		return fmt.Sprintf("%.1fh", h)
	}
	total := int(math.Round(hours))
	days, rem := total/24, total%24
	if rem == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, rem)
}

// FormatDate renders t as "2 Jan 2006".
func FormatDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}

// NormalizePhone reduces raw to international digits without a plus sign.
// Local numbers starting with 0 get countryCode in place of the 0. It
// returns "" when raw holds no usable number.
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) < 7:
		return ""
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "0") && countryCode != "":
		digits = countryCode + digits[1:]
	case !strings.HasPrefix(strings.TrimSpace(raw), "+") && countryCode != "" &&
		len(digits) == 9 && !strings.HasPrefix(digits, countryCode):
		// Subscriber number without trunk prefix, e.g. 712345678.
		digits = countryCode + digits
	}
	return digits
}

// WhatsAppLink builds a wa.me link that opens a chat with text pre-filled.
// It returns "" when phone is empty.
func WhatsAppLink(phone, text string) string {
	if phone == "" {
		return ""
	}
	return "https://wa.me/" + phone + "?text=" + escape(text)
}

// SMSLink builds an sms: link with the body pre-filled. It returns "" when
// phone is empty.
func SMSLink(phone, text string) string {
	if phone == "" {
		return ""
	}
	return "sms:+" + phone + "?body=" + escape(text)
}

// escape query-encodes text with spaces as %20, which both WhatsApp and
// handset SMS apps decode.
func escape(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
