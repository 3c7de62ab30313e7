package statement

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used to parse phone numbers written without a country code.
const DefaultRegion = "IN"

const currencySymbol = "₹"

// Currency renders an amount as "₹ 1234.50".
func Currency(d decimal.Decimal) string {
	return currencySymbol + " " + d.StringFixed(2)
}

// OptionalCurrency renders "-" for an absent amount.
func OptionalCurrency(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return Currency(d.Decimal)
}

// Liters renders a quantity as "2.50 L".
func Liters(d decimal.Decimal) string {
	return d.StringFixed(2) + " L"
}

// Percent renders an already-scaled percentage as "93.33%".
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// Date renders d as "Sep 01, 2024". Invalid dates come back as "Invalid Date".
func Date(d civil.Date) string {
	if !d.IsValid() {
		return "Invalid Date"
	}
	return d.In(time.UTC).Format("Jan 02, 2006")
}

// Phone renders raw in international form, e.g. "+91 98765 43210". Input that
// does not parse as a valid number is returned unchanged.
func Phone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	num, err := libphonenumber.Parse(trimmed, DefaultRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.INTERNATIONAL)
}

var statusLabels = map[ratedomain.DeliveryStatus]string{
	ratedomain.DeliveryScheduled: "Scheduled",
	ratedomain.DeliveryDelivered: "Delivered",
	ratedomain.DeliveryFailed:    "Failed",
	ratedomain.DeliverySkipped:   "Skipped",
}

// DeliveryStatusLabel falls back to the raw status for unknown values.
func DeliveryStatusLabel(status ratedomain.DeliveryStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

var skipReasonLabels = map[string]string{
	"traveling":    "Traveling",
	"excess_stock": "Excess Stock",
	"health":       "Health Issues",
	"other":        "Other",
}

// SkipReasonLabel falls back to the raw reason for unknown values.
func SkipReasonLabel(reason string) string {
	if label, ok := skipReasonLabels[reason]; ok {
		return label
	}
	return reason
}

// MilkTypeLabel capitalizes the milk type for headings.
func MilkTypeLabel(m ratedomain.MilkType) string {
	s := string(m)
	if s == "" {
		return "-"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
