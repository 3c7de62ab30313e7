// Package domain holds the rate ledger types shared by resolution, billing and statements.
package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RateRecord is one effective-dated segment of a subscription's daily quantity.
// EffectiveTo is inclusive; nil means the segment is still open.
type RateRecord struct {
	ID            string          `json:"id"`
	DailyLiters   decimal.Decimal `json:"daily_liters"`
	EffectiveFrom civil.Date      `json:"effective_from"`
	EffectiveTo   *civil.Date     `json:"effective_to"`
	IsActive      bool            `json:"is_active"`
}

// Covers reports whether d falls inside the record's inclusive window.
func (r RateRecord) Covers(d civil.Date) bool {
	if d.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !d.After(*r.EffectiveTo)
}

type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "scheduled"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliverySkipped   DeliveryStatus = "skipped"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryScheduled, DeliveryDelivered, DeliveryFailed, DeliverySkipped:
		return true
	default:
		return false
	}
}

// DeliveryRecord is one day's delivery outcome.
type DeliveryRecord struct {
	ID              string              `json:"id,omitempty"`
	Date            civil.Date          `json:"date"`
	ScheduledLiters decimal.Decimal     `json:"scheduled_liters"`
	ActualLiters    decimal.NullDecimal `json:"actual_liters"`
	Status          DeliveryStatus      `json:"status"`
	Reason          string              `json:"reason,omitempty"`
	RateID          string              `json:"rate_id,omitempty"`
	UserID          string              `json:"user_id,omitempty"`
}

// DeliveredLiters is the billable quantity: actual when recorded, else scheduled.
func (d DeliveryRecord) DeliveredLiters() decimal.Decimal {
	if d.ActualLiters.Valid {
		return d.ActualLiters.Decimal
	}
	return d.ScheduledLiters
}

type MilkType string

const (
	MilkBuffalo MilkType = "buffalo"
	MilkCow     MilkType = "cow"
)

func (m MilkType) Valid() bool {
	return m == MilkBuffalo || m == MilkCow
}

// PriceInfo is one entry of the milk rate card.
type PriceInfo struct {
	MilkType      MilkType        `json:"milk_type"`
	PricePerLiter decimal.Decimal `json:"price_per_liter"`
	EffectiveFrom civil.Date      `json:"pricing_effective_from"`
	EffectiveTo   *civil.Date     `json:"pricing_effective_to"`
}

// PricingLookup maps a milk type and date to a price. ok is false when the
// rate card has nothing for that date.
type PricingLookup interface {
	PriceFor(milkType MilkType, date civil.Date) (info PriceInfo, ok bool)
}

// PricingLookupFunc adapts a function to PricingLookup.
type PricingLookupFunc func(MilkType, civil.Date) (PriceInfo, bool)

func (f PricingLookupFunc) PriceFor(milkType MilkType, date civil.Date) (PriceInfo, bool) {
	return f(milkType, date)
}

// NoPricing is a lookup that never has a price.
var NoPricing PricingLookup = PricingLookupFunc(func(MilkType, civil.Date) (PriceInfo, bool) {
	return PriceInfo{}, false
})

// SegmentPricing is attached to a segment when a price was found.
type SegmentPricing struct {
	MilkType      MilkType        `json:"milk_type"`
	PricePerLiter decimal.Decimal `json:"price_per_liter"`
	DailyLiters   decimal.Decimal `json:"daily_liters"`
	PricePerDay   decimal.Decimal `json:"price_per_day"`
	EffectiveFrom civil.Date      `json:"pricing_effective_from"`
	EffectiveTo   *civil.Date     `json:"pricing_effective_to"`
	DaysCount     int             `json:"days_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// BillingSegment is a rate record clipped to a billing period with its deliveries aggregated.
type BillingSegment struct {
	RateID              string              `json:"rate_id"`
	DailyLiters         decimal.Decimal     `json:"daily_liters"`
	EffectiveFrom       civil.Date          `json:"effective_from"`
	EffectiveTo         civil.Date          `json:"effective_to"`
	ExpectedDays        int                 `json:"expected_delivery_days"`
	DaysDelivered       int                 `json:"days_delivered"`
	TotalLiters         decimal.Decimal     `json:"total_liters"`
	TotalAmount         decimal.NullDecimal `json:"total_amount"`
	DeliverySuccessRate decimal.Decimal     `json:"delivery_success_rate"`
	Pricing             *SegmentPricing     `json:"pricing,omitempty"`
}

type Period struct {
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`
}

type Summary struct {
	TotalDeliveredDays   int                 `json:"total_delivered_days"`
	TotalLitersDelivered decimal.Decimal     `json:"total_liters_delivered"`
	TotalAmount          decimal.NullDecimal `json:"total_amount"`
}

// Breakdown is the full decomposition of a billing period.
type Breakdown struct {
	Period   Period           `json:"billing_period"`
	Segments []BillingSegment `json:"rate_breakdown"`
	Summary  Summary          `json:"summary"`
}
