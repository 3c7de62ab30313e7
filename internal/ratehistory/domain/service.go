package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// BreakdownInput groups the arguments of a billing breakdown.
type BreakdownInput struct {
	History    []RateRecord
	Deliveries []DeliveryRecord
	Start      civil.Date
	End        civil.Date
	MilkType   MilkType
	Pricing    PricingLookup
}

// Service resolves rates and builds billing breakdowns. It never fails:
// degenerate input yields fallbacks and zeros.
type Service interface {
	ResolveRateForDate(history []RateRecord, date civil.Date, fallback decimal.NullDecimal) decimal.Decimal
	ResolveCurrentRate(history []RateRecord, fallback decimal.NullDecimal) decimal.Decimal
	BuildBillingBreakdown(in BreakdownInput) Breakdown
	AverageRate(history []RateRecord) decimal.Decimal
}
