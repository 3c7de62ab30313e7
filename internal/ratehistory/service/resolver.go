package service

import (
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

// resolution records which branch of the fallback chain produced a rate.
type resolution string

const (
	resolvedMatch    resolution = "match"
	resolvedFallback resolution = "fallback"
	resolvedLatest   resolution = "latest"
	resolvedZero     resolution = "zero"
)

// ResolveRateForDate returns the daily liters in effect on date.
//
// Records are scanned newest effective_from first, so when segments overlap the
// most recently started one wins, including for dates inside an older segment
// that was never closed. When no record covers the date the result falls back
// to fallback, then the newest record, then zero.
func ResolveRateForDate(history []domain.RateRecord, date civil.Date, fallback decimal.NullDecimal) decimal.Decimal {
	rate, _ := resolveRate(history, date, fallback)
	return rate
}

func resolveRate(history []domain.RateRecord, date civil.Date, fallback decimal.NullDecimal) (decimal.Decimal, resolution) {
	sorted := sortByStartDesc(history)
	for _, rec := range sorted {
		if rec.Covers(date) {
			return rec.DailyLiters, resolvedMatch
		}
	}
	if fallback.Valid {
		return fallback.Decimal, resolvedFallback
	}
	if len(sorted) > 0 {
		return sorted[0].DailyLiters, resolvedLatest
	}
	return decimal.Zero, resolvedZero
}

// sortByStartDesc returns a copy ordered by effective_from descending.
// Equal starts keep their input order.
func sortByStartDesc(history []domain.RateRecord) []domain.RateRecord {
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b domain.RateRecord) int {
		return b.EffectiveFrom.DaysSince(a.EffectiveFrom)
	})
	return sorted
}

// AverageRate is the mean daily quantity across all records, to 2 places.
func AverageRate(history []domain.RateRecord) decimal.Decimal {
	if len(history) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, rec := range history {
		sum = sum.Add(rec.DailyLiters)
	}
	return sum.Div(decimal.NewFromInt(int64(len(history)))).Round(2)
}
