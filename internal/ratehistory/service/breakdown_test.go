package service

import (
	"math/rand"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func septemberHistory(t *testing.T) []domain.RateRecord {
	return []domain.RateRecord{
		rate(t, "r1", "2.5", "2024-09-01", "2024-09-15"),
		rate(t, "r2", "2.0", "2024-09-16", ""),
	}
}

// septemberDeliveries delivers the scheduled quantity on every day of September.
func septemberDeliveries(t *testing.T, history []domain.RateRecord) []domain.DeliveryRecord {
	out := make([]domain.DeliveryRecord, 0, 30)
	for d := date(t, "2024-09-01"); !d.After(date(t, "2024-09-30")); d = d.AddDays(1) {
		out = append(out, domain.DeliveryRecord{
			Date:            d,
			ScheduledLiters: ResolveRateForDate(history, d, noFallback),
			Status:          domain.DeliveryDelivered,
		})
	}
	return out
}

func flatPricing(price string) domain.PricingLookup {
	return domain.PricingLookupFunc(func(m domain.MilkType, d civil.Date) (domain.PriceInfo, bool) {
		return domain.PriceInfo{
			MilkType:      m,
			PricePerLiter: decimal.RequireFromString(price),
			EffectiveFrom: civil.Date{Year: 2024, Month: 1, Day: 1},
		}, true
	})
}

// TestBuildBillingBreakdown_SeptemberRateChange validates the mid-month rate change scenario.
func TestBuildBillingBreakdown_SeptemberRateChange(t *testing.T) {
	history := septemberHistory(t)
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: septemberDeliveries(t, history),
		Start:      date(t, "2024-09-01"),
		End:        date(t, "2024-09-30"),
		MilkType:   domain.MilkBuffalo,
	})

	require.Len(t, out.Segments, 2)

	first := out.Segments[0]
	assert.Equal(t, "r1", first.RateID)
	assert.Equal(t, date(t, "2024-09-01"), first.EffectiveFrom)
	assert.Equal(t, date(t, "2024-09-15"), first.EffectiveTo)
	assert.Equal(t, 15, first.DaysDelivered)
	assert.Equal(t, "37.5", first.TotalLiters.String())

	second := out.Segments[1]
	assert.Equal(t, "r2", second.RateID)
	assert.Equal(t, date(t, "2024-09-16"), second.EffectiveFrom)
	assert.Equal(t, date(t, "2024-09-30"), second.EffectiveTo)
	assert.Equal(t, 15, second.DaysDelivered)
	assert.Equal(t, "30", second.TotalLiters.String())

	assert.Equal(t, 30, out.Summary.TotalDeliveredDays)
	assert.Equal(t, "67.5", out.Summary.TotalLitersDelivered.String())
	assert.False(t, out.Summary.TotalAmount.Valid)
	assert.False(t, first.TotalAmount.Valid)
	assert.Nil(t, first.Pricing)
}

// TestBuildBillingBreakdown_WithPricing validates amounts per segment and in the summary.
func TestBuildBillingBreakdown_WithPricing(t *testing.T) {
	history := septemberHistory(t)
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: septemberDeliveries(t, history),
		Start:      date(t, "2024-09-01"),
		End:        date(t, "2024-09-30"),
		MilkType:   domain.MilkCow,
		Pricing:    flatPricing("60"),
	})

	require.Len(t, out.Segments, 2)
	require.True(t, out.Segments[0].TotalAmount.Valid)
	assert.Equal(t, "2250", out.Segments[0].TotalAmount.Decimal.String())
	assert.Equal(t, "1800", out.Segments[1].TotalAmount.Decimal.String())

	require.NotNil(t, out.Segments[0].Pricing)
	assert.Equal(t, domain.MilkCow, out.Segments[0].Pricing.MilkType)
	assert.Equal(t, "150", out.Segments[0].Pricing.PricePerDay.String())
	assert.Equal(t, 15, out.Segments[0].Pricing.DaysCount)

	require.True(t, out.Summary.TotalAmount.Valid)
	assert.Equal(t, "4050", out.Summary.TotalAmount.Decimal.String())
}

// TestBuildBillingBreakdown_PartialPricing validates that only priced segments carry amounts.
func TestBuildBillingBreakdown_PartialPricing(t *testing.T) {
	history := septemberHistory(t)
	cutoff := date(t, "2024-09-10")
	lookup := domain.PricingLookupFunc(func(m domain.MilkType, d civil.Date) (domain.PriceInfo, bool) {
		if d.Before(cutoff) {
			return domain.PriceInfo{}, false
		}
		return domain.PriceInfo{MilkType: m, PricePerLiter: decimal.NewFromInt(50), EffectiveFrom: cutoff}, true
	})

	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: septemberDeliveries(t, history),
		Start:      date(t, "2024-09-01"),
		End:        date(t, "2024-09-30"),
		MilkType:   domain.MilkBuffalo,
		Pricing:    lookup,
	})

	require.Len(t, out.Segments, 2)
	assert.False(t, out.Segments[0].TotalAmount.Valid)
	assert.True(t, out.Segments[1].TotalAmount.Valid)
	require.True(t, out.Summary.TotalAmount.Valid)
	assert.Equal(t, "1500", out.Summary.TotalAmount.Decimal.String())
}

// TestBuildBillingBreakdown_NoDeliveries validates zero-valued segments instead of an empty result.
func TestBuildBillingBreakdown_NoDeliveries(t *testing.T) {
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History: septemberHistory(t),
		Start:   date(t, "2024-09-10"),
		End:     date(t, "2024-09-20"),
	})

	require.Len(t, out.Segments, 2)
	for _, seg := range out.Segments {
		assert.Zero(t, seg.DaysDelivered)
		assert.True(t, seg.TotalLiters.IsZero())
		assert.True(t, seg.DeliverySuccessRate.IsZero())
	}
	assert.Equal(t, 6, out.Segments[0].ExpectedDays)
	assert.Equal(t, 5, out.Segments[1].ExpectedDays)
	assert.Zero(t, out.Summary.TotalDeliveredDays)
	assert.True(t, out.Summary.TotalLitersDelivered.IsZero())
}

// TestBuildBillingBreakdown_InvertedRange validates the empty result for end < start.
func TestBuildBillingBreakdown_InvertedRange(t *testing.T) {
	history := septemberHistory(t)
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: septemberDeliveries(t, history),
		Start:      date(t, "2024-09-30"),
		End:        date(t, "2024-09-01"),
		Pricing:    flatPricing("60"),
	})

	assert.NotNil(t, out.Segments)
	assert.Empty(t, out.Segments)
	assert.Zero(t, out.Summary.TotalDeliveredDays)
	assert.True(t, out.Summary.TotalLitersDelivered.IsZero())
	assert.False(t, out.Summary.TotalAmount.Valid)
}

// TestBuildBillingBreakdown_ClipsAndDropsSegments validates clipping to the range and dropping non-overlapping records.
func TestBuildBillingBreakdown_ClipsAndDropsSegments(t *testing.T) {
	history := []domain.RateRecord{
		rate(t, "old", "1.0", "2024-01-01", "2024-06-30"),
		rate(t, "mid", "2.0", "2024-07-01", "2024-09-15"),
		rate(t, "new", "3.0", "2024-09-16", ""),
	}
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History: history,
		Start:   date(t, "2024-09-01"),
		End:     date(t, "2024-09-30"),
	})

	require.Len(t, out.Segments, 2)
	assert.Equal(t, "mid", out.Segments[0].RateID)
	assert.Equal(t, date(t, "2024-09-01"), out.Segments[0].EffectiveFrom)
	assert.Equal(t, "new", out.Segments[1].RateID)
	assert.Equal(t, date(t, "2024-09-30"), out.Segments[1].EffectiveTo)
}

// TestBuildBillingBreakdown_StatusesAndActuals validates delivered-only counting and the actual/scheduled choice.
func TestBuildBillingBreakdown_StatusesAndActuals(t *testing.T) {
	history := []domain.RateRecord{rate(t, "r1", "2.0", "2024-09-01", "")}
	deliveries := []domain.DeliveryRecord{
		{Date: date(t, "2024-09-01"), ScheduledLiters: decimal.NewFromInt(2), ActualLiters: decimal.NewNullDecimal(decimal.RequireFromString("1.75")), Status: domain.DeliveryDelivered},
		{Date: date(t, "2024-09-02"), ScheduledLiters: decimal.NewFromInt(2), Status: domain.DeliveryDelivered},
		{Date: date(t, "2024-09-03"), ScheduledLiters: decimal.NewFromInt(2), Status: domain.DeliverySkipped, Reason: "traveling"},
		{Date: date(t, "2024-09-04"), ScheduledLiters: decimal.NewFromInt(2), Status: domain.DeliveryFailed, Reason: "gate locked"},
		{Date: date(t, "2024-09-05"), ScheduledLiters: decimal.NewFromInt(2), Status: domain.DeliveryScheduled},
		// Outside the range.
		{Date: date(t, "2024-10-01"), ScheduledLiters: decimal.NewFromInt(2), Status: domain.DeliveryDelivered},
	}

	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: deliveries,
		Start:      date(t, "2024-09-01"),
		End:        date(t, "2024-09-05"),
	})

	require.Len(t, out.Segments, 1)
	seg := out.Segments[0]
	assert.Equal(t, 2, seg.DaysDelivered)
	assert.Equal(t, "3.75", seg.TotalLiters.String())
	assert.Equal(t, 5, seg.ExpectedDays)
	assert.Equal(t, "40", seg.DeliverySuccessRate.String())
}

// TestBuildBillingBreakdown_OverlappingSegments validates that a later record takes over the days it overlaps.
func TestBuildBillingBreakdown_OverlappingSegments(t *testing.T) {
	history := []domain.RateRecord{
		rate(t, "A", "2.0", "2024-01-01", ""),
		rate(t, "B", "3.0", "2024-06-01", ""),
	}
	deliveries := []domain.DeliveryRecord{
		{Date: date(t, "2024-05-31"), ScheduledLiters: decimal.NewFromInt(2), Status: domain.DeliveryDelivered},
		{Date: date(t, "2024-06-01"), ScheduledLiters: decimal.NewFromInt(3), Status: domain.DeliveryDelivered},
	}
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: deliveries,
		Start:      date(t, "2024-05-31"),
		End:        date(t, "2024-06-01"),
	})

	require.Len(t, out.Segments, 2)
	assert.Equal(t, "A", out.Segments[0].RateID)
	assert.Equal(t, date(t, "2024-05-31"), out.Segments[0].EffectiveTo)
	assert.Equal(t, 1, out.Segments[0].DaysDelivered)
	assert.Equal(t, "B", out.Segments[1].RateID)
	assert.Equal(t, date(t, "2024-06-01"), out.Segments[1].EffectiveFrom)
	assert.Equal(t, 1, out.Segments[1].DaysDelivered)
	assert.Equal(t, 2, out.Summary.TotalDeliveredDays)
	assert.Equal(t, "5", out.Summary.TotalLitersDelivered.String())
}

// TestBuildBillingBreakdown_OverlapLoserDropped validates that a record covered entirely by a later one yields no segment.
func TestBuildBillingBreakdown_OverlapLoserDropped(t *testing.T) {
	history := []domain.RateRecord{
		rate(t, "A", "2.0", "2024-01-01", ""),
		rate(t, "B", "3.0", "2024-06-01", ""),
	}
	deliveries := []domain.DeliveryRecord{
		{Date: date(t, "2024-07-01"), ScheduledLiters: decimal.NewFromInt(3), Status: domain.DeliveryDelivered},
	}
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: deliveries,
		Start:      date(t, "2024-07-01"),
		End:        date(t, "2024-07-01"),
	})

	require.Len(t, out.Segments, 1)
	assert.Equal(t, "B", out.Segments[0].RateID)
	assert.Equal(t, 1, out.Summary.TotalDeliveredDays)
	assert.Equal(t, "3", out.Summary.TotalLitersDelivered.String())
}

// TestBuildBillingBreakdown_NestedOverride validates a closed record inside an open one splits it into two stretches.
func TestBuildBillingBreakdown_NestedOverride(t *testing.T) {
	history := []domain.RateRecord{
		rate(t, "base", "1.5", "2024-01-01", ""),
		rate(t, "march", "2.0", "2024-03-01", "2024-03-31"),
	}
	start, end := date(t, "2024-02-15"), date(t, "2024-04-10")

	var deliveries []domain.DeliveryRecord
	expected := decimal.Zero
	for d := start; !d.After(end); d = d.AddDays(1) {
		liters := ResolveRateForDate(history, d, noFallback)
		expected = expected.Add(liters)
		deliveries = append(deliveries, domain.DeliveryRecord{Date: d, ScheduledLiters: liters, Status: domain.DeliveryDelivered})
	}

	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: deliveries,
		Start:      start,
		End:        end,
	})

	require.Len(t, out.Segments, 3)
	assert.Equal(t, []string{"base", "march", "base"}, []string{out.Segments[0].RateID, out.Segments[1].RateID, out.Segments[2].RateID})
	assert.Equal(t, date(t, "2024-02-29"), out.Segments[0].EffectiveTo)
	assert.Equal(t, 31, out.Segments[1].ExpectedDays)
	assert.Equal(t, date(t, "2024-04-01"), out.Segments[2].EffectiveFrom)

	assert.Equal(t, len(deliveries), out.Summary.TotalDeliveredDays)
	assert.True(t, expected.Equal(out.Summary.TotalLitersDelivered), "got %s want %s", out.Summary.TotalLitersDelivered, expected)
}

// TestBuildBillingBreakdown_EqualStartsKeepInputOrder validates the tie-break shared with the resolver.
func TestBuildBillingBreakdown_EqualStartsKeepInputOrder(t *testing.T) {
	history := []domain.RateRecord{
		rate(t, "first", "1.0", "2024-09-01", ""),
		rate(t, "second", "4.0", "2024-09-01", ""),
	}
	out := BuildBillingBreakdown(domain.BreakdownInput{
		History: history,
		Start:   date(t, "2024-09-01"),
		End:     date(t, "2024-09-30"),
	})

	require.Len(t, out.Segments, 1)
	assert.Equal(t, "first", out.Segments[0].RateID)
	assert.Equal(t, "1", ResolveRateForDate(history, date(t, "2024-09-10"), noFallback).String())
}

// TestBuildBillingBreakdown_LitersRoundTrip validates that segment totals add up to the delivered records exactly.
func TestBuildBillingBreakdown_LitersRoundTrip(t *testing.T) {
	history := []domain.RateRecord{
		rate(t, "r1", "1.5", "2024-01-01", "2024-01-09"),
		rate(t, "r2", "2.5", "2024-01-10", "2024-02-03"),
		rate(t, "r3", "0.5", "2024-02-04", "2024-02-04"),
		rate(t, "r4", "3.0", "2024-02-05", ""),
	}
	start, end := date(t, "2024-01-05"), date(t, "2024-03-10")
	statuses := []domain.DeliveryStatus{domain.DeliveryDelivered, domain.DeliveryFailed, domain.DeliverySkipped, domain.DeliveryScheduled}
	rng := rand.New(rand.NewSource(42))

	expectedLiters := decimal.Zero
	expectedDays := 0
	var deliveries []domain.DeliveryRecord
	for d := start; !d.After(end); d = d.AddDays(1) {
		rec := domain.DeliveryRecord{
			Date:            d,
			ScheduledLiters: ResolveRateForDate(history, d, noFallback),
			Status:          statuses[rng.Intn(len(statuses))],
		}
		if rng.Intn(2) == 0 {
			rec.ActualLiters = decimal.NewNullDecimal(decimal.New(int64(rng.Intn(40)), -1))
		}
		if rec.Status == domain.DeliveryDelivered {
			expectedDays++
			expectedLiters = expectedLiters.Add(rec.DeliveredLiters())
		}
		deliveries = append(deliveries, rec)
	}

	out := BuildBillingBreakdown(domain.BreakdownInput{
		History:    history,
		Deliveries: deliveries,
		Start:      start,
		End:        end,
	})

	require.Len(t, out.Segments, 4)
	assert.Equal(t, expectedDays, out.Summary.TotalDeliveredDays)
	assert.True(t, expectedLiters.Equal(out.Summary.TotalLitersDelivered),
		"want %s got %s", expectedLiters, out.Summary.TotalLitersDelivered)

	sum := decimal.Zero
	for _, seg := range out.Segments {
		sum = sum.Add(seg.TotalLiters)
	}
	assert.True(t, sum.Equal(expectedLiters))
}

// TestBuildBillingBreakdown_EmptyHistory validates that no history means no segments.
func TestBuildBillingBreakdown_EmptyHistory(t *testing.T) {
	out := BuildBillingBreakdown(domain.BreakdownInput{
		Start: date(t, "2024-09-01"),
		End:   date(t, "2024-09-30"),
	})
	assert.Empty(t, out.Segments)
	assert.Equal(t, date(t, "2024-09-01"), out.Period.StartDate)
}
