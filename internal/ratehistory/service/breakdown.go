package service

import (
	"slices"

	"cloud.google.com/go/civil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
)

var hundred = decimal.NewFromInt(100)

// BuildBillingBreakdown splits [in.Start, in.End] into windows owned by the
// rate record ResolveRateForDate would pick on each day, and aggregates the
// delivered quantity inside each window. Overlapping records never share a
// day, so every delivery lands in at most one segment. A record that wins
// two separate stretches yields one segment per stretch.
//
// An inverted range yields an empty breakdown. Segments come back ordered by
// their clipped start. Amounts are only present for segments the pricing
// lookup could price; the summary amount is absent when none could.
func BuildBillingBreakdown(in domain.BreakdownInput) domain.Breakdown {
	out := domain.Breakdown{
		Period:   domain.Period{StartDate: in.Start, EndDate: in.End},
		Segments: []domain.BillingSegment{},
		Summary:  domain.Summary{TotalLitersDelivered: decimal.Zero},
	}
	if in.End.Before(in.Start) {
		return out
	}

	pricing := in.Pricing
	if pricing == nil {
		pricing = domain.NoPricing
	}

	end := in.End
	deliveries := lo.Filter(in.Deliveries, func(d domain.DeliveryRecord, _ int) bool {
		return calendar.Within(d.Date, in.Start, &end)
	})

	for _, w := range partition(in.History, in.Start, in.End) {
		out.Segments = append(out.Segments, buildSegment(w.rec, w.from, w.to, deliveries, in.MilkType, pricing))
	}

	slices.SortStableFunc(out.Segments, func(a, b domain.BillingSegment) int {
		return a.EffectiveFrom.DaysSince(b.EffectiveFrom)
	})

	out.Summary = summarize(out.Segments)
	return out
}

type window struct {
	rec      domain.RateRecord
	from, to civil.Date
}

// partition assigns every day of [start, end] covered by some record to the
// record with the latest effective_from, input order breaking ties. The set
// of covering records only changes at a record's start or the day after its
// end, so the winner is decided once per stretch between those cut points.
func partition(history []domain.RateRecord, start, end civil.Date) []window {
	if len(history) == 0 {
		return nil
	}
	cuts := []civil.Date{start}
	addCut := func(d civil.Date) {
		if d.After(start) && !d.After(end) {
			cuts = append(cuts, d)
		}
	}
	for _, rec := range history {
		addCut(rec.EffectiveFrom)
		if rec.EffectiveTo != nil {
			addCut(rec.EffectiveTo.AddDays(1))
		}
	}
	slices.SortFunc(cuts, func(a, b civil.Date) int { return a.DaysSince(b) })
	cuts = slices.Compact(cuts)

	ranked := sortByStartDesc(history)
	var out []window
	lastWinner := -1
	for i, from := range cuts {
		to := end
		if i+1 < len(cuts) {
			to = cuts[i+1].AddDays(-1)
		}
		winner := slices.IndexFunc(ranked, func(r domain.RateRecord) bool { return r.Covers(from) })
		if winner < 0 {
			lastWinner = -1
			continue
		}
		if winner == lastWinner {
			out[len(out)-1].to = to
			continue
		}
		out = append(out, window{rec: ranked[winner], from: from, to: to})
		lastWinner = winner
	}
	return out
}

func buildSegment(rec domain.RateRecord, from, to civil.Date, deliveries []domain.DeliveryRecord, milkType domain.MilkType, pricing domain.PricingLookup) domain.BillingSegment {
	seg := domain.BillingSegment{
		RateID:              rec.ID,
		DailyLiters:         rec.DailyLiters,
		EffectiveFrom:       from,
		EffectiveTo:         to,
		ExpectedDays:        calendar.DaysInclusive(from, to),
		TotalLiters:         decimal.Zero,
		DeliverySuccessRate: decimal.Zero,
	}

	for _, d := range deliveries {
		if d.Status != domain.DeliveryDelivered || !calendar.Within(d.Date, from, &to) {
			continue
		}
		seg.DaysDelivered++
		seg.TotalLiters = seg.TotalLiters.Add(d.DeliveredLiters())
	}

	if seg.ExpectedDays > 0 {
		seg.DeliverySuccessRate = decimal.NewFromInt(int64(seg.DaysDelivered)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(seg.ExpectedDays))).
			Round(2)
	}

	// The clipped start is the representative date for pricing.
	info, ok := pricing.PriceFor(milkType, from)
	if !ok {
		return seg
	}
	amount := seg.TotalLiters.Mul(info.PricePerLiter).Round(2)
	seg.TotalAmount = decimal.NewNullDecimal(amount)
	seg.Pricing = &domain.SegmentPricing{
		MilkType:      info.MilkType,
		PricePerLiter: info.PricePerLiter,
		DailyLiters:   rec.DailyLiters,
		PricePerDay:   rec.DailyLiters.Mul(info.PricePerLiter).Round(2),
		EffectiveFrom: info.EffectiveFrom,
		EffectiveTo:   info.EffectiveTo,
		DaysCount:     seg.DaysDelivered,
		TotalAmount:   amount,
	}
	return seg
}

func summarize(segments []domain.BillingSegment) domain.Summary {
	liters := lo.Reduce(segments, func(acc decimal.Decimal, s domain.BillingSegment, _ int) decimal.Decimal {
		return acc.Add(s.TotalLiters)
	}, decimal.Zero)
	summary := domain.Summary{
		TotalDeliveredDays:   lo.SumBy(segments, func(s domain.BillingSegment) int { return s.DaysDelivered }),
		TotalLitersDelivered: liters,
	}
	for _, s := range segments {
		if !s.TotalAmount.Valid {
			continue
		}
		if !summary.TotalAmount.Valid {
			summary.TotalAmount = decimal.NewNullDecimal(decimal.Zero)
		}
		summary.TotalAmount.Decimal = summary.TotalAmount.Decimal.Add(s.TotalAmount.Decimal)
	}
	return summary
}
