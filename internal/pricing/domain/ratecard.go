package domain

import (
	"slices"

	"cloud.google.com/go/civil"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

// RateCard is an immutable set of prices. Lookups use the same rule as rate
// resolution: among entries covering the date, the latest start wins.
type RateCard struct {
	entries []ratedomain.PriceInfo
}

var _ ratedomain.PricingLookup = RateCard{}

// NewRateCard orders entries by start descending. Among equal starts the
// earlier position in entries wins.
func NewRateCard(entries []ratedomain.PriceInfo) RateCard {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b ratedomain.PriceInfo) int {
		return b.EffectiveFrom.DaysSince(a.EffectiveFrom)
	})
	return RateCard{entries: sorted}
}

func (c RateCard) PriceFor(milkType ratedomain.MilkType, date civil.Date) (ratedomain.PriceInfo, bool) {
	for _, e := range c.entries {
		if e.MilkType != milkType || date.Before(e.EffectiveFrom) {
			continue
		}
		if e.EffectiveTo != nil && date.After(*e.EffectiveTo) {
			continue
		}
		return e, true
	}
	return ratedomain.PriceInfo{}, false
}

func (c RateCard) Entries() []ratedomain.PriceInfo {
	return slices.Clone(c.entries)
}

func (c RateCard) Len() int { return len(c.entries) }
