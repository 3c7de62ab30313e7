package service

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Pricing *config.PricingConfigHolder
	Repo    pricingdomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	loc     *time.Location
	source  string
	pricing *config.PricingConfigHolder
	repo    pricingdomain.Repository
}

func New(p Params) pricingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("pricing.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		loc:     p.Config.Location(),
		source:  p.Config.PricingSource,
		pricing: p.Pricing,
		repo:    p.Repo,
	}
}

// RateCard merges database prices with the configured rate card. Database
// entries come first so they win over config entries with the same start.
func (s *Service) RateCard(ctx context.Context, milkType ratedomain.MilkType) (pricingdomain.RateCard, error) {
	if !milkType.Valid() {
		return pricingdomain.RateCard{}, pricingdomain.ErrInvalidMilkType
	}

	var entries []ratedomain.PriceInfo
	if s.useDatabase() {
		rows, err := s.repo.ListByMilkType(ctx, s.db, string(milkType))
		if err != nil {
			return pricingdomain.RateCard{}, err
		}
		entries = append(entries, lo.Map(rows, func(row pricingdomain.MilkPrice, _ int) ratedomain.PriceInfo {
			return ratedomain.PriceInfo{
				MilkType:      ratedomain.MilkType(row.MilkType),
				PricePerLiter: row.PricePerLiter,
				EffectiveFrom: calendar.FromTime(row.EffectiveFrom),
				EffectiveTo:   calendar.FromTimePtr(row.EffectiveTo),
			}
		})...)
	}

	entries = append(entries, s.configEntries(string(milkType))...)
	return pricingdomain.NewRateCard(entries), nil
}

func (s *Service) PriceAt(ctx context.Context, req pricingdomain.PriceAtRequest) (*pricingdomain.Response, error) {
	milkType := ratedomain.MilkType(strings.ToLower(strings.TrimSpace(req.MilkType)))
	if !milkType.Valid() {
		return nil, pricingdomain.ErrInvalidMilkType
	}
	at := calendar.Today(s.clock, s.loc)
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := calendar.Parse(req.Date)
		if err != nil {
			return nil, pricingdomain.ErrInvalidEffectiveFrom
		}
		at = parsed
	}

	if s.useDatabase() {
		row, err := s.repo.FindEffectiveAt(ctx, s.db, string(milkType), calendar.ToTime(at))
		if err != nil {
			return nil, err
		}
		if row != nil {
			resp := toResponse(*row)
			return &resp, nil
		}
	}

	card := pricingdomain.NewRateCard(s.configEntries(string(milkType)))
	info, ok := card.PriceFor(milkType, at)
	if !ok {
		return nil, pricingdomain.ErrNotFound
	}
	resp := configResponse(info, s.pricing.Get().Currency)
	return &resp, nil
}

// Create appends a price version. A window that covers the new start is
// closed on the day before it, mirroring how rate history is versioned. A
// back-dated open-ended price is closed the day before the next later price;
// a back-dated bounded one that reaches that price is rejected.
func (s *Service) Create(ctx context.Context, req pricingdomain.CreateRequest) (*pricingdomain.Response, error) {
	milkType := ratedomain.MilkType(strings.ToLower(strings.TrimSpace(req.MilkType)))
	if !milkType.Valid() {
		return nil, pricingdomain.ErrInvalidMilkType
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.PricePerLiter))
	if err != nil || !price.IsPositive() {
		return nil, pricingdomain.ErrInvalidPrice
	}
	from, err := calendar.Parse(req.EffectiveFrom)
	if err != nil {
		return nil, pricingdomain.ErrInvalidEffectiveFrom
	}
	var to *civil.Date
	if req.EffectiveTo != nil {
		to, err = calendar.ParseOptional(*req.EffectiveTo)
		if err != nil {
			return nil, pricingdomain.ErrInvalidEffectiveTo
		}
		if to != nil && to.Before(from) {
			return nil, pricingdomain.ErrInvalidEffectiveRange
		}
	}

	now := s.clock.Now().UTC()
	entity := &pricingdomain.MilkPrice{
		ID:            s.genID.Generate(),
		MilkType:      string(milkType),
		PricePerLiter: price.Round(2),
		Currency:      s.pricing.Get().Currency,
		EffectiveFrom: calendar.ToTime(from),
		EffectiveTo:   calendar.ToTimePtr(to),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindEffectiveAt(ctx, tx, entity.MilkType, entity.EffectiveFrom)
		if err != nil {
			return err
		}
		if current != nil {
			if !entity.EffectiveFrom.After(current.EffectiveFrom) {
				return pricingdomain.ErrEffectiveOverlap
			}
			closeAt := calendar.ToTime(from.AddDays(-1))
			if err := tx.Model(&pricingdomain.MilkPrice{}).
				Where("id = ?", current.ID).
				Updates(map[string]any{"effective_to": closeAt, "updated_at": now}).Error; err != nil {
				return err
			}
			s.log.Info("closed previous milk price",
				zap.String("milk_type", entity.MilkType),
				zap.String("price_id", current.ID.String()),
				zap.String("effective_to", from.AddDays(-1).String()),
			)
		}
		next, err := s.repo.FindNextAfter(ctx, tx, entity.MilkType, entity.EffectiveFrom)
		if err != nil {
			return err
		}
		if next != nil {
			nextFrom := calendar.FromTime(next.EffectiveFrom)
			switch {
			case to == nil:
				entity.EffectiveTo = calendar.ToTimePtr(ptr(nextFrom.AddDays(-1)))
			case !to.Before(nextFrom):
				return pricingdomain.ErrEffectiveOverlap
			}
		}
		return s.repo.Insert(ctx, tx, entity)
	})
	if err != nil {
		return nil, err
	}

	resp := toResponse(*entity)
	return &resp, nil
}

func ptr[T any](v T) *T { return &v }

func (s *Service) List(ctx context.Context, milkType string) ([]pricingdomain.Response, error) {
	milkType = strings.ToLower(strings.TrimSpace(milkType))
	if milkType != "" && !ratedomain.MilkType(milkType).Valid() {
		return nil, pricingdomain.ErrInvalidMilkType
	}

	var out []pricingdomain.Response
	if s.useDatabase() {
		rows, err := s.repo.ListByMilkType(ctx, s.db, milkType)
		if err != nil {
			return nil, err
		}
		out = append(out, lo.Map(rows, func(row pricingdomain.MilkPrice, _ int) pricingdomain.Response {
			return toResponse(row)
		})...)
	}

	currency := s.pricing.Get().Currency
	for _, info := range s.configEntries(milkType) {
		out = append(out, configResponse(info, currency))
	}
	return out, nil
}

func (s *Service) useDatabase() bool {
	return s.source != config.PricingSourceConfig && s.db != nil
}

// configEntries returns the configured prices, all of them when milkType is empty.
func (s *Service) configEntries(milkType string) []ratedomain.PriceInfo {
	if s.pricing == nil {
		return nil
	}
	matching := lo.Filter(s.pricing.Get().Prices, func(p config.PriceEntry, _ int) bool {
		return milkType == "" || p.MilkType == milkType
	})
	return lo.Map(matching, func(p config.PriceEntry, _ int) ratedomain.PriceInfo {
		return ratedomain.PriceInfo{
			MilkType:      ratedomain.MilkType(p.MilkType),
			PricePerLiter: p.PricePerLiter,
			EffectiveFrom: p.EffectiveFrom,
			EffectiveTo:   p.EffectiveTo,
		}
	})
}

func toResponse(row pricingdomain.MilkPrice) pricingdomain.Response {
	created := row.CreatedAt
	resp := pricingdomain.Response{
		ID:            row.ID.String(),
		Source:        pricingdomain.SourceDatabase,
		MilkType:      row.MilkType,
		PricePerLiter: row.PricePerLiter.StringFixed(2),
		Currency:      row.Currency,
		EffectiveFrom: calendar.FromTime(row.EffectiveFrom).String(),
		CreatedAt:     &created,
	}
	if to := calendar.FromTimePtr(row.EffectiveTo); to != nil {
		value := to.String()
		resp.EffectiveTo = &value
	}
	return resp
}

func configResponse(info ratedomain.PriceInfo, currency string) pricingdomain.Response {
	resp := pricingdomain.Response{
		Source:        pricingdomain.SourceConfig,
		MilkType:      string(info.MilkType),
		PricePerLiter: info.PricePerLiter.StringFixed(2),
		Currency:      currency,
		EffectiveFrom: info.EffectiveFrom.String(),
	}
	if info.EffectiveTo != nil {
		value := info.EffectiveTo.String()
		resp.EffectiveTo = &value
	}
	return resp
}
