package service

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	obsmetrics "github.com/smallbiznis/milkseller/internal/observability/metrics"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	loc     *time.Location
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:     p.Log.Named("ratehistory.service"),
		clock:   p.Clock,
		loc:     p.Config.Location(),
		metrics: p.Metrics,
	}
}

func (s *Service) ResolveRateForDate(history []domain.RateRecord, date civil.Date, fallback decimal.NullDecimal) decimal.Decimal {
	rate, how := resolveRate(history, date, fallback)
	if how != resolvedMatch {
		s.log.Debug("rate resolved outside history",
			zap.String("date", date.String()),
			zap.String("resolution", string(how)),
			zap.Int("history_len", len(history)),
		)
		s.metrics.RecordRateFallback(context.Background(), string(how))
	}
	return rate
}

// ResolveCurrentRate resolves for today's date in the business time zone.
func (s *Service) ResolveCurrentRate(history []domain.RateRecord, fallback decimal.NullDecimal) decimal.Decimal {
	return s.ResolveRateForDate(history, calendar.Today(s.clock, s.loc), fallback)
}

func (s *Service) BuildBillingBreakdown(in domain.BreakdownInput) domain.Breakdown {
	return BuildBillingBreakdown(in)
}

func (s *Service) AverageRate(history []domain.RateRecord) decimal.Decimal {
	return AverageRate(history)
}
