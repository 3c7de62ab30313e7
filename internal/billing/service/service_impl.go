package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/smallbiznis/milkseller/internal/cache"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/events"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	obsmetrics "github.com/smallbiznis/milkseller/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/internal/ratelimit"
	"github.com/smallbiznis/milkseller/pkg/calendar"
	"github.com/smallbiznis/milkseller/pkg/db"
	"github.com/smallbiznis/milkseller/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      billingdomain.Repository
	Upstream  billingdomain.Upstream
	Rates     ratedomain.Service
	Pricing   pricingdomain.Service
	Customers cache.CustomerCache
	Publisher events.Publisher
	Limiter   *ratelimit.UpstreamLimiter `optional:"true"`
	Metrics   *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      billingdomain.Repository
	upstream  billingdomain.Upstream
	rates     ratedomain.Service
	pricing   pricingdomain.Service
	customers cache.CustomerCache
	publisher events.Publisher
	limiter   *ratelimit.UpstreamLimiter
	metrics   *obsmetrics.Metrics
}

func New(p Params) billingdomain.Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billing.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		upstream:  p.Upstream,
		rates:     p.Rates,
		pricing:   p.Pricing,
		customers: p.Customers,
		publisher: publisher,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
	}
}

func (s *Service) Breakdown(ctx context.Context, req billingdomain.BreakdownRequest) (*billingdomain.BreakdownResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, billingdomain.ErrInvalidUserID
	}
	if err := validatePeriod(req.Start, req.End); err != nil {
		return nil, err
	}

	token, locked, err := s.limiter.TryLockSnapshot(ctx, userID, req.Start.String(), req.End.String())
	if err != nil {
		s.log.Warn("snapshot lock unavailable, continuing unlocked", zap.Error(err))
	} else if !locked {
		return nil, billingdomain.ErrSnapshotInProgress
	} else {
		defer func() {
			if err := s.limiter.ReleaseSnapshot(context.WithoutCancel(ctx), userID, req.Start.String(), req.End.String(), token); err != nil {
				s.log.Warn("release snapshot lock", zap.Error(err))
			}
		}()
	}

	user, err := s.customer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Subscription == nil {
		return nil, billingdomain.ErrNoSubscription
	}
	sub := user.Subscription

	report, err := s.upstream.BillingReport(ctx, userID, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetch billing report: %w", err)
	}

	card, err := s.pricing.RateCard(ctx, sub.MilkType)
	if err != nil {
		return nil, fmt.Errorf("load rate card: %w", err)
	}

	breakdown := s.rates.BuildBillingBreakdown(ratedomain.BreakdownInput{
		History:    sub.RateHistory,
		Deliveries: report.Deliveries,
		Start:      req.Start,
		End:        req.End,
		MilkType:   sub.MilkType,
		Pricing:    card,
	})
	s.metrics.RecordBreakdown(ctx, "upstream", breakdown.Summary.TotalAmount.Valid)
	s.reconcile(userID, report, breakdown)

	customer := billingdomain.Customer{
		ID:    userID,
		Name:  firstNonEmpty(report.User.Name, user.FullName),
		Phone: firstNonEmpty(report.User.Phone, user.PhoneNumber),
	}
	snapshot, err := s.newSnapshot(customer, sub.MilkType, breakdown)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceSnapshot(ctx, tx, snapshot)
	})
	if err != nil {
		s.metrics.RecordSnapshot(ctx, "failed")
		if db.IsDuplicateKeyErr(err) {
			// Another replica stored this period between our delete and insert.
			return nil, billingdomain.ErrSnapshotInProgress
		}
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	s.metrics.RecordSnapshot(ctx, "stored")
	s.log.Info("billing snapshot stored",
		zap.String("user_id", userID),
		zap.String("period_start", req.Start.String()),
		zap.String("period_end", req.End.String()),
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.Int("segments", len(breakdown.Segments)),
	)

	s.publishStored(ctx, snapshot)

	return &billingdomain.BreakdownResult{
		Customer:  customer,
		MilkType:  sub.MilkType,
		Breakdown: breakdown,
		Snapshot: billingdomain.SnapshotRef{
			ID:       snapshot.ID.String(),
			Checksum: snapshot.Checksum,
		},
	}, nil
}

// Compute is the stateless breakdown. Unlike Breakdown it accepts an inverted
// range and returns the resolver's empty result for it.
func (s *Service) Compute(ctx context.Context, req billingdomain.ComputeRequest) (ratedomain.Breakdown, error) {
	if !req.End.Before(req.Start) {
		if err := validatePeriod(req.Start, req.End); err != nil {
			return ratedomain.Breakdown{}, err
		}
	} else if err := validatePeriod(req.End, req.Start); err != nil {
		return ratedomain.Breakdown{}, err
	}

	pricing := ratedomain.NoPricing
	if req.MilkType != "" {
		if !req.MilkType.Valid() {
			return ratedomain.Breakdown{}, billingdomain.ErrInvalidMilkType
		}
		card, err := s.pricing.RateCard(ctx, req.MilkType)
		if err != nil {
			return ratedomain.Breakdown{}, fmt.Errorf("load rate card: %w", err)
		}
		pricing = card
	}

	breakdown := s.rates.BuildBillingBreakdown(ratedomain.BreakdownInput{
		History:    req.History,
		Deliveries: req.Deliveries,
		Start:      req.Start,
		End:        req.End,
		MilkType:   req.MilkType,
		Pricing:    pricing,
	})
	s.metrics.RecordBreakdown(ctx, "request", breakdown.Summary.TotalAmount.Valid)
	return breakdown, nil
}

func (s *Service) LatestSnapshot(ctx context.Context, userID string, start, end civil.Date) (*billingdomain.Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, billingdomain.ErrInvalidUserID
	}
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}

	row, err := s.repo.FindSnapshot(ctx, s.db, userID, calendar.ToTime(start), calendar.ToTime(end))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, billingdomain.ErrSnapshotNotFound
	}
	return decodeSnapshot(row)
}

func (s *Service) ListSnapshots(ctx context.Context, req billingdomain.ListSnapshotsRequest) (*billingdomain.ListSnapshotsResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, billingdomain.ErrInvalidUserID
	}
	limit := req.Limit()
	filter := billingdomain.ListFilter{UserID: userID, Limit: limit}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, billingdomain.ErrInvalidPageToken
	}
	if cursor != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, billingdomain.ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, billingdomain.ErrInvalidPageToken
		}
		filter.CursorCreatedAt = &createdAt
		filter.CursorID = id
	}

	rows, err := s.repo.ListSnapshots(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(row *billingdomain.BillingSnapshot) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	out := make([]billingdomain.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := decodeSnapshot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return &billingdomain.ListSnapshotsResponse{Snapshots: out, PageInfo: pageInfo}, nil
}

// customer reads the profile through the cache.
func (s *Service) customer(ctx context.Context, userID string) (milkapi.User, error) {
	if user, ok := s.customers.GetCustomer(ctx, userID); ok {
		return user, nil
	}
	user, err := s.upstream.User(ctx, userID)
	if err != nil {
		return milkapi.User{}, fmt.Errorf("fetch customer: %w", err)
	}
	s.customers.SetCustomer(ctx, userID, user)
	return user, nil
}

// reconcile logs when upstream's own totals disagree with the computed ones.
func (s *Service) reconcile(userID string, report milkapi.BillingReport, breakdown ratedomain.Breakdown) {
	days := breakdown.Summary.TotalDeliveredDays
	liters := breakdown.Summary.TotalLitersDelivered
	if report.TotalDaysDelivered == days && report.TotalLitersDelivered.Equal(liters) {
		return
	}
	s.log.Warn("upstream totals differ from computed breakdown",
		zap.String("user_id", userID),
		zap.Int("upstream_days", report.TotalDaysDelivered),
		zap.Int("computed_days", days),
		zap.String("upstream_liters", report.TotalLitersDelivered.String()),
		zap.String("computed_liters", liters.String()),
	)
}

func (s *Service) newSnapshot(customer billingdomain.Customer, milkType ratedomain.MilkType, breakdown ratedomain.Breakdown) (*billingdomain.BillingSnapshot, error) {
	segments, err := json.Marshal(breakdown.Segments)
	if err != nil {
		return nil, fmt.Errorf("encode segments: %w", err)
	}

	snapshot := &billingdomain.BillingSnapshot{
		ID:                 s.genID.Generate(),
		UserID:             customer.ID,
		CustomerName:       customer.Name,
		CustomerPhone:      customer.Phone,
		PeriodStart:        calendar.ToTime(breakdown.Period.StartDate),
		PeriodEnd:          calendar.ToTime(breakdown.Period.EndDate),
		MilkType:           string(milkType),
		Segments:           datatypes.JSON(segments),
		TotalDeliveredDays: breakdown.Summary.TotalDeliveredDays,
		TotalLiters:        breakdown.Summary.TotalLitersDelivered.String(),
		CreatedAt:          s.clock.Now().UTC(),
	}
	if amount := breakdown.Summary.TotalAmount; amount.Valid {
		value := amount.Decimal.StringFixed(2)
		snapshot.TotalAmount = &value
	}
	snapshot.Checksum = checksum(snapshot)
	return snapshot, nil
}

// checksum covers the customer, period, milk type, segments and totals. Ids and
// timestamps are excluded so identical content hashes identically.
func checksum(snapshot *billingdomain.BillingSnapshot) string {
	amount := ""
	if snapshot.TotalAmount != nil {
		amount = *snapshot.TotalAmount
	}
	h := sha256.New()
	for _, part := range []string{
		snapshot.UserID,
		snapshot.PeriodStart.Format(time.DateOnly),
		snapshot.PeriodEnd.Format(time.DateOnly),
		snapshot.MilkType,
		string(snapshot.Segments),
		strconv.Itoa(snapshot.TotalDeliveredDays),
		snapshot.TotalLiters,
		amount,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) publishStored(ctx context.Context, snapshot *billingdomain.BillingSnapshot) {
	event := events.New(events.TypeSnapshotStored, snapshot.CreatedAt, map[string]any{
		"snapshot_id":  snapshot.ID.String(),
		"user_id":      snapshot.UserID,
		"period_start": snapshot.PeriodStart.Format(time.DateOnly),
		"period_end":   snapshot.PeriodEnd.Format(time.DateOnly),
		"total_amount": snapshot.TotalAmount,
		"checksum":     snapshot.Checksum,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish snapshot event", zap.String("snapshot_id", snapshot.ID.String()), zap.Error(err))
	}
}

func decodeSnapshot(row *billingdomain.BillingSnapshot) (*billingdomain.Snapshot, error) {
	var segments []ratedomain.BillingSegment
	if err := json.Unmarshal(row.Segments, &segments); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", row.ID, err)
	}
	liters, err := decimal.NewFromString(row.TotalLiters)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s liters: %w", row.ID, err)
	}
	var amount decimal.NullDecimal
	if row.TotalAmount != nil {
		value, err := decimal.NewFromString(*row.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s amount: %w", row.ID, err)
		}
		amount = decimal.NewNullDecimal(value)
	}

	return &billingdomain.Snapshot{
		ID: row.ID.String(),
		Customer: billingdomain.Customer{
			ID:    row.UserID,
			Name:  row.CustomerName,
			Phone: row.CustomerPhone,
		},
		MilkType: ratedomain.MilkType(row.MilkType),
		Breakdown: ratedomain.Breakdown{
			Period: ratedomain.Period{
				StartDate: calendar.FromTime(row.PeriodStart),
				EndDate:   calendar.FromTime(row.PeriodEnd),
			},
			Segments: segments,
			Summary: ratedomain.Summary{
				TotalDeliveredDays:   row.TotalDeliveredDays,
				TotalLitersDelivered: liters,
				TotalAmount:          amount,
			},
		},
		Checksum:  row.Checksum,
		CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func validatePeriod(start, end civil.Date) error {
	if calendar.IsZero(start) || calendar.IsZero(end) || !start.IsValid() || !end.IsValid() {
		return billingdomain.ErrInvalidPeriod
	}
	if end.Before(start) {
		return billingdomain.ErrInvalidPeriod
	}
	if calendar.DaysInclusive(start, end) > billingdomain.MaxPeriodDays {
		return billingdomain.ErrInvalidPeriod
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
