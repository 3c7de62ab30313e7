package milkapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
)

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type rateDTO struct {
	ID            flexID          `json:"id"`
	DailyLiters   decimal.Decimal `json:"daily_liters"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to"`
	IsActive      bool            `json:"is_active"`
}

type subscriptionDTO struct {
	ID                    flexID          `json:"id"`
	IsActive              bool            `json:"is_active"`
	SubscriptionStartDate string          `json:"subscription_start_date"`
	SubscriptionEndDate   *string         `json:"subscription_end_date"`
	MilkType              string          `json:"milk_type"`
	CurrentRate           decimal.Decimal `json:"current_rate"`
	RateHistory           []rateDTO       `json:"rate_history"`
	Message               string          `json:"message"`
}

type userDTO struct {
	ID           flexID           `json:"id"`
	PhoneNumber  string           `json:"phone_number"`
	FullName     string           `json:"full_name"`
	Timezone     string           `json:"timezone"`
	Role         string           `json:"role"`
	Subscription *subscriptionDTO `json:"subscription"`
}

type periodDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type billingDeliveryDTO struct {
	ID              flexID          `json:"id"`
	DeliveryDate    string          `json:"delivery_date"`
	ScheduledLiters decimal.Decimal `json:"scheduled_liters"`
	ActualLiters    *string         `json:"actual_liters"`
	Status          string          `json:"status"`
	Reason          *string         `json:"reason"`
	RateApplied     *flexID         `json:"rate_applied"`
}

type billingReportDTO struct {
	User struct {
		ID    flexID `json:"id"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"user"`
	BillingPeriod        periodDTO            `json:"billing_period"`
	TotalDaysDelivered   int                  `json:"total_days_delivered"`
	TotalLitersDelivered decimal.Decimal      `json:"total_liters_delivered"`
	TotalAmount          decimal.NullDecimal  `json:"total_amount"`
	Deliveries           []billingDeliveryDTO `json:"deliveries"`
}

type historySegmentDTO struct {
	RateID        flexID          `json:"rate_id"`
	DailyLiters   decimal.Decimal `json:"daily_liters"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to"`
	DaysDelivered int             `json:"days_delivered"`
	TotalLiters   decimal.Decimal `json:"total_liters"`
}

type billingHistoryDTO struct {
	BillingPeriod        periodDTO           `json:"billing_period"`
	TotalDaysDelivered   int                 `json:"total_days_delivered"`
	TotalLitersDelivered decimal.Decimal     `json:"total_liters_delivered"`
	TotalAmount          decimal.NullDecimal `json:"total_amount"`
	RateBreakdown        []historySegmentDTO `json:"rate_breakdown"`
}

type scheduleDeliveryDTO struct {
	UserID          flexID          `json:"user_id"`
	UserName        string          `json:"user_name"`
	UserPhone       string          `json:"user_phone"`
	ScheduledLiters decimal.Decimal `json:"scheduled_liters"`
	RateID          flexID          `json:"rate_id"`
	Status          string          `json:"status"`
	Reason          *string         `json:"reason"`
}

type scheduleDTO struct {
	Date            string                `json:"date"`
	TotalDeliveries int                   `json:"total_deliveries"`
	TotalLiters     decimal.Decimal       `json:"total_liters"`
	Deliveries      []scheduleDeliveryDTO `json:"deliveries"`
}

func parseDate(field, value string) (civil.Date, error) {
	d, err := calendar.Parse(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseOptionalDate(field string, value *string) (*civil.Date, error) {
	if value == nil {
		return nil, nil
	}
	d, err := calendar.ParseOptional(*value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func optionalDecimal(field string, value *string) (decimal.NullDecimal, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*value))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", field, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func (r rateDTO) toDomain() (domain.RateRecord, error) {
	from, err := parseDate("effective_from", r.EffectiveFrom)
	if err != nil {
		return domain.RateRecord{}, err
	}
	to, err := parseOptionalDate("effective_to", r.EffectiveTo)
	if err != nil {
		return domain.RateRecord{}, err
	}
	return domain.RateRecord{
		ID:            string(r.ID),
		DailyLiters:   r.DailyLiters,
		EffectiveFrom: from,
		EffectiveTo:   to,
		IsActive:      r.IsActive,
	}, nil
}

func (s subscriptionDTO) toDomain() (Subscription, error) {
	start, err := parseDate("subscription_start_date", s.SubscriptionStartDate)
	if err != nil {
		return Subscription{}, err
	}
	end, err := parseOptionalDate("subscription_end_date", s.SubscriptionEndDate)
	if err != nil {
		return Subscription{}, err
	}
	milkType := domain.MilkType(strings.ToLower(strings.TrimSpace(s.MilkType)))
	if milkType == "" {
		milkType = domain.MilkBuffalo
	}

	history := make([]domain.RateRecord, 0, len(s.RateHistory))
	for i, rate := range s.RateHistory {
		record, err := rate.toDomain()
		if err != nil {
			return Subscription{}, fmt.Errorf("rate_history[%d].%w", i, err)
		}
		history = append(history, record)
	}

	return Subscription{
		ID:          string(s.ID),
		IsActive:    s.IsActive,
		StartDate:   start,
		EndDate:     end,
		MilkType:    milkType,
		CurrentRate: s.CurrentRate,
		RateHistory: history,
	}, nil
}

func (u userDTO) toDomain() (User, error) {
	user := User{
		ID:          string(u.ID),
		PhoneNumber: u.PhoneNumber,
		FullName:    u.FullName,
		Timezone:    u.Timezone,
		Role:        u.Role,
	}
	if u.Subscription != nil && u.Subscription.ID != "" {
		sub, err := u.Subscription.toDomain()
		if err != nil {
			return User{}, fmt.Errorf("subscription.%w", err)
		}
		user.Subscription = &sub
	}
	return user, nil
}

func (p periodDTO) toDomain() (domain.Period, error) {
	start, err := parseDate("billing_period.start_date", p.StartDate)
	if err != nil {
		return domain.Period{}, err
	}
	end, err := parseDate("billing_period.end_date", p.EndDate)
	if err != nil {
		return domain.Period{}, err
	}
	return domain.Period{StartDate: start, EndDate: end}, nil
}

func (d billingDeliveryDTO) toDomain(userID string) (domain.DeliveryRecord, error) {
	date, err := parseDate("delivery_date", d.DeliveryDate)
	if err != nil {
		return domain.DeliveryRecord{}, err
	}
	actual, err := optionalDecimal("actual_liters", d.ActualLiters)
	if err != nil {
		return domain.DeliveryRecord{}, err
	}
	record := domain.DeliveryRecord{
		ID:              string(d.ID),
		Date:            date,
		ScheduledLiters: d.ScheduledLiters,
		ActualLiters:    actual,
		Status:          domain.DeliveryStatus(d.Status),
		Reason:          stringValue(d.Reason),
		UserID:          userID,
	}
	if d.RateApplied != nil {
		record.RateID = string(*d.RateApplied)
	}
	return record, nil
}

func (r billingReportDTO) toDomain() (BillingReport, error) {
	period, err := r.BillingPeriod.toDomain()
	if err != nil {
		return BillingReport{}, err
	}
	report := BillingReport{
		User: ReportUser{
			ID:    string(r.User.ID),
			Name:  r.User.Name,
			Phone: r.User.Phone,
		},
		Period:               period,
		TotalDaysDelivered:   r.TotalDaysDelivered,
		TotalLitersDelivered: r.TotalLitersDelivered,
		TotalAmount:          r.TotalAmount,
		Deliveries:           make([]domain.DeliveryRecord, 0, len(r.Deliveries)),
	}
	for i, delivery := range r.Deliveries {
		record, err := delivery.toDomain(report.User.ID)
		if err != nil {
			return BillingReport{}, fmt.Errorf("deliveries[%d].%w", i, err)
		}
		report.Deliveries = append(report.Deliveries, record)
	}
	return report, nil
}

func (h billingHistoryDTO) toDomain() (BillingHistory, error) {
	period, err := h.BillingPeriod.toDomain()
	if err != nil {
		return BillingHistory{}, err
	}
	history := BillingHistory{
		Period:               period,
		TotalDaysDelivered:   h.TotalDaysDelivered,
		TotalLitersDelivered: h.TotalLitersDelivered,
		TotalAmount:          h.TotalAmount,
		Segments:             make([]HistorySegment, 0, len(h.RateBreakdown)),
	}
	for i, seg := range h.RateBreakdown {
		from, err := parseDate("effective_from", seg.EffectiveFrom)
		if err != nil {
			return BillingHistory{}, fmt.Errorf("rate_breakdown[%d].%w", i, err)
		}
		to, err := parseOptionalDate("effective_to", seg.EffectiveTo)
		if err != nil {
			return BillingHistory{}, fmt.Errorf("rate_breakdown[%d].%w", i, err)
		}
		history.Segments = append(history.Segments, HistorySegment{
			RateID:        string(seg.RateID),
			DailyLiters:   seg.DailyLiters,
			EffectiveFrom: from,
			EffectiveTo:   to,
			DaysDelivered: seg.DaysDelivered,
			TotalLiters:   seg.TotalLiters,
		})
	}
	return history, nil
}

func (s scheduleDTO) toDomain() (Schedule, error) {
	date, err := parseDate("date", s.Date)
	if err != nil {
		return Schedule{}, err
	}
	schedule := Schedule{
		Date:            date,
		TotalDeliveries: s.TotalDeliveries,
		TotalLiters:     s.TotalLiters,
		Entries:         make([]ScheduleEntry, 0, len(s.Deliveries)),
	}
	for _, d := range s.Deliveries {
		schedule.Entries = append(schedule.Entries, ScheduleEntry{
			UserName:  d.UserName,
			UserPhone: d.UserPhone,
			Delivery: domain.DeliveryRecord{
				Date:            date,
				ScheduledLiters: d.ScheduledLiters,
				Status:          domain.DeliveryStatus(d.Status),
				Reason:          stringValue(d.Reason),
				RateID:          string(d.RateID),
				UserID:          string(d.UserID),
			},
		})
	}
	return schedule, nil
}
