package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

type rateRecordRequest struct {
	ID            string          `json:"id"`
	DailyLiters   decimal.Decimal `json:"daily_liters"`
	EffectiveFrom string          `json:"effective_from" validate:"required"`
	EffectiveTo   *string         `json:"effective_to"`
	IsActive      bool            `json:"is_active"`
}

type deliveryRecordRequest struct {
	ID              string              `json:"id"`
	Date            string              `json:"date"`
	DeliveryDate    string              `json:"delivery_date"`
	ScheduledLiters decimal.Decimal     `json:"scheduled_liters"`
	ActualLiters    decimal.NullDecimal `json:"actual_liters"`
	Status          string              `json:"status" validate:"required,oneof=scheduled delivered failed skipped"`
	Reason          string              `json:"reason"`
	RateID          string              `json:"rate_id"`
	UserID          string              `json:"user_id"`
}

type resolveRateRequest struct {
	History  []rateRecordRequest `json:"history" validate:"dive"`
	Date     string              `json:"date" validate:"required"`
	Fallback decimal.NullDecimal `json:"fallback"`
}

type currentRateRequest struct {
	History  []rateRecordRequest `json:"history" validate:"dive"`
	Fallback decimal.NullDecimal `json:"fallback"`
}

type breakdownRequest struct {
	History    []rateRecordRequest     `json:"history" validate:"dive"`
	Deliveries []deliveryRecordRequest `json:"deliveries" validate:"dive"`
	StartDate  string                  `json:"start_date" validate:"required"`
	EndDate    string                  `json:"end_date" validate:"required"`
	MilkType   string                  `json:"milk_type" validate:"omitempty,oneof=buffalo cow"`
}

func validateRequest(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}

	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Code:    "invalid_" + fe.Tag(),
			Message: validationTagMessage(fe),
		})
	}
	return out
}

// fieldPath drops the struct name validator puts in front of the namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func validationTagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "invalid value"
	}
}

func (r rateRecordRequest) toDomain(field string) (ratedomain.RateRecord, error) {
	from, err := calendar.Parse(r.EffectiveFrom)
	if err != nil {
		return ratedomain.RateRecord{}, invalidDateError(field + ".effective_from")
	}
	var to *civil.Date
	if r.EffectiveTo != nil {
		to, err = calendar.ParseOptional(*r.EffectiveTo)
		if err != nil {
			return ratedomain.RateRecord{}, invalidDateError(field + ".effective_to")
		}
	}
	return ratedomain.RateRecord{
		ID:            r.ID,
		DailyLiters:   r.DailyLiters,
		EffectiveFrom: from,
		EffectiveTo:   to,
		IsActive:      r.IsActive,
	}, nil
}

func (r deliveryRecordRequest) toDomain(field string) (ratedomain.DeliveryRecord, error) {
	raw := r.Date
	if raw == "" {
		raw = r.DeliveryDate
	}
	date, err := calendar.Parse(raw)
	if err != nil {
		return ratedomain.DeliveryRecord{}, invalidDateError(field + ".date")
	}
	return ratedomain.DeliveryRecord{
		ID:              r.ID,
		Date:            date,
		ScheduledLiters: r.ScheduledLiters,
		ActualLiters:    r.ActualLiters,
		Status:          ratedomain.DeliveryStatus(r.Status),
		Reason:          r.Reason,
		RateID:          r.RateID,
		UserID:          r.UserID,
	}, nil
}

func historyToDomain(in []rateRecordRequest) ([]ratedomain.RateRecord, error) {
	out := make([]ratedomain.RateRecord, 0, len(in))
	for i, r := range in {
		record, err := r.toDomain(fmt.Sprintf("history[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func deliveriesToDomain(in []deliveryRecordRequest) ([]ratedomain.DeliveryRecord, error) {
	out := make([]ratedomain.DeliveryRecord, 0, len(in))
	for i, d := range in {
		record, err := d.toDomain(fmt.Sprintf("deliveries[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func invalidDateError(field string) error {
	return newValidationError(field, calendar.ErrInvalidDate.Error(), "must be a YYYY-MM-DD date")
}

func parseDateField(field, raw string) (civil.Date, error) {
	d, err := calendar.Parse(raw)
	if err != nil {
		return civil.Date{}, invalidDateError(field)
	}
	return d, nil
}
