package milkapi

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

type User struct {
	ID           string
	PhoneNumber  string
	FullName     string
	Timezone     string
	Role         string
	Subscription *Subscription
}

type Subscription struct {
	ID          string
	IsActive    bool
	StartDate   civil.Date
	EndDate     *civil.Date
	MilkType    domain.MilkType
	CurrentRate decimal.Decimal
	RateHistory []domain.RateRecord
}

type ReportUser struct {
	ID    string
	Name  string
	Phone string
}

// BillingReport is the admin view of one customer's period, including raw deliveries.
type BillingReport struct {
	User                 ReportUser
	Period               domain.Period
	TotalDaysDelivered   int
	TotalLitersDelivered decimal.Decimal
	TotalAmount          decimal.NullDecimal
	Deliveries           []domain.DeliveryRecord
}

// BillingHistory is the customer view; upstream returns segments without deliveries.
type BillingHistory struct {
	Period               domain.Period
	TotalDaysDelivered   int
	TotalLitersDelivered decimal.Decimal
	TotalAmount          decimal.NullDecimal
	Segments             []HistorySegment
}

type HistorySegment struct {
	RateID        string
	DailyLiters   decimal.Decimal
	EffectiveFrom civil.Date
	EffectiveTo   *civil.Date
	DaysDelivered int
	TotalLiters   decimal.Decimal
}

type Schedule struct {
	Date            civil.Date
	TotalDeliveries int
	TotalLiters     decimal.Decimal
	Entries         []ScheduleEntry
}

type ScheduleEntry struct {
	UserName  string
	UserPhone string
	Delivery  domain.DeliveryRecord
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// UpdateRateRequest schedules a new daily quantity from EffectiveFrom onwards.
type UpdateRateRequest struct {
	NewDailyLiters decimal.Decimal `json:"new_daily_liters" validate:"daily_liters"`
	EffectiveFrom  civil.Date      `json:"effective_from" validate:"required"`
}

type UpdateRateResponse struct {
	Message       string
	EffectiveFrom civil.Date
	NewRate       *domain.RateRecord
}
