// Package statement renders billing breakdowns as customer-facing PDF and XLSX documents.
package statement

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Customer struct {
	ID    string
	Name  string
	Phone string
}

// Statement is one rendered billing period for one customer.
type Statement struct {
	Number    string
	IssuedAt  time.Time
	Seller    string
	Customer  Customer
	MilkType  ratedomain.MilkType
	Breakdown ratedomain.Breakdown
}

// New stamps a statement number. Numbers are ULIDs, so they sort by issue time.
func New(seller string, customer Customer, milkType ratedomain.MilkType, breakdown ratedomain.Breakdown, issuedAt time.Time) Statement {
	return Statement{
		Number:    "ST-" + ulid.MustNew(ulid.Timestamp(issuedAt), rand.Reader).String(),
		IssuedAt:  issuedAt,
		Seller:    seller,
		Customer:  customer,
		MilkType:  milkType,
		Breakdown: breakdown,
	}
}

// FileName is "<customer-slug>-<start>-<end>.<ext>".
func (s Statement) FileName(ext string) string {
	name := slug.Make(s.Customer.Name)
	if name == "" {
		name = "customer-" + slug.Make(s.Customer.ID)
	}
	return fmt.Sprintf("%s-%s-%s.%s", name, s.Breakdown.Period.StartDate, s.Breakdown.Period.EndDate, ext)
}

func (s Statement) periodLabel() string {
	return Date(s.Breakdown.Period.StartDate) + " - " + Date(s.Breakdown.Period.EndDate)
}

// pricePerLiter is the segment's price or "-" when the segment was unpriced.
func pricePerLiter(seg ratedomain.BillingSegment) string {
	if seg.Pricing == nil {
		return "-"
	}
	return Currency(seg.Pricing.PricePerLiter)
}
