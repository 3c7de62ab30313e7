package domain

import (
	"context"
	"errors"
	"time"

	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

type Service interface {
	// RateCard returns every known price for milkType as an in-memory lookup.
	RateCard(ctx context.Context, milkType ratedomain.MilkType) (RateCard, error)
	PriceAt(ctx context.Context, req PriceAtRequest) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, milkType string) ([]Response, error)
}

type CreateRequest struct {
	MilkType      string  `json:"milk_type"`
	PricePerLiter string  `json:"price_per_liter"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
}

type PriceAtRequest struct {
	MilkType string
	Date     string
}

type Response struct {
	ID            string     `json:"id,omitempty"`
	Source        string     `json:"source"`
	MilkType      string     `json:"milk_type"`
	PricePerLiter string     `json:"price_per_liter"`
	Currency      string     `json:"currency"`
	EffectiveFrom string     `json:"effective_from"`
	EffectiveTo   *string    `json:"effective_to"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

const (
	SourceDatabase = "database"
	SourceConfig   = "config"
)

var (
	ErrInvalidMilkType       = errors.New("invalid_milk_type")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidEffectiveFrom  = errors.New("invalid_effective_from")
	ErrInvalidEffectiveTo    = errors.New("invalid_effective_to")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrEffectiveOverlap      = errors.New("effective_overlap")
	ErrNotFound              = errors.New("not_found")
)
