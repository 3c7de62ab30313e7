package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// MilkPrice is an admin-managed price per liter for one milk type.
// EffectiveTo is inclusive; nil means open-ended.
type MilkPrice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	MilkType      string          `gorm:"type:text;not null;index:idx_milk_prices_lookup,priority:1" json:"milk_type"`
	PricePerLiter decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_liter"`
	Currency      string          `gorm:"type:text;not null" json:"currency"`
	EffectiveFrom time.Time       `gorm:"not null;index:idx_milk_prices_lookup,priority:2" json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (MilkPrice) TableName() string { return "milk_prices" }
