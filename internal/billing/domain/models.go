package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillingSnapshot is the persisted audit copy of one computed breakdown. There
// is at most one row per customer and period; recomputation replaces it.
type BillingSnapshot struct {
	ID                 snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID             string         `gorm:"type:text;not null;uniqueIndex:ux_billing_snapshots_period,priority:1" json:"user_id"`
	CustomerName       string         `gorm:"type:text" json:"customer_name"`
	CustomerPhone      string         `gorm:"type:text" json:"customer_phone"`
	PeriodStart        time.Time      `gorm:"not null;uniqueIndex:ux_billing_snapshots_period,priority:2" json:"period_start"`
	PeriodEnd          time.Time      `gorm:"not null;uniqueIndex:ux_billing_snapshots_period,priority:3" json:"period_end"`
	MilkType           string         `gorm:"type:text;not null" json:"milk_type"`
	Segments           datatypes.JSON `gorm:"not null" json:"segments"`
	TotalDeliveredDays int            `gorm:"not null" json:"total_delivered_days"`
	TotalLiters        string         `gorm:"type:text;not null" json:"total_liters"`
	TotalAmount        *string        `gorm:"type:text" json:"total_amount"`
	Checksum           string         `gorm:"type:text;not null;uniqueIndex" json:"checksum"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (BillingSnapshot) TableName() string { return "billing_snapshots" }
