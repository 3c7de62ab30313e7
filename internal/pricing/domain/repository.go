package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, price *MilkPrice) error
	ListByMilkType(ctx context.Context, db *gorm.DB, milkType string) ([]MilkPrice, error)
	FindEffectiveAt(ctx context.Context, db *gorm.DB, milkType string, at time.Time) (*MilkPrice, error)
	// FindNextAfter returns the earliest price starting strictly after at, or nil.
	FindNextAfter(ctx context.Context, db *gorm.DB, milkType string, at time.Time) (*MilkPrice, error)
}
