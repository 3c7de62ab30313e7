package repository

import (
	"context"
	"strings"
	"time"

	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, price *pricingdomain.MilkPrice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO milk_prices (
			id, milk_type, price_per_liter, currency, effective_from, effective_to, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		price.ID,
		price.MilkType,
		price.PricePerLiter,
		price.Currency,
		price.EffectiveFrom,
		price.EffectiveTo,
		price.CreatedAt,
		price.UpdatedAt,
	).Error
}

func (r *repo) ListByMilkType(ctx context.Context, db *gorm.DB, milkType string) ([]pricingdomain.MilkPrice, error) {
	var items []pricingdomain.MilkPrice
	stmt := db.WithContext(ctx).Model(&pricingdomain.MilkPrice{})
	if value := strings.TrimSpace(milkType); value != "" {
		stmt = stmt.Where("milk_type = ?", value)
	}
	if err := stmt.Order("effective_from DESC").Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindEffectiveAt(ctx context.Context, db *gorm.DB, milkType string, at time.Time) (*pricingdomain.MilkPrice, error) {
	var price pricingdomain.MilkPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, milk_type, price_per_liter, currency, effective_from, effective_to, created_at, updated_at
		 FROM milk_prices
		 WHERE milk_type = ?
		   AND effective_from <= ?
		   AND (effective_to IS NULL OR effective_to >= ?)
		 ORDER BY effective_from DESC, created_at DESC
		 LIMIT 1`,
		milkType, at, at,
	).Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) FindNextAfter(ctx context.Context, db *gorm.DB, milkType string, at time.Time) (*pricingdomain.MilkPrice, error) {
	var price pricingdomain.MilkPrice
	err := db.WithContext(ctx).
		Where("milk_type = ? AND effective_from > ?", milkType, at).
		Order("effective_from ASC").
		Limit(1).
		Find(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}
