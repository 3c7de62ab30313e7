package repository

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) ReplaceSnapshot(ctx context.Context, db *gorm.DB, snapshot *billingdomain.BillingSnapshot) error {
	if err := db.WithContext(ctx).
		Where("user_id = ? AND period_start = ? AND period_end = ?", snapshot.UserID, snapshot.PeriodStart, snapshot.PeriodEnd).
		Delete(&billingdomain.BillingSnapshot{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Create(snapshot).Error
}

func (r *repo) FindSnapshot(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) (*billingdomain.BillingSnapshot, error) {
	var snapshot billingdomain.BillingSnapshot
	err := db.WithContext(ctx).
		Where("user_id = ? AND period_start = ? AND period_end = ?", userID, start, end).
		Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repo) ListSnapshots(ctx context.Context, db *gorm.DB, filter billingdomain.ListFilter) ([]*billingdomain.BillingSnapshot, error) {
	stmt := db.WithContext(ctx).Model(&billingdomain.BillingSnapshot{})
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.CursorCreatedAt != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			*filter.CursorCreatedAt, *filter.CursorCreatedAt, filter.CursorID)
	}

	var items []*billingdomain.BillingSnapshot
	if err := stmt.
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit + 1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
