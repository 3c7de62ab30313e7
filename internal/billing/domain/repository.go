package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// ReplaceSnapshot deletes the row for the snapshot's customer and period and
	// inserts the new one. Callers run it inside a transaction.
	ReplaceSnapshot(ctx context.Context, db *gorm.DB, snapshot *BillingSnapshot) error
	FindSnapshot(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) (*BillingSnapshot, error)
	// ListSnapshots pages by (created_at, id) descending. limit+1 rows are read
	// so the caller can tell whether more remain.
	ListSnapshots(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*BillingSnapshot, error)
}

type ListFilter struct {
	UserID          string
	Limit           int
	CursorCreatedAt *time.Time
	CursorID        int64
}
