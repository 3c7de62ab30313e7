package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *AccessKey) error
	Update(ctx context.Context, db *gorm.DB, key *AccessKey) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*AccessKey, error)
	List(ctx context.Context, db *gorm.DB) ([]AccessKey, error)
}
