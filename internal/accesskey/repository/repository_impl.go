package repository

import (
	"context"

	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accesskeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *accesskeydomain.AccessKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO access_keys (id, name, role, secret_hash, is_active, created_at, updated_at, last_used_at, revoked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID,
		key.Name,
		key.Role,
		key.SecretHash,
		key.IsActive,
		key.CreatedAt,
		key.UpdatedAt,
		key.LastUsedAt,
		key.RevokedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, key *accesskeydomain.AccessKey) error {
	return db.WithContext(ctx).Exec(
		`UPDATE access_keys
		 SET name = ?, role = ?, is_active = ?, updated_at = ?, last_used_at = ?, revoked_at = ?
		 WHERE id = ?`,
		key.Name,
		key.Role,
		key.IsActive,
		key.UpdatedAt,
		key.LastUsedAt,
		key.RevokedAt,
		key.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*accesskeydomain.AccessKey, error) {
	var key accesskeydomain.AccessKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, role, secret_hash, is_active, created_at, updated_at, last_used_at, revoked_at
		 FROM access_keys WHERE id = ?`,
		id,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == "" {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]accesskeydomain.AccessKey, error) {
	var keys []accesskeydomain.AccessKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, role, secret_hash, is_active, created_at, updated_at, last_used_at, revoked_at
		 FROM access_keys ORDER BY created_at DESC`,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}
