package domain

import "time"

// AccessKey is a hashed service credential. ID is a ULID and doubles as the
// public half of the bearer token.
type AccessKey struct {
	ID         string     `gorm:"primaryKey;type:text"`
	Name       string     `gorm:"type:text;not null"`
	Role       string     `gorm:"type:text;not null"`
	SecretHash string     `gorm:"column:secret_hash;type:text;not null"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
}

// TableName sets the database table name.
func (AccessKey) TableName() string { return "access_keys" }
