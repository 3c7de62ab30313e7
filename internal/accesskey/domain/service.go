package domain

import (
	"context"
	"errors"
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// ValidRole reports whether role is one the authorizer knows.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCustomer
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	// Verify parses a "<key_id>.<secret>" token and returns the key's principal.
	Verify(ctx context.Context, token string) (*Principal, error)
	List(ctx context.Context) ([]Response, error)
	Revoke(ctx context.Context, keyID string) error
}

type CreateRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Principal is the authenticated caller behind a verified key.
type Principal struct {
	KeyID string
	Name  string
	Role  string
}

type Response struct {
	KeyID      string     `json:"key_id"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}

// SecretResponse carries the plaintext token. It is only ever returned once.
type SecretResponse struct {
	KeyID string `json:"key_id"`
	Token string `json:"token"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrInvalidKeyID = errors.New("invalid_key_id")
	ErrInvalidToken = errors.New("invalid_token")
	ErrNotFound     = errors.New("not_found")
)
