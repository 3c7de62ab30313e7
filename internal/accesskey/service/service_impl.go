package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	"github.com/smallbiznis/milkseller/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	secretBytes = 32
	// lastUsedResolution bounds how often a hot key rewrites last_used_at.
	lastUsedResolution = time.Minute
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  accesskeydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  accesskeydomain.Repository
}

func New(p Params) accesskeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("accesskey.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req accesskeydomain.CreateRequest) (*accesskeydomain.SecretResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, accesskeydomain.ErrInvalidName
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !accesskeydomain.ValidRole(role) {
		return nil, accesskeydomain.ErrInvalidRole
	}

	now := s.clock.Now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	hash, err := accesskeydomain.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	key := &accesskeydomain.AccessKey{
		ID:         id,
		Name:       name,
		Role:       role,
		SecretHash: hash,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.log.Info("access key created", zap.String("key_id", id), zap.String("role", role))
	return &accesskeydomain.SecretResponse{KeyID: id, Token: id + "." + secret}, nil
}

func (s *Service) Verify(ctx context.Context, token string) (*accesskeydomain.Principal, error) {
	keyID, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || secret == "" {
		return nil, accesskeydomain.ErrInvalidToken
	}
	if _, err := ulid.ParseStrict(keyID); err != nil {
		return nil, accesskeydomain.ErrInvalidToken
	}

	key, err := s.repo.FindByID(ctx, s.db, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil || !key.IsActive {
		return nil, accesskeydomain.ErrInvalidToken
	}
	if !accesskeydomain.VerifySecret(secret, key.SecretHash) {
		return nil, accesskeydomain.ErrInvalidToken
	}

	now := s.clock.Now().UTC()
	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= lastUsedResolution {
		key.LastUsedAt = &now
		key.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, key); err != nil {
			s.log.Warn("record access key use", zap.String("key_id", key.ID), zap.Error(err))
		}
	}

	return &accesskeydomain.Principal{KeyID: key.ID, Name: key.Name, Role: key.Role}, nil
}

func (s *Service) List(ctx context.Context) ([]accesskeydomain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]accesskeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return accesskeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByID(ctx, s.db, trimmed)
	if err != nil {
		return err
	}
	if key == nil {
		return accesskeydomain.ErrNotFound
	}
	if !key.IsActive {
		return nil
	}

	now := s.clock.Now().UTC()
	key.IsActive = false
	key.UpdatedAt = now
	key.RevokedAt = &now
	return s.repo.Update(ctx, s.db, key)
}

func toResponse(key *accesskeydomain.AccessKey) accesskeydomain.Response {
	return accesskeydomain.Response{
		KeyID:      key.ID,
		Name:       key.Name,
		Role:       key.Role,
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
		RevokedAt:  key.RevokedAt,
	}
}

func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
