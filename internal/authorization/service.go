package authorization

import (
	"context"
	"errors"
)

// Service decides whether an access key may perform action on object.
type Service interface {
	Authorize(ctx context.Context, keyID string, role string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
