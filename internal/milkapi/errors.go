package milkapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSessionExpired = errors.New("session_expired")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNoSubscription = errors.New("no_subscription")
)

// APIError is a non-2xx upstream response that maps to no sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("milkapi: upstream status %d", e.Status)
	}
	return fmt.Sprintf("milkapi: upstream status %d: %s", e.Status, e.Message)
}

func (e *APIError) temporary() bool {
	return e.Status >= http.StatusInternalServerError
}

// transportError marks failures that never produced a response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "milkapi: transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// ValidationError lists request fields that failed validation by tag.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidRequest.Error(), e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }
