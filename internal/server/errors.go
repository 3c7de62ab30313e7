package server

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	"github.com/smallbiznis/milkseller/internal/authorization"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var upstreamValidation *milkapi.ValidationError
	if errors.As(err, &upstreamValidation) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fieldErrors(upstreamValidation.Fields),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var apiErr *milkapi.APIError
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, accesskeydomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, pricingdomain.ErrEffectiveOverlap),
		errors.Is(err, billingdomain.ErrSnapshotInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, billingdomain.ErrNoSubscription),
		errors.Is(err, milkapi.ErrNoSubscription):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "no_subscription",
			Message: "customer has no subscription",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, milkapi.ErrSessionExpired),
		errors.Is(err, milkapi.ErrUnauthorized),
		errors.As(err, &apiErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "upstream request failed",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, milkapi.ErrInvalidRequest),
		errors.Is(err, calendar.ErrInvalidDate):
		return true
	case isBillingValidationError(err),
		isPricingValidationError(err),
		isAccessKeyValidationError(err):
		return true
	default:
		return false
	}
}

func isBillingValidationError(err error) bool {
	switch {
	case errors.Is(err, billingdomain.ErrInvalidPeriod),
		errors.Is(err, billingdomain.ErrInvalidUserID),
		errors.Is(err, billingdomain.ErrInvalidMilkType),
		errors.Is(err, billingdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isPricingValidationError(err error) bool {
	switch {
	case errors.Is(err, pricingdomain.ErrInvalidMilkType),
		errors.Is(err, pricingdomain.ErrInvalidPrice),
		errors.Is(err, pricingdomain.ErrInvalidEffectiveFrom),
		errors.Is(err, pricingdomain.ErrInvalidEffectiveTo),
		errors.Is(err, pricingdomain.ErrInvalidEffectiveRange):
		return true
	default:
		return false
	}
}

func isAccessKeyValidationError(err error) bool {
	switch {
	case errors.Is(err, accesskeydomain.ErrInvalidName),
		errors.Is(err, accesskeydomain.ErrInvalidRole),
		errors.Is(err, accesskeydomain.ErrInvalidKeyID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrSnapshotNotFound),
		errors.Is(err, pricingdomain.ErrNotFound),
		errors.Is(err, accesskeydomain.ErrNotFound),
		errors.Is(err, milkapi.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, milkapi.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, calendar.ErrInvalidDate):
		return calendar.ErrInvalidDate.Error()
	case errors.Is(err, billingdomain.ErrInvalidPeriod):
		return billingdomain.ErrInvalidPeriod.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_period":
		return "start_date and end_date must form a range of at most 366 days"
	default:
		return "invalid value"
	}
}

func fieldErrors(fields map[string]string) []ValidationError {
	out := make([]ValidationError, 0, len(fields))
	for field, code := range fields {
		out = append(out, ValidationError{Field: field, Code: code, Message: "invalid value"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
