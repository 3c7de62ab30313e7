package milkapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/smallbiznis/milkseller/pkg/calendar"
)

type SkipReason string

const (
	SkipTraveling   SkipReason = "traveling"
	SkipExcessStock SkipReason = "excess_stock"
	SkipHealth      SkipReason = "health"
	SkipOther       SkipReason = "other"
)

const maxSkipNotes = 500

// SkipRequest asks upstream to mark one day's delivery as skipped.
type SkipRequest struct {
	ID        string
	SkipDate  civil.Date
	Reason    SkipReason
	Notes     string
	CreatedAt time.Time
}

// AdminSkipRequest is a SkipRequest as listed for admins, with the customer attached.
type AdminSkipRequest struct {
	SkipRequest
	UserName  string
	UserPhone string
}

type CreateSkipRequest struct {
	SkipDate civil.Date `json:"skip_date" validate:"required"`
	Reason   SkipReason `json:"reason" validate:"required,oneof=traveling excess_stock health other"`
	Notes    string     `json:"notes,omitempty" validate:"max=500"`
}

// UpdateSkipRequest changes only the fields that are set.
type UpdateSkipRequest struct {
	SkipDate *civil.Date `json:"skip_date,omitempty"`
	Reason   *SkipReason `json:"reason,omitempty" validate:"omitempty,oneof=traveling excess_stock health other"`
	Notes    *string     `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type skipRequestDTO struct {
	ID        flexID  `json:"id"`
	SkipDate  string  `json:"skip_date"`
	Reason    string  `json:"reason"`
	Notes     *string `json:"notes"`
	CreatedAt string  `json:"created_at"`
	UserName  string  `json:"user_name"`
	UserPhone string  `json:"user_phone"`
}

func (s skipRequestDTO) toDomain() (SkipRequest, error) {
	date, err := parseDate("skip_date", s.SkipDate)
	if err != nil {
		return SkipRequest{}, err
	}
	out := SkipRequest{
		ID:       string(s.ID),
		SkipDate: date,
		Reason:   SkipReason(s.Reason),
		Notes:    stringValue(s.Notes),
	}
	if s.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, s.CreatedAt)
		if err != nil {
			return SkipRequest{}, fmt.Errorf("created_at: %w", err)
		}
		out.CreatedAt = created
	}
	return out, nil
}

// CreateSkip files a skip request for the session user. The date may not be
// earlier than today in the business time zone.
func (c *Client) CreateSkip(ctx context.Context, in CreateSkipRequest) (SkipRequest, error) {
	if err := c.validateStruct(in); err != nil {
		return SkipRequest{}, err
	}
	if err := c.notPast("skip_date", in.SkipDate); err != nil {
		return SkipRequest{}, err
	}
	body := map[string]string{
		"skip_date": in.SkipDate.String(),
		"reason":    string(in.Reason),
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		body["notes"] = notes
	}
	var out skipRequestDTO
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/skip/",
		endpoint: "skip.create",
		body:     body,
	}, &out); err != nil {
		return SkipRequest{}, err
	}
	return out.toDomain()
}

// Skips lists the session user's skip requests inside [start, end].
func (c *Client) Skips(ctx context.Context, start, end civil.Date) ([]SkipRequest, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}
	var out []skipRequestDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/skip/list/",
		endpoint: "skip.list",
		query:    periodQuery(start, end),
	}, &out); err != nil {
		return nil, err
	}
	items := make([]SkipRequest, 0, len(out))
	for i, dto := range out {
		item, err := dto.toDomain()
		if err != nil {
			return nil, fmt.Errorf("skip[%d].%w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) Skip(ctx context.Context, skipID string) (SkipRequest, error) {
	path, err := skipPath(skipID)
	if err != nil {
		return SkipRequest{}, err
	}
	var out skipRequestDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     path,
		endpoint: "skip.get",
	}, &out); err != nil {
		return SkipRequest{}, err
	}
	return out.toDomain()
}

func (c *Client) UpdateSkip(ctx context.Context, skipID string, in UpdateSkipRequest) (SkipRequest, error) {
	path, err := skipPath(skipID)
	if err != nil {
		return SkipRequest{}, err
	}
	if in.SkipDate == nil && in.Reason == nil && in.Notes == nil {
		return SkipRequest{}, &ValidationError{Fields: map[string]string{"skip_request": "required"}}
	}
	if err := c.validateStruct(in); err != nil {
		return SkipRequest{}, err
	}
	body := map[string]string{}
	if in.SkipDate != nil {
		if err := c.notPast("skip_date", *in.SkipDate); err != nil {
			return SkipRequest{}, err
		}
		body["skip_date"] = in.SkipDate.String()
	}
	if in.Reason != nil {
		body["reason"] = string(*in.Reason)
	}
	if in.Notes != nil {
		body["notes"] = strings.TrimSpace(*in.Notes)
	}

	var out skipRequestDTO
	if err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     path,
		endpoint: "skip.update",
		body:     body,
	}, &out); err != nil {
		return SkipRequest{}, err
	}
	return out.toDomain()
}

// CancelSkip withdraws a skip request and returns upstream's message.
func (c *Client) CancelSkip(ctx context.Context, skipID string) (string, error) {
	path, err := skipPath(skipID)
	if err != nil {
		return "", err
	}
	var out messageDTO
	if err := c.do(ctx, request{
		method:   http.MethodDelete,
		path:     path,
		endpoint: "skip.cancel",
	}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// AdminSkips lists every customer's skip requests inside [start, end].
func (c *Client) AdminSkips(ctx context.Context, start, end civil.Date) ([]AdminSkipRequest, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}
	var out []skipRequestDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/admin/skip-requests/",
		endpoint: "admin.skip_requests",
		query:    periodQuery(start, end),
	}, &out); err != nil {
		return nil, err
	}
	items := make([]AdminSkipRequest, 0, len(out))
	for i, dto := range out {
		item, err := dto.toDomain()
		if err != nil {
			return nil, fmt.Errorf("skip[%d].%w", i, err)
		}
		items = append(items, AdminSkipRequest{SkipRequest: item, UserName: dto.UserName, UserPhone: dto.UserPhone})
	}
	return items, nil
}

func skipPath(skipID string) (string, error) {
	skipID = strings.TrimSpace(skipID)
	if skipID == "" {
		return "", ErrInvalidRequest
	}
	return "/skip/" + url.PathEscape(skipID) + "/", nil
}

// validRange rejects missing bounds and end before start.
func validRange(start, end civil.Date) error {
	fields := map[string]string{}
	if calendar.IsZero(start) || !start.IsValid() {
		fields["start_date"] = "required"
	}
	if calendar.IsZero(end) || !end.IsValid() {
		fields["end_date"] = "required"
	}
	if len(fields) == 0 && end.Before(start) {
		fields["end_date"] = "gtefield"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (c *Client) notPast(field string, d civil.Date) error {
	if d.Before(calendar.Today(c.clock, c.loc)) {
		return &ValidationError{Fields: map[string]string{field: "not_past"}}
	}
	return nil
}
