package milkapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/civil"
)

// Login opens a session and stores the returned token pair.
func (c *Client) Login(ctx context.Context, in LoginRequest) (User, error) {
	if err := c.validateStruct(in); err != nil {
		return User{}, err
	}
	var out struct {
		User   userDTO `json:"user"`
		Tokens Tokens  `json:"tokens"`
	}
	if err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login/",
		endpoint:  "auth.login",
		body:      in,
		anonymous: true,
	}, &out); err != nil {
		return User{}, err
	}
	if out.Tokens.Access == "" {
		return User{}, fmt.Errorf("%w: login returned no access token", ErrUnauthorized)
	}
	if err := c.tokens.Save(ctx, out.Tokens); err != nil {
		return User{}, fmt.Errorf("save tokens: %w", err)
	}
	return out.User.toDomain()
}

// Subscription returns the session user's subscription or ErrNoSubscription.
func (c *Client) Subscription(ctx context.Context) (Subscription, error) {
	var out subscriptionDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/subscription/",
		endpoint: "subscription.get",
	}, &out); err != nil {
		return Subscription{}, err
	}
	if out.ID == "" {
		return Subscription{}, ErrNoSubscription
	}
	return out.toDomain()
}

// UpdateRate schedules a new daily quantity for the session user.
func (c *Client) UpdateRate(ctx context.Context, in UpdateRateRequest) (UpdateRateResponse, error) {
	if err := c.validateStruct(in); err != nil {
		return UpdateRateResponse{}, err
	}
	body := map[string]string{
		"new_daily_liters": in.NewDailyLiters.StringFixed(2),
		"effective_from":   in.EffectiveFrom.String(),
	}
	var out struct {
		Message       string   `json:"message"`
		EffectiveFrom string   `json:"effective_from"`
		NewRate       *rateDTO `json:"new_rate"`
	}
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/subscription/update-rate/",
		endpoint: "subscription.update_rate",
		body:     body,
	}, &out); err != nil {
		return UpdateRateResponse{}, err
	}

	resp := UpdateRateResponse{Message: out.Message, EffectiveFrom: in.EffectiveFrom}
	if out.EffectiveFrom != "" {
		from, err := parseDate("effective_from", out.EffectiveFrom)
		if err != nil {
			return UpdateRateResponse{}, err
		}
		resp.EffectiveFrom = from
	}
	if out.NewRate != nil {
		rate, err := out.NewRate.toDomain()
		if err != nil {
			return UpdateRateResponse{}, fmt.Errorf("new_rate.%w", err)
		}
		resp.NewRate = &rate
	}
	return resp, nil
}

func (c *Client) BillingHistory(ctx context.Context, start, end civil.Date) (BillingHistory, error) {
	var out billingHistoryDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/subscription/billing-history/",
		endpoint: "subscription.billing_history",
		query:    periodQuery(start, end),
	}, &out); err != nil {
		return BillingHistory{}, err
	}
	return out.toDomain()
}

// BillingReport fetches the admin report for one customer, deliveries included.
func (c *Client) BillingReport(ctx context.Context, userID string, start, end civil.Date) (BillingReport, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return BillingReport{}, ErrInvalidRequest
	}
	query := periodQuery(start, end)
	query.Set("user_id", userID)

	var out billingReportDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/admin/billing-report/",
		endpoint: "admin.billing_report",
		query:    query,
	}, &out); err != nil {
		return BillingReport{}, err
	}
	return out.toDomain()
}

func (c *Client) Schedule(ctx context.Context, date civil.Date) (Schedule, error) {
	var out scheduleDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/admin/schedule/",
		endpoint: "admin.schedule",
		query:    url.Values{"date": []string{date.String()}},
	}, &out); err != nil {
		return Schedule{}, err
	}
	return out.toDomain()
}

// User fetches one customer with its subscription, when it has one.
func (c *Client) User(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, ErrInvalidRequest
	}
	var out userDTO
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/admin/users/" + url.PathEscape(userID) + "/",
		endpoint: "admin.user",
	}, &out); err != nil {
		return User{}, err
	}
	return out.toDomain()
}

func periodQuery(start, end civil.Date) url.Values {
	return url.Values{
		"start_date": []string{start.String()},
		"end_date":   []string{end.String()},
	}
}
