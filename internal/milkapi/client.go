// Package milkapi is the typed client for the MilkSeller REST API.
package milkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/milkseller/internal/clock"
	obsmetrics "github.com/smallbiznis/milkseller/internal/observability/metrics"
	"github.com/smallbiznis/milkseller/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// Config configures the upstream client. PhoneNumber and Password are optional
// service credentials used to open a session when no tokens are stored.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	PhoneNumber   string
	Password      string
}

type Client struct {
	cfg      Config
	http     *http.Client
	tokens   TokenStore
	logout   LogoutHandler
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
	validate *validator.Validate
	tracer   trace.Tracer
	clock    clock.Clock
	loc      *time.Location
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log.Named("milkapi") }
}

func WithMetrics(m *obsmetrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock sets how "today" is computed for date checks on outgoing requests.
func WithClock(clk clock.Clock, loc *time.Location) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
		if loc != nil {
			c.loc = loc
		}
	}
}

// New builds a client. tokens must be non-nil; logout may be nil.
func New(cfg Config, tokens TokenStore, logout LogoutHandler, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		tokens:   tokens,
		logout:   logout,
		log:      zap.NewNop(),
		validate: newValidator(),
		tracer:   otel.Tracer("milkseller/milkapi"),
		clock:    clock.New(),
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method   string
	path     string
	endpoint string
	query    url.Values
	body     any
	// anonymous requests skip the bearer header and the 401 refresh.
	anonymous bool
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", req.endpoint, err)
		}
		payload = encoded
	}

	if !req.anonymous {
		if err := c.ensureSession(ctx); err != nil {
			return err
		}
	}

	attempts := 1
	if req.method == http.MethodGet {
		attempts = c.cfg.RetryAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := c.cfg.RetryBackoff * time.Duration(attempt-1)
			c.log.Debug("retrying upstream request",
				zap.String("endpoint", req.endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := c.send(ctx, req, payload, out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, req request, payload []byte, out any) error {
	resp, err := c.roundTrip(ctx, req, payload)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && !req.anonymous {
		if err := c.refresh(ctx); err != nil {
			return err
		}
		resp, err = c.roundTrip(ctx, req, payload)
		if err != nil {
			return err
		}
		if resp.status == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(resp.body))
		}
	}

	return c.decode(ctx, req, resp, out)
}

func (c *Client) roundTrip(ctx context.Context, req request, payload []byte) (response, error) {
	ctx, span := c.tracer.Start(ctx, "milkapi "+req.endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	endpoint := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return response{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.anonymous {
		tokens, err := c.tokens.Load(ctx)
		if err != nil {
			return response{}, fmt.Errorf("load tokens: %w", err)
		}
		if tokens.Access != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tokens.Access)
		}
	}
	tracing.InjectContext(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordUpstreamRequest(ctx, req.endpoint, 0)
		span.SetStatus(codes.Error, "transport error")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, ctxErr
		}
		return response{}, &transportError{err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return response{}, &transportError{err: err}
	}

	c.metrics.RecordUpstreamRequest(ctx, req.endpoint, httpResp.StatusCode)
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("milkapi.endpoint", req.endpoint),
		attribute.Int("http.status_code", httpResp.StatusCode),
	)...)
	if httpResp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "upstream error")
	}
	return response{status: httpResp.StatusCode, body: raw}, nil
}

func (c *Client) decode(ctx context.Context, req request, resp response, out any) error {
	switch {
	case resp.status == http.StatusForbidden && tokenExpired(resp.body):
		c.expire(ctx, "token expired")
		return ErrSessionExpired
	case resp.status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(resp.body))
	case resp.status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, req.endpoint)
	case resp.status >= http.StatusBadRequest:
		return &APIError{Status: resp.status, Message: errorMessage(resp.body)}
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.endpoint, err)
	}
	return nil
}

// ensureSession logs in with the configured credentials when no access token is stored.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.cfg.PhoneNumber == "" || c.cfg.Password == "" {
		return nil
	}
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if tokens.Access != "" {
		return nil
	}
	_, err = c.Login(ctx, LoginRequest{PhoneNumber: c.cfg.PhoneNumber, Password: c.cfg.Password})
	return err
}

// refresh exchanges the refresh token for a new access token exactly once.
func (c *Client) refresh(ctx context.Context) error {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if tokens.Refresh == "" {
		return ErrUnauthorized
	}

	var out struct {
		Access string `json:"access"`
	}
	resp, err := c.roundTrip(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/refresh/",
		endpoint:  "auth.refresh",
		anonymous: true,
	}, mustJSON(map[string]string{"refresh": tokens.Refresh}))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil && resp.status < http.StatusBadRequest {
		err = json.Unmarshal(resp.body, &out)
	}
	if err != nil || resp.status >= http.StatusBadRequest || out.Access == "" {
		c.expire(ctx, "refresh failed")
		return ErrSessionExpired
	}

	tokens.Access = out.Access
	if err := c.tokens.Save(ctx, tokens); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

func (c *Client) expire(ctx context.Context, reason string) {
	c.log.Warn("upstream session expired", zap.String("reason", reason))
	if err := c.tokens.Clear(ctx); err != nil {
		c.log.Error("clear tokens", zap.Error(err))
	}
	if c.logout == nil {
		return
	}
	if err := c.logout.Logout(ctx); err != nil {
		c.log.Error("logout handler failed", zap.Error(err))
	}
}

func retryable(err error) bool {
	var transport *transportError
	if errors.As(err, &transport) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.temporary()
}

type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func tokenExpired(body []byte) bool {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	for _, msg := range []string{parsed.Detail, parsed.Error, parsed.Message} {
		if strings.Contains(msg, "Token expired") {
			return true
		}
	}
	return false
}

func errorMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, msg := range []string{parsed.Detail, parsed.Error, parsed.Message} {
			if msg = strings.TrimSpace(msg); msg != "" {
				return msg
			}
		}
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
