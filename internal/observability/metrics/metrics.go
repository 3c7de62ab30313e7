package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	rateFallbacks    metric.Int64Counter
	breakdowns       metric.Int64Counter
	snapshots        metric.Int64Counter
	upstreamRequests metric.Int64Counter
}

type counterDef struct {
	dst  *metric.Int64Counter
	name string
	help string
}

// New creates the domain counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cfg.serviceName())
	m := &Metrics{}
	defs := []counterDef{
		{&m.rateFallbacks, "milkseller_rate_fallback_total", "Rate resolutions that did not match a rate segment."},
		{&m.breakdowns, "milkseller_breakdowns_total", "Billing breakdowns computed, by source."},
		{&m.snapshots, "milkseller_snapshots_total", "Billing snapshot writes, by outcome."},
		{&m.upstreamRequests, "milkseller_upstream_requests_total", "Calls to the MilkSeller API, by endpoint and status."},
	}
	for _, def := range defs {
		counter, err := meter.Int64Counter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, err
		}
		*def.dst = counter
	}
	return m, nil
}

// RecordRateFallback counts a resolution that used the fallback chain.
func (m *Metrics) RecordRateFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	add(ctx, m.rateFallbacks, attribute.String("reason", strings.TrimSpace(reason)))
}

// RecordBreakdown counts a computed breakdown by source and whether it was priced.
func (m *Metrics) RecordBreakdown(ctx context.Context, source string, priced bool) {
	if m == nil {
		return
	}
	add(ctx, m.breakdowns,
		attribute.String("source", strings.TrimSpace(source)),
		attribute.Bool("priced", priced),
	)
}

func (m *Metrics) RecordSnapshot(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	add(ctx, m.snapshots, attribute.String("outcome", strings.TrimSpace(outcome)))
}

// RecordUpstreamRequest counts one MilkSeller API call. endpoint must be the
// path template, never a path carrying a user id.
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, endpoint string, statusCode int) {
	if m == nil {
		return
	}
	add(ctx, m.upstreamRequests,
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.Int("status_code", statusCode),
	)
}

func add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	counter.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

// Label keys allowed on domain counters. Customer and key ids are excluded.
var allowedLabelKeys = map[attribute.Key]bool{
	"endpoint":    true,
	"status_code": true,
	"reason":      true,
	"source":      true,
	"priced":      true,
	"outcome":     true,
	"milk_type":   true,
}

// FilterAttributes drops labels outside the allowed set.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		if allowedLabelKeys[attr.Key] {
			kept = append(kept, attr)
		}
	}
	return kept
}
