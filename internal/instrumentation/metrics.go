package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
)

// Metrics provides methods for recording observability metrics. A zero
// Metrics value is a no-op recorder, used when instrumentation is disabled.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	providerOperationsTotal   metric.Int64Counter
	providerOperationDuration metric.Float64Histogram

	oauthAuthTotal metric.Int64Counter
	bookingsTotal  metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active guest sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	m.providerOperationsTotal, err = meter.Int64Counter(
		"provider_operations_total",
		metric.WithDescription("Total number of calendar provider operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_operations_total counter: %w", err)
	}

	m.providerOperationDuration, err = meter.Float64Histogram(
		"provider_operation_duration_seconds",
		metric.WithDescription("Calendar provider operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.bookingsTotal, err = meter.Int64Counter(
		"bookings_total",
		metric.WithDescription("Total number of booking attempts"),
		metric.WithUnit("{booking}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookings_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// AddActiveSessions adjusts the active session gauge.
func (m *Metrics) AddActiveSessions(ctx context.Context, delta int64) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, delta)
}

// RecordProviderOperation records one calendar provider call.
func (m *Metrics) RecordProviderOperation(ctx context.Context, operation string, err error, duration time.Duration) {
	if m == nil || m.providerOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, statusFromError(err)),
	)
	m.providerOperationsTotal.Add(ctx, 1, attrs)
	m.providerOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAttempt records one guest authentication attempt.
func (m *Metrics) RecordOAuthAttempt(ctx context.Context, err error) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, statusFromError(err)),
	))
}

// RecordBooking records one booking attempt.
func (m *Metrics) RecordBooking(ctx context.Context, err error) {
	if m == nil || m.bookingsTotal == nil {
		return
	}
	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, statusFromError(err)),
	))
}

func statusFromError(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
