package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PagingMetrics holds the instruments recorded by the GraphQL endpoint, the
// paged relation engine and the eager loader. A nil *PagingMetrics is valid
// and records nothing.
type PagingMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter

	pagedDuration metric.Float64Histogram
	pagedResults  metric.Int64Histogram
	pagedTotal    metric.Int64Histogram
	pagedErrors   metric.Int64Counter

	segmentDuration metric.Float64Histogram
	segmentRows     metric.Int64Histogram
	segmentErrors   metric.Int64Counter
}

// InitPagingMetrics creates the instruments on the global meter provider.
func InitPagingMetrics() (*PagingMetrics, error) {
	meter := otel.Meter("relay-paging")
	m := &PagingMetrics{}
	var err error

	if m.requestDuration, err = meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if m.requestCounter, err = meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.errorCounter, err = meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("Total number of GraphQL requests that returned errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if m.activeRequests, err = meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("Number of in-flight GraphQL requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	if m.pagedDuration, err = meter.Float64Histogram(
		"paging.query.duration",
		metric.WithDescription("Duration of paged relation queries in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create paged query duration histogram: %w", err)
	}
	if m.pagedResults, err = meter.Int64Histogram(
		"paging.query.results",
		metric.WithDescription("Distinct results returned by a paged relation query"),
	); err != nil {
		return nil, fmt.Errorf("failed to create paged results histogram: %w", err)
	}
	if m.pagedTotal, err = meter.Int64Histogram(
		"paging.query.total",
		metric.WithDescription("Pre-window row count reported by a paged relation query"),
	); err != nil {
		return nil, fmt.Errorf("failed to create paged total histogram: %w", err)
	}
	if m.pagedErrors, err = meter.Int64Counter(
		"paging.query.errors",
		metric.WithDescription("Paged relation queries that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create paged error counter: %w", err)
	}

	if m.segmentDuration, err = meter.Float64Histogram(
		"paging.segment.duration",
		metric.WithDescription("Duration of one eager-load segment query in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create segment duration histogram: %w", err)
	}
	if m.segmentRows, err = meter.Int64Histogram(
		"paging.segment.rows",
		metric.WithDescription("Distinct instances loaded by one eager-load segment"),
	); err != nil {
		return nil, fmt.Errorf("failed to create segment rows histogram: %w", err)
	}
	if m.segmentErrors, err = meter.Int64Counter(
		"paging.segment.errors",
		metric.WithDescription("Eager-load segments that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create segment error counter: %w", err)
	}

	return m, nil
}

// RecordRequest records a GraphQL request with its duration and outcome
func (m *PagingMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", hasErrors),
	)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requestCounter.Add(ctx, 1, attrs)
	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation_type", operationType)))
	}
}

// IncrementActiveRequests increments the in-flight request gauge.
func (m *PagingMetrics) IncrementActiveRequests(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests decrements the in-flight request gauge.
func (m *PagingMetrics) DecrementActiveRequests(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, -1)
}

// RecordPagedQuery records one paged relation query.
func (m *PagingMetrics) RecordPagedQuery(ctx context.Context, path string, results, total int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("path", path))
	m.pagedDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.pagedErrors.Add(ctx, 1, attrs)
		return
	}
	m.pagedResults.Record(ctx, int64(results), attrs)
	m.pagedTotal.Record(ctx, int64(total), attrs)
}

// RecordSegment records one eager-load segment.
func (m *PagingMetrics) RecordSegment(ctx context.Context, relation string, rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("relation", relation))
	m.segmentDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.segmentErrors.Add(ctx, 1, attrs)
		return
	}
	m.segmentRows.Record(ctx, int64(rows), attrs)
}
