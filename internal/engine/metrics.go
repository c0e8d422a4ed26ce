package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const engineInstrumentationName = "github.com/fyrsmithlabs/flowsight/internal/engine"

// Metrics holds detection-run metrics. Instruments record through the global
// OTel meter provider; with no provider configured they are no-ops.
type Metrics struct {
	meter        metric.Meter
	logger       *zap.Logger
	duration     metric.Float64Histogram
	clusterSize  metric.Int64Histogram
	fallbacks    metric.Int64Counter
	cacheLookups metric.Int64Counter
}

// NewMetrics creates a Metrics instance for the detection engine.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(engineInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"flowsight.detection.duration_seconds",
		metric.WithDescription("Duration of a full pattern-detection run, labeled by workflow and pattern counts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.clusterSize, err = m.meter.Int64Histogram(
		"flowsight.detection.cluster_size",
		metric.WithDescription("Member count of each discovered cluster"),
		metric.WithUnit("{workflow}"),
		metric.WithExplicitBucketBoundaries(2, 3, 5, 10, 25, 50, 100),
	)
	if err != nil {
		m.logger.Warn("failed to create cluster size histogram", zap.Error(err))
	}

	m.fallbacks, err = m.meter.Int64Counter(
		"flowsight.detection.fallback_patterns_total",
		metric.WithDescription("Patterns produced by the deterministic fallback after a collaborator failure"),
		metric.WithUnit("{pattern}"),
	)
	if err != nil {
		m.logger.Warn("failed to create fallback counter", zap.Error(err))
	}

	m.cacheLookups, err = m.meter.Int64Counter(
		"flowsight.detection.cache_lookups_total",
		metric.WithDescription("Result cache lookups by outcome (hit, miss)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache lookup counter", zap.Error(err))
	}
}

// RecordDetection records the duration and shape of one detection run.
func (m *Metrics) RecordDetection(ctx context.Context, elapsed time.Duration, workflows, patterns int) {
	if m.duration == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.Int("workflows", workflows),
		attribute.Int("patterns", patterns),
	))
}

// RecordCluster records the size of one discovered cluster.
func (m *Metrics) RecordCluster(ctx context.Context, size int) {
	if m.clusterSize == nil {
		return
	}
	m.clusterSize.Record(ctx, int64(size))
}

// RecordFallback counts one fallback pattern.
func (m *Metrics) RecordFallback(ctx context.Context) {
	if m.fallbacks == nil {
		return
	}
	m.fallbacks.Add(ctx, 1)
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m.cacheLookups == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
