package btree

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// metrics bundles the counters and histograms this package records
// through the shared telemetry.Telemetry a caller constructs once per
// process. Every field is safe to use even when telemetry is disabled,
// since telemetry.New returns no-op instruments in that case.
type metrics struct {
	tracer trace.Tracer

	insertCount   metric.Int64Counter
	splitCount    metric.Int64Counter
	scanCount     metric.Int64Counter
	scanLatency   metric.Float64Histogram
	insertLatency metric.Float64Histogram
}

func newMetrics(meter metric.Meter, tracer trace.Tracer) (*metrics, error) {
	insertCount, err := meter.Int64Counter("btree.insert.count",
		metric.WithDescription("number of insertEntry calls"))
	if err != nil {
		return nil, err
	}
	splitCount, err := meter.Int64Counter("btree.split.count",
		metric.WithDescription("number of insertEntry calls that split at least one node"))
	if err != nil {
		return nil, err
	}
	scanCount, err := meter.Int64Counter("btree.scan.count",
		metric.WithDescription("number of startScan calls"))
	if err != nil {
		return nil, err
	}
	scanLatency, err := meter.Float64Histogram("btree.scan.latency_ms",
		metric.WithDescription("startScan latency"))
	if err != nil {
		return nil, err
	}
	insertLatency, err := meter.Float64Histogram("btree.insert.latency_ms",
		metric.WithDescription("insertEntry latency"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		tracer:        tracer,
		insertCount:   insertCount,
		splitCount:    splitCount,
		scanCount:     scanCount,
		scanLatency:   scanLatency,
		insertLatency: insertLatency,
	}, nil
}

func (m *metrics) recordInsert(ctx context.Context, start time.Time, split bool) {
	m.insertCount.Add(ctx, 1)
	if split {
		m.splitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "split")))
	}
	m.insertLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
}

func (m *metrics) recordScanStart(ctx context.Context, start time.Time) {
	m.scanCount.Add(ctx, 1)
	m.scanLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
}
