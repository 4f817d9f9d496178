// Package observe holds the OpenTelemetry instruments recorded by the
// sorter and the refill scheduler. Tests should build their own Metrics
// from a ManualReader-backed provider instead of using DefaultMetrics.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sortcraft.ai"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	// SortRuns counts sorts by method, section and outcome.
	SortRuns metric.Int64Counter
	// SortMoves counts slot moves issued by sorts.
	SortMoves metric.Int64Counter
	// SortDuration is the wall time of a sort in seconds.
	SortDuration metric.Float64Histogram
	// SortNonConverged counts sorts that hit the fallback pass cap.
	SortNonConverged metric.Int64Counter

	// RefillTasks counts refill tasks by stage ("scheduled", "done",
	// "skipped", "failed").
	RefillTasks metric.Int64Counter
}

var sortBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SortRuns, err = m.Int64Counter("sortcraft.sort.runs",
		metric.WithDescription("Number of container sorts."),
	); err != nil {
		return nil, err
	}
	if met.SortMoves, err = m.Int64Counter("sortcraft.sort.moves",
		metric.WithDescription("Number of slot moves issued by sorts."),
	); err != nil {
		return nil, err
	}
	if met.SortDuration, err = m.Float64Histogram("sortcraft.sort.duration",
		metric.WithDescription("Wall time of a container sort."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sortBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SortNonConverged, err = m.Int64Counter("sortcraft.sort.nonconverged",
		metric.WithDescription("Sorts whose fallback pass hit the iteration cap."),
	); err != nil {
		return nil, err
	}
	if met.RefillTasks, err = m.Int64Counter("sortcraft.refill.tasks",
		metric.WithDescription("Auto-refill tasks by stage."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics uses the global meter provider. It panics if the
// instruments cannot be created.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordSort records one finished sort.
func (m *Metrics) RecordSort(ctx context.Context, method, section string, moves int, d time.Duration, converged bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("section", section),
	)
	status := "ok"
	if !converged {
		status = "nonconverged"
		m.SortNonConverged.Add(ctx, 1, attrs)
	}
	m.SortRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("section", section),
		attribute.String("status", status),
	))
	m.SortMoves.Add(ctx, int64(moves), attrs)
	m.SortDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordRefill(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.RefillTasks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
