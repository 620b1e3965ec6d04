package taskbackend

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/vibed/internal/taskbackend"

const (
	probeResultPlan     = "plan"
	probeResultTracker  = "tracker"
	probeResultFallback = "fallback"
)

var (
	probeCounter  metric.Int64Counter
	probeDuration metric.Float64Histogram
)

func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error

	probeCounter, err = meter.Int64Counter(
		"vibed.taskbackend.probes",
		metric.WithDescription("Total number of task backend detection probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create probe counter: %v", err))
	}

	probeDuration, err = meter.Float64Histogram(
		"vibed.taskbackend.probe_duration",
		metric.WithDescription("Duration of task backend detection probes"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create probe duration histogram: %v", err))
	}
}

func init() {
	initMetrics()
}

func recordProbe(ctx context.Context, result string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	probeCounter.Add(ctx, 1, attrs)
	probeDuration.Record(ctx, elapsed.Seconds(), attrs)
}
