package hooks

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/vibed/internal/hooks"

var failureCounter metric.Int64Counter

func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error
	failureCounter, err = meter.Int64Counter(
		"vibed.hooks.failures",
		metric.WithDescription("Total number of hook handler failures, by hook point and kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create hook failure counter: %v", err))
	}
}

func init() {
	initMetrics()
}

func recordFailure(ctx context.Context, hook HookType, plugin string, err error) {
	kind := "infrastructure"
	if IsValidation(err) {
		kind = "validation"
	}
	failureCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hook", string(hook)),
		attribute.String("plugin", plugin),
		attribute.String("kind", kind),
	))
}
