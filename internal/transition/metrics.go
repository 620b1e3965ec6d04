package transition

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeAdvance = "advance"
	outcomeStay    = "stay"
	outcomeBlocked = "blocked"
)

var decisionCounter metric.Int64Counter

func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error
	decisionCounter, err = meter.Int64Counter(
		"vibed.transition.decisions",
		metric.WithDescription("Total number of transition decisions, by path and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create decision counter: %v", err))
	}
}

func init() {
	initMetrics()
}

func recordDecision(ctx context.Context, workflow string, explicit bool, d *Decision) {
	path := "implicit"
	if explicit {
		path = "explicit"
	}
	outcome := outcomeAdvance
	switch {
	case len(d.PendingReviews) > 0:
		outcome = outcomeBlocked
	case d.Staying():
		outcome = outcomeStay
	}

	decisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("path", path),
		attribute.String("outcome", outcome),
		attribute.Bool("modeled", d.IsModeled),
	))
}
