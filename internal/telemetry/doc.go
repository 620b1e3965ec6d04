// Package telemetry provides OpenTelemetry integration for distributed
// tracing and metrics collection.
//
// Telemetry is disabled by default and degrades gracefully: if the OTLP
// exporter cannot be constructed, the server keeps running and Tracer and
// Meter fall back to the global no-op providers. Health reports whether
// initialization succeeded and, if not, why.
//
// Initialization:
//
//	cfg := telemetry.NewDefaultConfig()
//	cfg.Enabled = true
//	cfg.Exporter.Endpoint = "localhost:4317"
//
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(ctx)
//
// Instrumentation:
//
//	tracer := tel.Tracer("vibed/transition")
//	ctx, span := tracer.Start(ctx, "transition.evaluate")
//	defer span.End()
//
//	meter := tel.Meter("vibed/mcp")
//	counter, _ := meter.Int64Counter("vibed.tool.calls")
//	counter.Add(ctx, 1)
//
// Tests use NewTestTelemetry, which records spans and metrics in memory
// and never exports.
package telemetry
