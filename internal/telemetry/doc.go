// Package telemetry provides OpenTelemetry tracing and metrics for activitymap.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	ctx, span := tel.Tracer("activitymap/pipeline").Start(ctx, "pipeline.fetch")
//	defer span.End()
//
// Spans and metrics are exported over OTLP/HTTP. A run is short, so Shutdown
// must be called before exit to flush what the batchers still hold.
//
// # Error Handling
//
// Telemetry failures never fail a run. If an exporter cannot be created the
// instance is marked degraded and hands out no-op tracers and meters.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
