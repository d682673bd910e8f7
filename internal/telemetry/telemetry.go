// Package telemetry wires a real OpenTelemetry SDK tracer/meter provider at
// process startup. Everywhere else in the module (internal/dal, above all)
// calls the global otel.Tracer/otel.Meter accessors and stays agnostic of
// whatever provider is installed; this package is what actually installs a
// provider behind them instead of the SDK's built-in no-op.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Shutdown flushes and stops the installed providers.
type Shutdown func(context.Context) error

// Setup installs an SDK TracerProvider and MeterProvider as the process-wide
// otel globals, tagged with serviceName. No exporter is registered (metrics
// export/observability backends are out of scope, spec.md §1 Non-goals), so
// spans and metrics are aggregated in-process and dropped on Shutdown rather
// than pushed anywhere; this still gives internal/dal a real provider to
// record against instead of the SDK's default no-op, and leaves a single
// seam (a WithBatcher/WithReader call here) for an operator to wire a real
// exporter later.
func Setup(serviceName string) Shutdown {
	res := resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName))

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}
}
