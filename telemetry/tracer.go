// Package telemetry configures OpenTelemetry tracing for the analysis pipeline.
package telemetry

import (
	"context"
	"io"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this service in traces.
const ServiceName = "pharma-safe-lens"

// Tracer returns the service tracer from the global provider. It is a
// no-op until InitTracer installs a real provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// InitTracer installs a tracer provider exporting spans to w (stdout when
// nil) and returns its shutdown function.
func InitTracer(w io.Writer) (func(context.Context) error, error) {
	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logging.Info("OpenTelemetry initialized", "service", ServiceName)
	return tp.Shutdown, nil
}
