package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// JobTracer provides distributed tracing for compute jobs and the request
// paths that feed them.
type JobTracer struct {
	tracer trace.Tracer
}

// NewTracerProvider creates a new OpenTelemetry tracer provider
func NewTracerProvider(serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("microgrid-planner"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// NewJobTracer creates a new job tracer
func NewJobTracer(serviceName string) *JobTracer {
	return &JobTracer{tracer: otel.Tracer(serviceName)}
}

// StartComputeSpan starts a span covering one compute model run.
func (jt *JobTracer) StartComputeSpan(ctx context.Context, computeID, model, powerloadID string) (context.Context, trace.Span) {
	return jt.tracer.Start(ctx, "compute_run",
		trace.WithAttributes(
			attribute.String("compute.id", computeID),
			attribute.String("compute.model", model),
			attribute.String("compute.powerload_id", powerloadID),
			attribute.String("component", "compute-runner"),
		),
	)
}

// StartWindowCorrectionSpan starts a span for an analysis-window validation
// pass.
func (jt *JobTracer) StartWindowCorrectionSpan(ctx context.Context, powerloadID string) (context.Context, trace.Span) {
	return jt.tracer.Start(ctx, "window_correction",
		trace.WithAttributes(
			attribute.String("window.powerload_id", powerloadID),
			attribute.String("component", "window-engine"),
		),
	)
}

// RecordComputeMetrics records run statistics on a compute span.
func (jt *JobTracer) RecordComputeMetrics(span trace.Span, duration time.Duration, success bool) {
	span.SetAttributes(
		attribute.Int64("compute.duration_ms", duration.Milliseconds()),
		attribute.Bool("compute.success", success),
	)
	if !success {
		span.SetStatus(codes.Error, "compute run failed")
	}
}

// RecordError records an error on a span
func (jt *JobTracer) RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}

// Global tracer instance
var globalJobTracer *JobTracer

// InitGlobalTracer initializes the global job tracer
func InitGlobalTracer(serviceName string) {
	globalJobTracer = NewJobTracer(serviceName)
}

// GetGlobalTracer returns the global job tracer
func GetGlobalTracer() *JobTracer {
	return globalJobTracer
}
