// Package tracing records one OpenTelemetry span per task lifetime.
package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tickrun/tickrun"

// Setup installs a tracer provider that writes spans to stdout. It returns
// the provider so callers can shut it down and flush pending spans.
func Setup(ctx context.Context) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", "tickrun"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// TracingObserver implements core.Observer and records one span per task,
// opened on start and ended on finish. Attach it with core.WithObserver.
type TracingObserver struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTracingObserver creates an observer using the given tracer provider.
// A nil provider uses the globally installed one.
func NewTracingObserver(tp trace.TracerProvider) *TracingObserver {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingObserver{
		tracer: tp.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}
}

func (o *TracingObserver) OnStart(taskID string) {
	_, span := o.tracer.Start(context.Background(), "task",
		trace.WithAttributes(attribute.String("task.id", taskID)))

	o.mu.Lock()
	o.spans[taskID] = span
	o.mu.Unlock()
}

func (o *TracingObserver) OnStep(taskID string) {
	if span, ok := o.span(taskID); ok {
		span.AddEvent("step")
	}
}

func (o *TracingObserver) OnPause(taskID string) {
	if span, ok := o.span(taskID); ok {
		span.AddEvent("pause")
	}
}

func (o *TracingObserver) OnResume(taskID string) {
	if span, ok := o.span(taskID); ok {
		span.AddEvent("resume")
	}
}

func (o *TracingObserver) OnFinish(taskID string, manual bool) {
	o.mu.Lock()
	span, ok := o.spans[taskID]
	delete(o.spans, taskID)
	o.mu.Unlock()

	if !ok {
		return
	}
	span.SetAttributes(attribute.Bool("task.manual", manual))
	span.End()
}

func (o *TracingObserver) span(taskID string) (trace.Span, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	span, ok := o.spans[taskID]
	return span, ok
}
