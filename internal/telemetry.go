package internal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "anello"

// Telemetry bundles the logger, tracer and meter of a component.
type Telemetry struct {
	componentKind string
	componentName string

	l *Logger

	tracer trace.Tracer
	meter  metric.Meter
}

// NewTelemetry returns a new [Telemetry] for the given component.
func NewTelemetry(componentKind, componentName string) *Telemetry {
	return &Telemetry{
		componentKind: componentKind,
		componentName: componentName,

		l: NewLogger(componentKind, componentName),

		tracer: otel.GetTracerProvider().Tracer(scopeName),
		meter:  otel.GetMeterProvider().Meter(scopeName),
	}
}

// Logger returns the underlying logger.
func (t *Telemetry) Logger() *Logger {
	return t.l
}

// LogInfo logs at the info level.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.l.Info(msg, args...)
}

// LogWarn logs at the warn level.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.l.Warn(msg, args...)
}

// LogError logs at the error level.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.l.Error(msg, err, args...)
}

func (t *Telemetry) setDefaultAttributes(span trace.Span) {
	span.SetAttributes(
		attribute.String("anello.component_kind", t.componentKind),
		attribute.String("anello.component_name", t.componentName),
	)
}

// NewTrace starts a new span tagged with the component attributes.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, spanName, opts...)
	t.setDefaultAttributes(span)
	return ctx, span
}

func (t *Telemetry) getMeterName(name string) string {
	return fmt.Sprintf("%s_%s_%s", t.componentKind, t.componentName, name)
}

// NewCounter registers an observable counter that reports the value
// returned by the given callback.
func (t *Telemetry) NewCounter(name string, callback func() int64) {
	counterName := t.getMeterName(name)

	_, err := t.meter.Int64ObservableCounter(counterName,
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(callback())
			return nil
		}),
	)
	if err != nil {
		t.LogError("failed to create counter", err, "name", counterName)
	}
}

// NewHistogram returns a new float64 histogram.
func (t *Telemetry) NewHistogram(name string, opts ...metric.Float64HistogramOption) metric.Float64Histogram {
	histogramName := t.getMeterName(name)

	histogram, err := t.meter.Float64Histogram(histogramName, opts...)
	if err != nil {
		t.LogError("failed to create histogram", err, "name", histogramName)
	}

	return histogram
}
