// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GetTracer returns a tracer from the global provider. Without an SDK
// configured this is a no-op tracer.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// GetMeter returns a meter from the global provider. Without an SDK
// configured this is a no-op meter.
func GetMeter(name string) metric.Meter {
	return otel.Meter(name)
}

// StartSpan creates a new span with the given tracer and span name.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return GetTracer(tracerName).Start(ctx, spanName, opts...)
}

// RecordError records an error on the span in the given context.
// If no span is recording this is a no-op.
func RecordError(ctx context.Context, err error, description string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err, trace.WithAttributes(
			attribute.String("error.description", description),
		))
		span.SetStatus(codes.Error, description)
	}
}

// GetCtxFromReq extracts distributed tracing context from a bus micro
// service request. If no trace context is present in the headers the
// returned context derives from context.Background().
func GetCtxFromReq(req micro.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(req.Headers()))
}

// InjectHeaders writes the trace context of ctx into a NATS header map
// for propagation across the bus.
func InjectHeaders(ctx context.Context, h nats.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}
