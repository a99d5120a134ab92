// Package observability provides logging, tracing and metrics for the
// multidisciplinary pipeline.
//
// Tracing and metrics use OpenTelemetry; logging uses log/slog and can
// correlate records with the active span.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer and meter scope used by this module.
const InstrumentationName = "medteam"

// InitTracing initializes OpenTelemetry tracing.
//
// An empty otlpEndpoint skips the OTLP exporter; a nil console writer skips
// the stdout exporter. With neither, spans are created but not exported.
func InitTracing(ctx context.Context, serviceName, otlpEndpoint string, console io.Writer) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if otlpEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(otlpEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	if console != nil {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(console),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Tracer returns the module tracer from the current global provider.
// Looking it up on every call lets tests install their own provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartInvocation starts the span covering one agent invocation.
func StartInvocation(ctx context.Context, agentName, model string, instructionLength int) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, fmt.Sprintf("agent.%s.invoke", agentName),
		trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("agent.name", agentName),
		attribute.String("llm.model", model),
		attribute.Int("agent.instruction_length", instructionLength),
	)
	return ctx, span
}

// EndInvocation records the invocation outcome on span and ends it.
func EndInvocation(span trace.Span, result agenkit.AgentResult) {
	defer span.End()

	switch {
	case result.Text == nil:
		err := result.Err
		if err == nil {
			err = errors.New("no result")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case *result.Text == "":
		span.SetAttributes(attribute.Int("agent.response_length", 0))
		span.SetStatus(codes.Error, "empty response")
	default:
		span.SetAttributes(attribute.Int("agent.response_length", len(*result.Text)))
		span.SetStatus(codes.Ok, "")
	}
}

// StartPipeline starts the root span of one pipeline run.
func StartPipeline(ctx context.Context, runID string) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, "medteam.pipeline.run")
	span.SetAttributes(attribute.String("pipeline.run_id", runID))
	return ctx, span
}

// EndSpan ends span, recording err if non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
