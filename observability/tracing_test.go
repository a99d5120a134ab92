package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracing sets up a test tracer provider with in-memory exporter
func setupTestTracing(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, exporter
}

func TestInvocationSpanSuccess(t *testing.T) {
	_, exporter := setupTestTracing(t)

	_, span := StartInvocation(context.Background(), "Cardiologist", "stub", 120)
	EndInvocation(span, agenkit.Succeeded("Cardiologist", "CARD_OK"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}

	got := spans[0]
	if got.Name != "agent.Cardiologist.invoke" {
		t.Errorf("Expected span name 'agent.Cardiologist.invoke', got '%s'", got.Name)
	}
	if got.Status.Code != codes.Ok {
		t.Errorf("Expected status OK, got %v", got.Status.Code)
	}

	hasAgentName := false
	for _, attr := range got.Attributes {
		switch string(attr.Key) {
		case "agent.name":
			hasAgentName = attr.Value.AsString() == "Cardiologist"
		case "agent.response_length":
			if attr.Value.AsInt64() != int64(len("CARD_OK")) {
				t.Errorf("Unexpected response length %d", attr.Value.AsInt64())
			}
		}
	}
	if !hasAgentName {
		t.Error("Missing agent.name attribute")
	}
}

func TestInvocationSpanFailure(t *testing.T) {
	_, exporter := setupTestTracing(t)

	_, span := StartInvocation(context.Background(), "Psychologist", "stub", 10)
	EndInvocation(span, agenkit.Failed("Psychologist", errors.New("backend down")))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("Expected status Error, got %v", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("Expected the error to be recorded as a span event")
	}
}

func TestInvocationSpanEmptyResponse(t *testing.T) {
	_, exporter := setupTestTracing(t)

	_, span := StartInvocation(context.Background(), "Pulmonologist", "stub", 10)
	EndInvocation(span, agenkit.Succeeded("Pulmonologist", ""))

	if got := exporter.GetSpans()[0].Status; got.Code != codes.Error || got.Description != "empty response" {
		t.Errorf("Expected empty response error status, got %+v", got)
	}
}

func TestInvocationSpansNestUnderPipeline(t *testing.T) {
	_, exporter := setupTestTracing(t)

	ctx, root := StartPipeline(context.Background(), "run-1")
	_, child := StartInvocation(ctx, "Cardiologist", "stub", 1)
	EndInvocation(child, agenkit.Succeeded("Cardiologist", "x"))
	EndSpan(root, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	var rootSpan, childSpan tracetest.SpanStub
	for _, s := range spans {
		if s.Name == "medteam.pipeline.run" {
			rootSpan = s
		} else {
			childSpan = s
		}
	}
	if childSpan.Parent.SpanID() != rootSpan.SpanContext.SpanID() {
		t.Error("Invocation span should be a child of the pipeline span")
	}
	if childSpan.SpanContext.TraceID() != rootSpan.SpanContext.TraceID() {
		t.Error("Spans should share a trace")
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	_, exporter := setupTestTracing(t)

	_, span := StartPipeline(context.Background(), "run-2")
	EndSpan(span, errors.New("incomplete specialist set"))

	if got := exporter.GetSpans()[0].Status.Code; got != codes.Error {
		t.Errorf("Expected status Error, got %v", got)
	}
}

func TestInitTracingWithoutExporters(t *testing.T) {
	tp, err := InitTracing(context.Background(), "medteam-test", "", nil)
	if err != nil {
		t.Fatalf("InitTracing failed: %v", err)
	}
	defer tp.Shutdown(context.Background())

	if otel.GetTracerProvider() != tp {
		t.Error("InitTracing should install the global provider")
	}
}
