package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMetrics initializes OpenTelemetry metrics with a Prometheus reader
// registered on registry. Nothing is served by this process; use
// WriteMetricsFile to export a snapshot.
func InitMetrics(ctx context.Context, serviceName string, registry *promclient.Registry) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}

// InvocationMetrics records one data point per agent invocation.
type InvocationMetrics struct {
	invocations metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
	responseLen metric.Int64Histogram
}

// NewInvocationMetrics creates the instruments on the current global meter provider.
func NewInvocationMetrics() (*InvocationMetrics, error) {
	meter := otel.Meter(InstrumentationName)

	invocations, err := meter.Int64Counter(
		"medteam.agent.invocations",
		metric.WithDescription("Total number of agent invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		"medteam.agent.failures",
		metric.WithDescription("Agent invocations that produced no usable text"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failure counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		"medteam.agent.latency",
		metric.WithDescription("Agent invocation latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	responseLen, err := meter.Int64Histogram(
		"medteam.agent.response_size",
		metric.WithDescription("Agent response size"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create response size histogram: %w", err)
	}

	return &InvocationMetrics{
		invocations: invocations,
		failures:    failures,
		latency:     latency,
		responseLen: responseLen,
	}, nil
}

// Record adds one invocation outcome. A nil receiver records nothing.
func (m *InvocationMetrics) Record(ctx context.Context, result agenkit.AgentResult, elapsed time.Duration) {
	if m == nil {
		return
	}

	status := "success"
	switch {
	case result.Text == nil:
		status = "error"
	case *result.Text == "":
		status = "empty"
	}

	attrs := metric.WithAttributes(
		attribute.String("agent.name", result.AgentName),
		attribute.String("status", status),
	)

	m.invocations.Add(ctx, 1, attrs)
	if status != "success" {
		m.failures.Add(ctx, 1, attrs)
	}
	m.latency.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	m.responseLen.Record(ctx, int64(len(result.Content())), attrs)
}

// WriteMetricsFile writes the metrics gathered by g to path in the Prometheus
// text format, suitable for a node_exporter textfile collector.
func WriteMetricsFile(path string, g promclient.Gatherer) error {
	if err := promclient.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
