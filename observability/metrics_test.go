package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics sets up a test meter provider with in-memory reader
func setupTestMetrics(t *testing.T) *metric.ManualReader {
	t.Helper()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(
		metric.WithReader(reader),
	)
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader
}

func findSum(t *testing.T, reader *metric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("Expected Sum[int64] for %s, got %T", name, m.Data)
			}
			return sum
		}
	}
	t.Fatalf("Metric %s not found", name)
	return metricdata.Sum[int64]{}
}

func total(sum metricdata.Sum[int64]) int64 {
	var n int64
	for _, dp := range sum.DataPoints {
		n += dp.Value
	}
	return n
}

func TestInvocationMetricsCounts(t *testing.T) {
	reader := setupTestMetrics(t)

	m, err := NewInvocationMetrics()
	if err != nil {
		t.Fatalf("NewInvocationMetrics failed: %v", err)
	}

	ctx := context.Background()
	m.Record(ctx, agenkit.Succeeded("Cardiologist", "CARD_OK"), 20*time.Millisecond)
	m.Record(ctx, agenkit.Succeeded("Psychologist", ""), 5*time.Millisecond)
	m.Record(ctx, agenkit.Failed("Pulmonologist", errors.New("down")), time.Millisecond)

	if got := total(findSum(t, reader, "medteam.agent.invocations")); got != 3 {
		t.Errorf("Expected 3 invocations, got %d", got)
	}
	if got := total(findSum(t, reader, "medteam.agent.failures")); got != 2 {
		t.Errorf("Expected 2 failures, got %d", got)
	}
}

func TestInvocationMetricsStatusAttribute(t *testing.T) {
	reader := setupTestMetrics(t)

	m, err := NewInvocationMetrics()
	if err != nil {
		t.Fatalf("NewInvocationMetrics failed: %v", err)
	}
	m.Record(context.Background(), agenkit.Failed("Cardiologist", errors.New("down")), time.Millisecond)

	sum := findSum(t, reader, "medteam.agent.failures")
	if len(sum.DataPoints) != 1 {
		t.Fatalf("Expected 1 data point, got %d", len(sum.DataPoints))
	}
	status, ok := sum.DataPoints[0].Attributes.Value("status")
	if !ok || status.AsString() != "error" {
		t.Errorf("Expected status=error, got %v", status)
	}
}

func TestInvocationMetricsNilReceiver(t *testing.T) {
	var m *InvocationMetrics
	// Must not panic.
	m.Record(context.Background(), agenkit.Succeeded("Cardiologist", "x"), time.Millisecond)
}

func TestInitMetricsWritesTextfile(t *testing.T) {
	registry := promclient.NewRegistry()
	provider, err := InitMetrics(context.Background(), "medteam-test", registry)
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewInvocationMetrics()
	if err != nil {
		t.Fatalf("NewInvocationMetrics failed: %v", err)
	}
	m.Record(context.Background(), agenkit.Succeeded("Psychologist", "PSY_OK"), 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "medteam.prom")
	if err := WriteMetricsFile(path, registry); err != nil {
		t.Fatalf("WriteMetricsFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "medteam_agent_invocations") {
		t.Errorf("Expected invocation counter in textfile, got:\n%s", data)
	}
}
