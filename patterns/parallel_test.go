package patterns

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scttfrdmn/agenkit/medteam-go/adapter/llm/llmtest"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/runner"
)

// recordingInvoker answers from a fixed table and records start times.
type recordingInvoker struct {
	mu      sync.Mutex
	delays  map[string]time.Duration
	texts   map[string]*string
	started map[string]time.Time
	running int32
	peak    int32
}

func newRecordingInvoker() *recordingInvoker {
	return &recordingInvoker{
		delays:  make(map[string]time.Duration),
		texts:   make(map[string]*string),
		started: make(map[string]time.Time),
	}
}

func (r *recordingInvoker) Invoke(ctx context.Context, desc *agent.Descriptor, input string) agenkit.AgentResult {
	r.mu.Lock()
	r.started[desc.Name()] = time.Now()
	delay := r.delays[desc.Name()]
	text := r.texts[desc.Name()]
	r.mu.Unlock()

	n := atomic.AddInt32(&r.running, 1)
	for {
		peak := atomic.LoadInt32(&r.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&r.peak, peak, n) {
			break
		}
	}
	defer atomic.AddInt32(&r.running, -1)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return agenkit.Failed(desc.Name(), ctx.Err())
	}
	if text == nil {
		return agenkit.Failed(desc.Name(), llmtest.ErrBackend)
	}
	return agenkit.Succeeded(desc.Name(), *text)
}

func specialists() map[string]*agent.Descriptor {
	out := make(map[string]*agent.Descriptor)
	for _, role := range agenkit.SpecialistRoles() {
		out[role.String()] = agent.NewDescriptor(role, role.String(), "", "instruction for "+role.String(), nil)
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestFanOutCollectsAllResults(t *testing.T) {
	inv := newRecordingInvoker()
	inv.texts["Cardiologist"] = strPtr("CARD_OK")
	inv.texts["Psychologist"] = strPtr("PSY_OK")
	inv.texts["Pulmonologist"] = strPtr("PULM_OK")

	results := FanOut(context.Background(), inv, specialists(), "report")

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !results.Complete() {
		t.Errorf("Expected a complete set, missing %v", results.Missing())
	}
	if results.Text(agenkit.Psychologist) != "PSY_OK" {
		t.Errorf("Expected PSY_OK, got %q", results.Text(agenkit.Psychologist))
	}
}

func TestFanOutDispatchesBeforeAwaiting(t *testing.T) {
	inv := newRecordingInvoker()
	inv.delays["Cardiologist"] = 300 * time.Millisecond
	inv.texts["Cardiologist"] = strPtr("slow")
	inv.texts["Psychologist"] = strPtr("fast")
	inv.texts["Pulmonologist"] = strPtr("fast")

	start := time.Now()
	FanOut(context.Background(), inv, specialists(), "report")
	elapsed := time.Since(start)

	for _, name := range []string{"Psychologist", "Pulmonologist"} {
		if d := inv.started[name].Sub(start); d > 100*time.Millisecond {
			t.Errorf("%s started %v after dispatch; the slow specialist delayed it", name, d)
		}
	}
	if elapsed > 600*time.Millisecond {
		t.Errorf("Fan-out took %v, invocations did not overlap", elapsed)
	}
}

func TestFanOutRunsConcurrently(t *testing.T) {
	inv := newRecordingInvoker()
	for _, role := range agenkit.SpecialistRoles() {
		inv.delays[role.String()] = 100 * time.Millisecond
		inv.texts[role.String()] = strPtr("ok")
	}

	FanOut(context.Background(), inv, specialists(), "report")

	if atomic.LoadInt32(&inv.peak) != 3 {
		t.Errorf("Expected 3 concurrent invocations, peak was %d", inv.peak)
	}
}

func TestFanOutToleratesPartialFailure(t *testing.T) {
	inv := newRecordingInvoker()
	inv.texts["Cardiologist"] = strPtr("CARD_OK")
	inv.texts["Pulmonologist"] = strPtr("PULM_OK")

	results := FanOut(context.Background(), inv, specialists(), "report")

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results["Psychologist"].Text != nil {
		t.Error("Expected nil text for the failed specialist")
	}
	if results.Text(agenkit.Cardiologist) != "CARD_OK" {
		t.Error("Siblings of a failed specialist must keep their result")
	}
	missing := results.Missing()
	if len(missing) != 1 || missing[0] != "Psychologist" {
		t.Errorf("Expected [Psychologist] missing, got %v", missing)
	}
}

func TestFanOutAllFailWithRunner(t *testing.T) {
	stub := llmtest.New()
	stub.Default = llmtest.Reply{Err: llmtest.ErrBackend}

	descriptors := make(map[string]*agent.Descriptor)
	for _, role := range agenkit.SpecialistRoles() {
		descriptors[role.String()] = agent.NewDescriptor(role, role.String(), "", "i", stub)
	}

	results := FanOut(context.Background(), runner.NewInvoker(), descriptors, "report")

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for name, res := range results {
		if res.Text != nil {
			t.Errorf("%s: expected nil text, got %q", name, *res.Text)
		}
	}
	if len(stub.Calls()) != 3 {
		t.Errorf("Expected 3 backend calls, got %d", len(stub.Calls()))
	}
}

func TestFanOutEmpty(t *testing.T) {
	results := FanOut(context.Background(), newRecordingInvoker(), nil, "report")
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}
