// Package middleware provides decorators for inference backends.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scttfrdmn/agenkit/medteam-go/adapter/llm"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// DefaultTimeout bounds a single agent invocation when none is configured.
const DefaultTimeout = 5 * time.Minute

// TimeoutConfig configures timeout behavior.
type TimeoutConfig struct {
	// Timeout is the per-call deadline. Zero or negative means DefaultTimeout.
	Timeout time.Duration
}

// TimeoutMetrics tracks timeout middleware metrics.
type TimeoutMetrics struct {
	mu                 sync.RWMutex
	TotalRequests      int64
	SuccessfulRequests int64
	TimedOutRequests   int64
	FailedRequests     int64 // Failed for reasons other than timeout
	TotalDuration      time.Duration
	MaxDuration        time.Duration
}

// NewTimeoutMetrics creates a new metrics instance.
func NewTimeoutMetrics() *TimeoutMetrics {
	return &TimeoutMetrics{}
}

func (m *TimeoutMetrics) record(outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	switch outcome {
	case "success":
		m.SuccessfulRequests++
	case "timeout":
		m.TimedOutRequests++
	default:
		m.FailedRequests++
	}
	m.TotalDuration += duration
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
}

// Snapshot returns a consistent copy of the counters.
func (m *TimeoutMetrics) Snapshot() (total, success, timedOut, failed int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TotalRequests, m.SuccessfulRequests, m.TimedOutRequests, m.FailedRequests
}

// AvgDuration returns the average request duration.
func (m *TimeoutMetrics) AvgDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.TotalRequests == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.TotalRequests)
}

// TimeoutError is returned when a backend call exceeds the configured timeout.
type TimeoutError struct {
	Model   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to model '%s' timed out after %v", e.Model, e.Timeout)
}

// TimeoutLLM wraps a backend so that no single call can hang forever.
// A call that exceeds the deadline fails like any other backend error.
//
// Example:
//
//	backend = middleware.NewTimeoutLLM(backend, middleware.TimeoutConfig{Timeout: 2 * time.Minute})
type TimeoutLLM struct {
	inner   llm.LLM
	config  TimeoutConfig
	metrics *TimeoutMetrics
}

var _ llm.LLM = (*TimeoutLLM)(nil)

// NewTimeoutLLM creates a new timeout decorator.
func NewTimeoutLLM(inner llm.LLM, config TimeoutConfig) *TimeoutLLM {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &TimeoutLLM{
		inner:   inner,
		config:  config,
		metrics: NewTimeoutMetrics(),
	}
}

// Model returns the wrapped model identifier.
func (t *TimeoutLLM) Model() string {
	return t.inner.Model()
}

// Unwrap returns the wrapped backend.
func (t *TimeoutLLM) Unwrap() interface{} {
	return t.inner
}

// Metrics returns the timeout metrics.
func (t *TimeoutLLM) Metrics() *TimeoutMetrics {
	return t.metrics
}

// Timeout returns the effective per-call timeout.
func (t *TimeoutLLM) Timeout() time.Duration {
	return t.config.Timeout
}

func (t *TimeoutLLM) timeoutError() *TimeoutError {
	return &TimeoutError{Model: t.inner.Model(), Timeout: t.config.Timeout}
}

// Complete implements llm.LLM with timeout protection.
func (t *TimeoutLLM) Complete(ctx context.Context, messages []*agenkit.Message, opts ...llm.CallOption) (*agenkit.Message, error) {
	startTime := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	type result struct {
		msg *agenkit.Message
		err error
	}

	// Buffered so the goroutine never leaks when we stop waiting.
	done := make(chan result, 1)
	go func() {
		msg, err := t.inner.Complete(timeoutCtx, messages, opts...)
		done <- result{msg, err}
	}()

	select {
	case res := <-done:
		duration := time.Since(startTime)
		if res.err != nil {
			if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				t.metrics.record("timeout", duration)
				return nil, t.timeoutError()
			}
			t.metrics.record("failure", duration)
			return nil, res.err
		}
		t.metrics.record("success", duration)
		return res.msg, nil

	case <-timeoutCtx.Done():
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			t.metrics.record("timeout", time.Since(startTime))
			return nil, t.timeoutError()
		}
		t.metrics.record("failure", time.Since(startTime))
		return nil, timeoutCtx.Err()
	}
}

// Stream implements llm.LLM with timeout protection covering the whole stream.
//
// When the deadline passes before the backend closes its channel, a final
// chunk carrying the timeout error is delivered and the channel is closed.
func (t *TimeoutLLM) Stream(ctx context.Context, messages []*agenkit.Message, opts ...llm.CallOption) (<-chan *agenkit.Message, error) {
	startTime := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)

	inner, err := t.inner.Stream(timeoutCtx, messages, opts...)
	if err != nil {
		cancel()
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			t.metrics.record("timeout", time.Since(startTime))
			return nil, t.timeoutError()
		}
		t.metrics.record("failure", time.Since(startTime))
		return nil, err
	}

	out := make(chan *agenkit.Message)

	go func() {
		defer close(out)
		defer llm.RecoverStream(ctx, out)
		defer cancel()

		outcome := "success"
		defer func() { t.metrics.record(outcome, time.Since(startTime)) }()

		for {
			select {
			case msg, ok := <-inner:
				if !ok {
					return
				}
				if _, isErr := msg.ErrorText(); isErr {
					outcome = "failure"
					if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
						outcome = "timeout"
						msg = timeoutChunk(t.timeoutError())
					}
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					outcome = "failure"
					return
				}
			case <-timeoutCtx.Done():
				if ctx.Err() != nil {
					outcome = "failure"
					return
				}
				outcome = "timeout"
				select {
				case out <- timeoutChunk(t.timeoutError()):
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return out, nil
}

func timeoutChunk(err error) *agenkit.Message {
	return agenkit.NewMessage("agent", "").
		WithMetadata("error", err.Error()).
		WithMetadata("streaming", true).
		WithMetadata("timeout", true)
}
