package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/observability"
)

// Invoker runs one descriptor to completion and reduces it to a result.
//
// Invoke never returns an error: every backend failure is logged and surfaces
// as a result with a nil Text. A panic while opening the stream is recovered
// here; panics inside a backend's stream goroutine are reported by the
// adapters as error chunks (see llm.RecoverStream).
type Invoker struct {
	logger  *slog.Logger
	metrics *observability.InvocationMetrics
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics records every invocation in m.
func WithMetrics(m *observability.InvocationMetrics) InvokerOption {
	return func(i *Invoker) {
		i.metrics = m
	}
}

// NewInvoker creates an invoker.
func NewInvoker(opts ...InvokerOption) *Invoker {
	i := &Invoker{logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke runs desc with the given trigger input.
func (i *Invoker) Invoke(ctx context.Context, desc *agent.Descriptor, input string) agenkit.AgentResult {
	result, _ := i.InvokeSession(ctx, desc, input)
	return result
}

// InvokeSession is Invoke that also returns the session used, or nil when no
// session could be opened.
func (i *Invoker) InvokeSession(ctx context.Context, desc *agent.Descriptor, input string) (result agenkit.AgentResult, session *Session) {
	name := desc.Name()
	start := time.Now()

	i.logger.InfoContext(ctx, fmt.Sprintf("%s is running...", name), "agent", name)

	ctx, span := observability.StartInvocation(ctx, name, modelName(desc), len(desc.Instruction()))
	defer func() {
		if r := recover(); r != nil {
			if session != nil {
				session.setState(StateError)
			}
			result = i.fail(ctx, name, fmt.Errorf("backend panicked: %v", r))
		}
		observability.EndInvocation(span, result)
		i.metrics.Record(ctx, result, time.Since(start))
	}()

	service := NewSessionService()
	session, err := service.CreateSession(ctx, name+"_app", DefaultUserID)
	if err != nil {
		return i.fail(ctx, name, err), nil
	}
	session.setTrigger(input)

	events, err := NewRunner(service).Run(ctx, session, desc, agenkit.NewMessage("user", desc.Instruction()))
	if err != nil {
		return i.fail(ctx, name, err), session
	}

	var (
		final  *Event
		runErr error
	)
	for ev := range events {
		switch {
		case ev.Err != nil:
			runErr = ev.Err
		case ev.Final:
			e := ev
			final = &e
		}
	}

	if runErr == nil && final == nil {
		runErr = ctx.Err()
		if runErr == nil {
			runErr = errors.New("stream closed without a final response")
		}
		session.setState(StateError)
	}
	if runErr != nil {
		return i.fail(ctx, name, runErr), session
	}

	text := final.Text()
	if text == "" {
		i.logger.WarnContext(ctx, fmt.Sprintf("%s returned an empty response", name), "agent", name)
	}
	return agenkit.Succeeded(name, text), session
}

func (i *Invoker) fail(ctx context.Context, name string, cause error) agenkit.AgentResult {
	err := &agenkit.InvocationError{AgentName: name, Cause: cause}
	i.logger.ErrorContext(ctx, fmt.Sprintf("Error occurred while running %s", name), "agent", name, "error", cause)
	return agenkit.Failed(name, err)
}

func modelName(desc *agent.Descriptor) string {
	if desc.Model() == nil {
		return ""
	}
	return desc.Model().Model()
}
