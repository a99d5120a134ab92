// Package pipeline runs one multidisciplinary consultation: the three
// specialists in parallel, then the team synthesis and the output file.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/observability"
	"github.com/scttfrdmn/agenkit/medteam-go/patterns"
	"github.com/scttfrdmn/agenkit/medteam-go/runner"
)

// Outcome describes a finished run.
type Outcome struct {
	RunID      string
	Results    agenkit.ResultMapping
	TeamPrompt string
	Written    string
	OutputPath string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInvoker replaces the default runner.Invoker.
func WithInvoker(invoker patterns.Invoker) Option {
	return func(p *Pipeline) {
		p.invoker = invoker
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline wires the factory, fan-out and synthesis together.
type Pipeline struct {
	factory *agent.Factory
	invoker patterns.Invoker
	writer  *OutputWriter
	logger  *slog.Logger
}

// New creates a pipeline writing to outputPath.
func New(factory *agent.Factory, outputPath string, opts ...Option) *Pipeline {
	p := &Pipeline{
		factory: factory,
		writer:  NewOutputWriter(outputPath),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.invoker == nil {
		p.invoker = runner.NewInvoker(runner.WithLogger(p.logger))
	}
	return p
}

// Run executes the pipeline for report.
//
// The returned error is *agenkit.IncompleteSpecialistSetError or
// *agenkit.TeamSynthesisError when a failure marker was written, or an
// output error when nothing could be written. Outcome is nil only in the
// latter case or when descriptors could not be created.
func (p *Pipeline) Run(ctx context.Context, report string) (outcome *Outcome, err error) {
	runID := uuid.New().String()
	ctx, span := observability.StartPipeline(ctx, runID)
	defer func() { observability.EndSpan(span, err) }()

	logger := p.logger.With("run_id", runID)

	specialists, err := p.factory.CreateSpecialists(report)
	if err != nil {
		return nil, err
	}

	results := patterns.FanOut(ctx, p.invoker, specialists, report)
	for _, role := range agenkit.SpecialistRoles() {
		logger.DebugContext(ctx, "specialist finished", "agent", role.String(), "result", results[role.String()].String())
	}

	outcome = &Outcome{
		RunID:      runID,
		Results:    results,
		OutputPath: p.writer.Path(),
	}

	synthesis, err := NewSynthesizer(p.factory, p.invoker, p.writer, logger).Synthesize(ctx, results)
	if synthesis.Written == "" {
		return nil, err
	}
	outcome.Written = synthesis.Written
	if synthesis.Team != nil {
		outcome.TeamPrompt = synthesis.Team.Instruction()
	}
	return outcome, err
}
