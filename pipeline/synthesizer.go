package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/patterns"
	"github.com/scttfrdmn/agenkit/medteam-go/prompt"
)

// Synthesizer gates the specialist results, runs the team agent and writes
// exactly one output file per call.
type Synthesizer struct {
	factory *agent.Factory
	invoker patterns.Invoker
	writer  *OutputWriter
	logger  *slog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(factory *agent.Factory, invoker patterns.Invoker, writer *OutputWriter, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		factory: factory,
		invoker: invoker,
		writer:  writer,
		logger:  logger,
	}
}

// Synthesis is what one Synthesize call wrote.
type Synthesis struct {
	Written string

	// Team is the descriptor that was invoked, nil when the specialist set
	// was incomplete.
	Team *agent.Descriptor
}

// Synthesize produces the final diagnosis from the specialist results and
// returns the text written to the output file with the team descriptor used.
//
// When a specialist result is missing, the team agent is not invoked and
// *agenkit.IncompleteSpecialistSetError is returned. When the team agent
// fails or answers with nothing, *agenkit.TeamSynthesisError is returned.
// In both cases a failure marker is written. Any other error means the
// output could not be written.
func (s *Synthesizer) Synthesize(ctx context.Context, results agenkit.ResultMapping) (Synthesis, error) {
	if missing := results.Missing(); len(missing) > 0 {
		synthErr := &agenkit.IncompleteSpecialistSetError{Missing: missing}
		s.logger.ErrorContext(ctx, "One or more specialist agents failed to generate a response",
			"missing", strings.Join(missing, ", "))

		text := IncompleteMarker(missing)
		if err := s.writer.Write(text); err != nil {
			return Synthesis{}, err
		}
		return Synthesis{Written: text}, synthErr
	}

	team := s.factory.CreateTeam(prompt.ReportsFrom(results))
	result := s.invoker.Invoke(ctx, team, "")

	if !result.OK() {
		synthErr := &agenkit.TeamSynthesisError{Cause: result.Err}
		s.logger.ErrorContext(ctx, "Final diagnosis could not be generated", "error", synthErr)

		text := Header + FailureText
		if err := s.writer.Write(text); err != nil {
			return Synthesis{Team: team}, err
		}
		return Synthesis{Written: text, Team: team}, synthErr
	}

	text := Header + result.Content()
	if err := s.writer.Write(text); err != nil {
		return Synthesis{Team: team}, err
	}
	s.logger.InfoContext(ctx, fmt.Sprintf("Final diagnosis saved to %s", s.writer.Path()))
	return Synthesis{Written: text, Team: team}, nil
}

// IncompleteMarker is the output written when specialists are missing.
func IncompleteMarker(missing []string) string {
	return Header + FailureText + " Specialist agents failed to generate a response: " + strings.Join(missing, ", ")
}
