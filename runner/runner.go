package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// Event is one step of an agent run.
type Event struct {
	Author string

	// Parts holds the text fragment of a partial event, or every fragment
	// received when Final is set.
	Parts []string

	Partial bool
	Final   bool
	Err     error
}

// Text concatenates the event parts.
func (e Event) Text() string {
	return strings.Join(e.Parts, "")
}

// Runner streams a descriptor's backend response as session events.
type Runner struct {
	sessions *SessionService
}

// NewRunner creates a runner bound to a session service.
func NewRunner(sessions *SessionService) *Runner {
	return &Runner{sessions: sessions}
}

// Run sends msg for desc within session and returns the resulting events.
//
// The channel carries zero or more partial events followed by exactly one
// final event or one error event, then closes. An error is returned only when
// the request could not be sent.
func (r *Runner) Run(ctx context.Context, session *Session, desc *agent.Descriptor, msg *agenkit.Message) (<-chan Event, error) {
	if _, ok := r.sessions.GetSession(session.ID); !ok {
		return nil, fmt.Errorf("session %s not found", session.ID)
	}
	// Reports reach the backend unmodified, whatever their size.
	if err := msg.ValidateRole(); err != nil {
		session.setState(StateError)
		return nil, err
	}
	model := desc.Model()
	if model == nil {
		session.setState(StateError)
		return nil, fmt.Errorf("agent %s has no model", desc.Name())
	}

	runCtx, cancel := context.WithCancel(ctx)
	session.append(msg)
	session.setState(StateRequestSent)

	stream, err := model.Stream(runCtx, []*agenkit.Message{msg})
	if err != nil {
		cancel()
		session.setState(StateError)
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer cancel()

		author := desc.Name()
		var parts []string

		for chunk := range stream {
			if errText, isErr := chunk.ErrorText(); isErr {
				session.setState(StateError)
				emit(ctx, events, Event{Author: author, Err: errors.New(errText)})
				return
			}
			if chunk.Content == "" {
				continue
			}
			session.setState(StateStreaming)
			parts = append(parts, chunk.Content)
			if !emit(ctx, events, Event{Author: author, Parts: []string{chunk.Content}, Partial: true}) {
				session.setState(StateError)
				return
			}
		}

		if err := ctx.Err(); err != nil {
			session.setState(StateError)
			emit(ctx, events, Event{Author: author, Err: err})
			return
		}

		session.append(agenkit.NewMessage("agent", strings.Join(parts, "")))
		session.setState(StateFinalReceived)
		emit(ctx, events, Event{Author: author, Parts: parts, Final: true})
	}()

	return events, nil
}

// emit delivers ev unless ctx is done first.
func emit(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
