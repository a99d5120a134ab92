// Package llmtest provides a deterministic llm.LLM for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/scttfrdmn/agenkit/medteam-go/adapter/llm"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// Reply is the scripted behavior for prompts matching a key.
type Reply struct {
	// Chunks are streamed in order. A single empty chunk is never sent.
	Chunks []string

	// Delay is waited (context-aware) before the first chunk.
	Delay time.Duration

	// Err fails the call before any chunk is sent.
	Err error

	// StreamErr is delivered mid-stream, after Chunks.
	StreamErr error

	// Panic makes the call panic, simulating a misbehaving SDK.
	Panic bool

	// StreamPanic panics inside the streaming goroutine, after Chunks.
	StreamPanic bool
}

// Text is a Reply that streams text as a single chunk.
func Text(text string) Reply {
	if text == "" {
		return Reply{}
	}
	return Reply{Chunks: []string{text}}
}

// Call records one request seen by the stub.
type Call struct {
	Messages []*agenkit.Message
	Started  time.Time
}

// Prompt returns the concatenated content of the call's messages.
func (c Call) Prompt() string {
	var b strings.Builder
	for _, m := range c.Messages {
		b.WriteString(m.Content)
	}
	return b.String()
}

// Stub is an llm.LLM whose answers are chosen by substring match on the prompt.
// Keys are tried in insertion order; Default is used when nothing matches.
type Stub struct {
	Default Reply

	mu      sync.Mutex
	keys    []string
	replies map[string]Reply
	calls   []Call
}

var _ llm.LLM = (*Stub)(nil)

// New creates an empty stub.
func New() *Stub {
	return &Stub{replies: make(map[string]Reply)}
}

// On registers the reply for prompts containing key.
func (s *Stub) On(key string, reply Reply) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.replies[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.replies[key] = reply
	return s
}

// Calls returns a copy of the calls recorded so far.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallMatching returns the first recorded call whose prompt contains key.
func (s *Stub) CallMatching(key string) (Call, bool) {
	for _, c := range s.Calls() {
		if strings.Contains(c.Prompt(), key) {
			return c, true
		}
	}
	return Call{}, false
}

func (s *Stub) record(messages []*agenkit.Message) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Messages: messages, Started: time.Now()}
	s.calls = append(s.calls, call)

	prompt := call.Prompt()
	for _, key := range s.keys {
		if strings.Contains(prompt, key) {
			return s.replies[key]
		}
	}
	return s.Default
}

// Complete returns all chunks joined.
func (s *Stub) Complete(ctx context.Context, messages []*agenkit.Message, opts ...llm.CallOption) (*agenkit.Message, error) {
	reply := s.record(messages)
	if reply.Panic {
		panic("llmtest: scripted panic")
	}
	if err := wait(ctx, reply.Delay); err != nil {
		return nil, err
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	if reply.StreamErr != nil {
		return nil, reply.StreamErr
	}
	return agenkit.NewMessage("agent", strings.Join(reply.Chunks, "")), nil
}

// Stream streams the scripted chunks.
func (s *Stub) Stream(ctx context.Context, messages []*agenkit.Message, opts ...llm.CallOption) (<-chan *agenkit.Message, error) {
	reply := s.record(messages)
	if reply.Panic {
		panic("llmtest: scripted panic")
	}
	if reply.Err != nil {
		return nil, reply.Err
	}

	ch := make(chan *agenkit.Message)
	go func() {
		defer close(ch)
		defer llm.RecoverStream(ctx, ch)

		if err := wait(ctx, reply.Delay); err != nil {
			send(ctx, ch, errorChunk(err))
			return
		}
		for _, chunk := range reply.Chunks {
			if !send(ctx, ch, agenkit.NewMessage("agent", chunk).WithMetadata("streaming", true)) {
				return
			}
		}
		if reply.StreamPanic {
			panic("llmtest: scripted stream panic")
		}
		if reply.StreamErr != nil {
			send(ctx, ch, errorChunk(reply.StreamErr))
		}
	}()
	return ch, nil
}

// Model returns "stub".
func (s *Stub) Model() string {
	return "stub"
}

// Unwrap returns the stub itself.
func (s *Stub) Unwrap() interface{} {
	return s
}

// ErrBackend is a ready-made backend failure.
var ErrBackend = errors.New("llmtest: backend unavailable")

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func send(ctx context.Context, ch chan<- *agenkit.Message, msg *agenkit.Message) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorChunk(err error) *agenkit.Message {
	return agenkit.NewMessage("agent", "").
		WithMetadata("error", err.Error()).
		WithMetadata("streaming", true)
}
