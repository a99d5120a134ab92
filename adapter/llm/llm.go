// Package llm provides the inference backend contract used by medical agents.
//
// An LLM is treated as an opaque text-in/text-out function. The pipeline only
// relies on Stream (the runner turns chunks into session events) and Model;
// Complete is kept for callers that want a single round trip.
package llm

import (
	"context"
	"fmt"

	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// LLM is the minimal interface for agent-LLM interaction.
//
// Swapping providers does not change agent code:
//
//	backend, err := llm.New(ctx, llm.ProviderConfig{Provider: "gemini", APIKey: key})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stream, err := backend.Stream(ctx, []*agenkit.Message{
//	    agenkit.NewMessage("user", instruction),
//	})
type LLM interface {
	// Complete generates a single completion from the LLM.
	//
	// The response message has Role "agent" and carries provider data
	// (model, usage, finish reason) in its metadata.
	Complete(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (*agenkit.Message, error)

	// Stream generates completion chunks from the LLM.
	//
	// The channel is closed when streaming completes. A failure after the
	// stream was opened is delivered as a final chunk whose metadata carries
	// an "error" string; callers must check for it.
	Stream(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (<-chan *agenkit.Message, error)

	// Model returns the model identifier for this LLM instance.
	Model() string

	// Unwrap returns the underlying provider client for advanced features.
	Unwrap() interface{}
}

// CallOptions holds provider-specific options for LLM calls.
type CallOptions struct {
	// Common options
	Temperature *float64
	MaxTokens   *int
	TopP        *float64

	// Provider-specific options
	Extra map[string]interface{}
}

// CallOption is a functional option for configuring LLM calls.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature (typically 0.0-2.0).
func WithTemperature(temperature float64) CallOption {
	return func(opts *CallOptions) {
		opts.Temperature = &temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(opts *CallOptions) {
		opts.MaxTokens = &maxTokens
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) CallOption {
	return func(opts *CallOptions) {
		opts.TopP = &topP
	}
}

// WithExtra adds a provider-specific option.
func WithExtra(key string, value interface{}) CallOption {
	return func(opts *CallOptions) {
		if opts.Extra == nil {
			opts.Extra = make(map[string]interface{})
		}
		opts.Extra[key] = value
	}
}

// BuildCallOptions creates CallOptions from functional options.
func BuildCallOptions(opts ...CallOption) *CallOptions {
	options := &CallOptions{
		Extra: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// streamError builds the chunk used to report a failure mid-stream.
func streamError(err error) *agenkit.Message {
	msg := agenkit.NewMessage("agent", "")
	msg.Metadata["error"] = err.Error()
	msg.Metadata["streaming"] = true
	return msg
}

// RecoverStream turns a panic in a stream goroutine into an error chunk.
// It must be deferred directly, after the deferred close of ch.
func RecoverStream(ctx context.Context, ch chan<- *agenkit.Message) {
	if r := recover(); r != nil {
		sendChunk(ctx, ch, streamError(fmt.Errorf("stream panicked: %v", r)))
	}
}

// sendChunk delivers msg unless ctx is done first.
func sendChunk(ctx context.Context, ch chan<- *agenkit.Message, msg *agenkit.Message) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
