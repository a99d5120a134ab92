package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// TestCallOptions tests the functional options pattern.
func TestCallOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     []CallOption
		validate func(*testing.T, *CallOptions)
	}{
		{
			name: "WithTemperature",
			opts: []CallOption{WithTemperature(0.7)},
			validate: func(t *testing.T, opts *CallOptions) {
				if opts.Temperature == nil || *opts.Temperature != 0.7 {
					t.Errorf("Expected temperature 0.7, got %v", opts.Temperature)
				}
			},
		},
		{
			name: "WithMaxTokens",
			opts: []CallOption{WithMaxTokens(1024)},
			validate: func(t *testing.T, opts *CallOptions) {
				if opts.MaxTokens == nil || *opts.MaxTokens != 1024 {
					t.Errorf("Expected max_tokens 1024, got %v", opts.MaxTokens)
				}
			},
		},
		{
			name: "WithTopP",
			opts: []CallOption{WithTopP(0.9)},
			validate: func(t *testing.T, opts *CallOptions) {
				if opts.TopP == nil || *opts.TopP != 0.9 {
					t.Errorf("Expected top_p 0.9, got %v", opts.TopP)
				}
			},
		},
		{
			name: "WithExtra",
			opts: []CallOption{WithExtra("top_k", 40)},
			validate: func(t *testing.T, opts *CallOptions) {
				if opts.Extra["top_k"] != 40 {
					t.Errorf("Expected extra top_k 40, got %v", opts.Extra["top_k"])
				}
			},
		},
		{
			name: "No options",
			opts: nil,
			validate: func(t *testing.T, opts *CallOptions) {
				if opts.Temperature != nil || opts.MaxTokens != nil || opts.TopP != nil {
					t.Error("Expected all common options unset")
				}
				if opts.Extra == nil {
					t.Error("Extra should be initialized")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, BuildCallOptions(tt.opts...))
		})
	}
}

func TestConvertGeminiMessages(t *testing.T) {
	messages := []*agenkit.Message{
		agenkit.NewMessage("system", "You are a cardiologist."),
		agenkit.NewMessage("agent", "Understood."),
		agenkit.NewMessage("user", "Analyze the report."),
	}

	history, last := convertGeminiMessages(messages)
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != "user" {
		t.Errorf("System message should map to user, got %s", history[0].Role)
	}
	if history[1].Role != "model" {
		t.Errorf("Agent message should map to model, got %s", history[1].Role)
	}
	if len(last) != 1 {
		t.Fatalf("Expected one part to send, got %d", len(last))
	}

	if h, l := convertGeminiMessages(nil); h != nil || l != nil {
		t.Error("Expected nil history and parts for no messages")
	}
}

func TestConvertOpenAIMessages(t *testing.T) {
	messages := []*agenkit.Message{
		agenkit.NewMessage("system", "s"),
		agenkit.NewMessage("user", "u"),
		agenkit.NewMessage("agent", "a"),
	}

	converted := convertOpenAIMessages(messages)
	roles := []string{"system", "user", "assistant"}
	for i, msg := range converted {
		if msg.Role != roles[i] {
			t.Errorf("message %d: expected role %s, got %s", i, roles[i], msg.Role)
		}
	}
}

func TestConvertBedrockMessages(t *testing.T) {
	messages := []*agenkit.Message{
		agenkit.NewMessage("system", "You are a pulmonologist."),
		agenkit.NewMessage("user", "Report text"),
	}

	converted, system := convertBedrockMessages(messages)
	if len(system) != 1 {
		t.Fatalf("Expected one system prompt, got %d", len(system))
	}
	if len(converted) != 1 {
		t.Fatalf("Expected one conversation message, got %d", len(converted))
	}
	if converted[0].Role != types.ConversationRoleUser {
		t.Errorf("Expected user role, got %s", converted[0].Role)
	}
}

func TestBedrockInferenceConfigDefaults(t *testing.T) {
	cfg := bedrockInferenceConfig(BuildCallOptions())
	if cfg.MaxTokens == nil || *cfg.MaxTokens != 4096 {
		t.Errorf("Expected default max tokens 4096, got %v", cfg.MaxTokens)
	}

	cfg = bedrockInferenceConfig(BuildCallOptions(WithMaxTokens(256), WithExtra("stopSequences", []string{"END"})))
	if *cfg.MaxTokens != 256 {
		t.Errorf("Expected max tokens 256, got %d", *cfg.MaxTokens)
	}
	if len(cfg.StopSequences) != 1 {
		t.Errorf("Expected stop sequences to be set")
	}
}

func TestNewGeminiLLMRequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "from-env")

	if _, err := NewGeminiLLM("", ""); err == nil {
		t.Fatal("Expected error for missing api key even when the environment has one")
	}
}

func TestNewOpenAILLMDefaults(t *testing.T) {
	backend := NewOpenAILLM("sk-test", "", "http://localhost:4000/v1")
	if backend.Model() != DefaultOpenAIModel {
		t.Errorf("Expected default model %s, got %s", DefaultOpenAIModel, backend.Model())
	}
	if backend.Unwrap() == nil {
		t.Error("Expected underlying client")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), ProviderConfig{Provider: "watson", APIKey: "k"})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "watson") {
		t.Errorf("Error should name the provider: %v", err)
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	backend, err := New(context.Background(), ProviderConfig{Provider: "OpenAI", APIKey: "sk-test", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if backend.Model() != "gpt-4o" {
		t.Errorf("Expected gpt-4o, got %s", backend.Model())
	}
}

func TestKnownProvider(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "bedrock", "Gemini"} {
		if !KnownProvider(name) {
			t.Errorf("%s should be known", name)
		}
	}
	if KnownProvider("watson") {
		t.Error("watson should not be known")
	}
}

func TestSendChunkRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan *agenkit.Message)
	if sendChunk(ctx, ch, agenkit.NewMessage("agent", "x")) {
		t.Error("Expected send to be abandoned on a cancelled context")
	}
}

func TestStreamError(t *testing.T) {
	msg := streamError(context.DeadlineExceeded)
	text, ok := msg.ErrorText()
	if !ok || text != context.DeadlineExceeded.Error() {
		t.Errorf("Expected deadline error text, got %q", text)
	}
}

func TestRecoverStream(t *testing.T) {
	ch := make(chan *agenkit.Message, 1)

	go func() {
		defer close(ch)
		defer RecoverStream(context.Background(), ch)
		panic("sdk bug")
	}()

	var chunks []*agenkit.Message
	for msg := range ch {
		chunks = append(chunks, msg)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected one error chunk, got %d", len(chunks))
	}
	text, ok := chunks[0].ErrorText()
	if !ok || !strings.Contains(text, "sdk bug") {
		t.Errorf("Expected panic value in error chunk, got %q", text)
	}
}

// TestLLMInterface verifies that concrete implementations satisfy the interface.
func TestLLMInterface(t *testing.T) {
	var _ LLM = &GeminiLLM{}
	var _ LLM = &OpenAILLM{}
	var _ LLM = &BedrockLLM{}
}
