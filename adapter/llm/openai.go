package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// DefaultOpenAIModel is the model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAILLM is an adapter for OpenAI chat models.
//
// A non-empty base URL points the adapter at any OpenAI-compatible endpoint
// (LiteLLM proxy, Ollama, vLLM), so those backends need no adapter of their own.
type OpenAILLM struct {
	client *openai.Client
	model  string
}

// NewOpenAILLM creates a new OpenAI LLM adapter.
func NewOpenAILLM(apiKey, model, baseURL string) *OpenAILLM {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAILLM{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Model returns the model identifier.
func (o *OpenAILLM) Model() string {
	return o.model
}

// Complete generates a completion from an OpenAI chat model.
func (o *OpenAILLM) Complete(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (*agenkit.Message, error) {
	req := o.buildRequest(messages, BuildCallOptions(opts...))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	response := agenkit.NewMessage("agent", resp.Choices[0].Message.Content)
	response.Metadata["model"] = resp.Model
	response.Metadata["usage"] = map[string]interface{}{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	response.Metadata["finish_reason"] = string(resp.Choices[0].FinishReason)
	response.Metadata["id"] = resp.ID

	return response, nil
}

// Stream generates completion chunks from an OpenAI chat model.
func (o *OpenAILLM) Stream(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (<-chan *agenkit.Message, error) {
	req := o.buildRequest(messages, BuildCallOptions(opts...))
	req.Stream = true

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai stream error: %w", err)
	}

	messageChan := make(chan *agenkit.Message)

	go func() {
		defer close(messageChan)
		defer RecoverStream(ctx, messageChan)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sendChunk(ctx, messageChan, streamError(fmt.Errorf("openai stream error: %w", err)))
				return
			}

			if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
				continue
			}
			chunk := agenkit.NewMessage("agent", response.Choices[0].Delta.Content)
			chunk.Metadata["streaming"] = true
			chunk.Metadata["model"] = o.model
			if !sendChunk(ctx, messageChan, chunk) {
				return
			}
		}
	}()

	return messageChan, nil
}

func (o *OpenAILLM) buildRequest(messages []*agenkit.Message, options *CallOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: convertOpenAIMessages(messages),
	}

	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	if stop, ok := options.Extra["stop"].([]string); ok {
		req.Stop = stop
	}

	return req
}

// convertOpenAIMessages maps roles onto system/user/assistant.
func convertOpenAIMessages(messages []*agenkit.Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case "system", "user":
			role = msg.Role
		default:
			role = openai.ChatMessageRoleAssistant
		}

		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return openaiMessages
}

// Unwrap returns the underlying *openai.Client.
func (o *OpenAILLM) Unwrap() interface{} {
	return o.client
}
