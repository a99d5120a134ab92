package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiLLM is an adapter for Google's Gemini models.
//
// Wraps the Google GenAI SDK. Every call starts a fresh chat session, so no
// conversation state is shared between agents using the same adapter.
//
// Example:
//
//	backend, err := NewGeminiLLM(os.Getenv("GOOGLE_API_KEY"), "gemini-1.5-flash")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
type GeminiLLM struct {
	client *genai.Client
	model  string
}

// NewGeminiLLM creates a new Gemini LLM adapter.
//
// The API key is required; it is never read from the environment here.
func NewGeminiLLM(apiKey, model string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		model:  model,
	}, nil
}

// Model returns the model identifier.
func (g *GeminiLLM) Model() string {
	return g.model
}

// Complete generates a completion from Gemini.
func (g *GeminiLLM) Complete(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (*agenkit.Message, error) {
	session := g.startChat(messages, BuildCallOptions(opts...))
	_, lastMessage := convertGeminiMessages(messages)

	resp, err := session.SendMessage(ctx, lastMessage...)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	response := agenkit.NewMessage("agent", extractGeminiContent(resp))
	response.Metadata["model"] = g.model

	if resp.UsageMetadata != nil {
		response.Metadata["usage"] = map[string]interface{}{
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      resp.UsageMetadata.TotalTokenCount,
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != 0 {
		response.Metadata["finish_reason"] = resp.Candidates[0].FinishReason.String()
	}

	return response, nil
}

// Stream generates completion chunks from Gemini.
func (g *GeminiLLM) Stream(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (<-chan *agenkit.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini stream requires at least one message")
	}

	session := g.startChat(messages, BuildCallOptions(opts...))
	_, lastMessage := convertGeminiMessages(messages)
	iter := session.SendMessageStream(ctx, lastMessage...)

	messageChan := make(chan *agenkit.Message)

	go func() {
		defer close(messageChan)
		defer RecoverStream(ctx, messageChan)

		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				sendChunk(ctx, messageChan, streamError(fmt.Errorf("gemini api error: %w", err)))
				return
			}

			content := extractGeminiContent(resp)
			if content == "" {
				continue
			}
			chunk := agenkit.NewMessage("agent", content)
			chunk.Metadata["streaming"] = true
			chunk.Metadata["model"] = g.model
			if !sendChunk(ctx, messageChan, chunk) {
				return
			}
		}
	}()

	return messageChan, nil
}

func (g *GeminiLLM) startChat(messages []*agenkit.Message, options *CallOptions) *genai.ChatSession {
	model := g.client.GenerativeModel(g.model)
	configureGeminiModel(model, options)

	history, _ := convertGeminiMessages(messages)
	session := model.StartChat()
	session.History = history
	return session
}

// convertGeminiMessages splits messages into chat history and the parts to send.
//
// Gemini only knows "user" and "model"; system messages are sent as user turns.
func convertGeminiMessages(messages []*agenkit.Message) ([]*genai.Content, []genai.Part) {
	if len(messages) == 0 {
		return nil, nil
	}

	var history []*genai.Content
	for _, msg := range messages[:len(messages)-1] {
		history = append(history, &genai.Content{
			Role:  mapGeminiRole(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	last := messages[len(messages)-1]
	return history, []genai.Part{genai.Text(last.Content)}
}

func mapGeminiRole(role string) string {
	switch role {
	case "user", "system":
		return "user"
	default:
		return "model"
	}
}

func configureGeminiModel(model *genai.GenerativeModel, options *CallOptions) {
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		model.Temperature = &temp
	}
	if options.MaxTokens != nil {
		maxTokens := int32(*options.MaxTokens)
		model.MaxOutputTokens = &maxTokens
	}
	if options.TopP != nil {
		topP := float32(*options.TopP)
		model.TopP = &topP
	}
	if topK, ok := options.Extra["top_k"].(int); ok {
		topKInt := int32(topK)
		model.TopK = &topKInt
	}
	if stopSequences, ok := options.Extra["stop_sequences"].([]string); ok {
		model.StopSequences = stopSequences
	}
}

// extractGeminiContent concatenates the text parts of the first candidate.
func extractGeminiContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var content string
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content += string(txt)
		}
	}
	return content
}

// Close closes the Gemini client.
func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Unwrap returns the underlying *genai.Client.
func (g *GeminiLLM) Unwrap() interface{} {
	return g.client
}
