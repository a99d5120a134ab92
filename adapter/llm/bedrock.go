package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
)

// BedrockLLM is an adapter for Amazon Bedrock foundation models, using the
// Converse API so one code path serves Claude, Llama, Mistral and Titan.
type BedrockLLM struct {
	client  *bedrockruntime.Client
	modelID string
}

// BedrockConfig holds configuration for creating a Bedrock LLM adapter.
type BedrockConfig struct {
	// ModelID is the Bedrock model identifier (e.g., "anthropic.claude-3-5-sonnet-20241022-v2:0")
	ModelID string

	// Region is the AWS region (default: us-east-1)
	Region string

	// Profile is the AWS profile name (optional)
	Profile string

	// AccessKeyID, SecretAccessKey and SessionToken are static credentials (optional)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// EndpointURL is a custom endpoint URL for VPC endpoints (optional)
	EndpointURL string
}

// NewBedrockLLM creates a new Bedrock LLM adapter.
func NewBedrockLLM(ctx context.Context, cfg BedrockConfig) (*BedrockLLM, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}

	return &BedrockLLM{
		client:  bedrockruntime.NewFromConfig(awsConfig, clientOpts...),
		modelID: cfg.ModelID,
	}, nil
}

// Model returns the model identifier.
func (b *BedrockLLM) Model() string {
	return b.modelID
}

// Complete generates a completion from Bedrock.
func (b *BedrockLLM) Complete(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (*agenkit.Message, error) {
	options := BuildCallOptions(opts...)
	bedrockMessages, systemPrompts := convertBedrockMessages(messages)

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(b.modelID),
		Messages:        bedrockMessages,
		InferenceConfig: bedrockInferenceConfig(options),
	}
	if len(systemPrompts) > 0 {
		input.System = systemPrompts
	}

	output, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock api error: %w", err)
	}

	var content string
	if msg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
				content += textBlock.Value
			}
		}
	}

	response := agenkit.NewMessage("agent", content)
	response.Metadata["model"] = b.modelID
	if output.Usage != nil {
		response.Metadata["usage"] = map[string]interface{}{
			"prompt_tokens":     aws.ToInt32(output.Usage.InputTokens),
			"completion_tokens": aws.ToInt32(output.Usage.OutputTokens),
			"total_tokens":      aws.ToInt32(output.Usage.TotalTokens),
		}
	}
	if output.StopReason != "" {
		response.Metadata["stop_reason"] = string(output.StopReason)
	}

	return response, nil
}

// Stream generates completion chunks from Bedrock.
func (b *BedrockLLM) Stream(ctx context.Context, messages []*agenkit.Message, opts ...CallOption) (<-chan *agenkit.Message, error) {
	options := BuildCallOptions(opts...)
	bedrockMessages, systemPrompts := convertBedrockMessages(messages)

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(b.modelID),
		Messages:        bedrockMessages,
		InferenceConfig: bedrockInferenceConfig(options),
	}
	if len(systemPrompts) > 0 {
		input.System = systemPrompts
	}

	output, err := b.client.ConverseStream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock api error: %w", err)
	}

	messageChan := make(chan *agenkit.Message)

	go func() {
		defer close(messageChan)
		defer RecoverStream(ctx, messageChan)

		stream := output.GetStream()
		defer stream.Close()

		for event := range stream.Events() {
			delta, ok := event.(*types.ConverseStreamOutputMemberContentBlockDelta)
			if !ok || delta.Value.Delta == nil {
				continue
			}
			textDelta, ok := delta.Value.Delta.(*types.ContentBlockDeltaMemberText)
			if !ok || textDelta.Value == "" {
				continue
			}
			chunk := agenkit.NewMessage("agent", textDelta.Value)
			chunk.Metadata["streaming"] = true
			chunk.Metadata["model"] = b.modelID
			if !sendChunk(ctx, messageChan, chunk) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			sendChunk(ctx, messageChan, streamError(fmt.Errorf("bedrock stream error: %w", err)))
		}
	}()

	return messageChan, nil
}

func bedrockInferenceConfig(options *CallOptions) *types.InferenceConfiguration {
	inferenceConfig := &types.InferenceConfiguration{}

	if options.Temperature != nil {
		inferenceConfig.Temperature = aws.Float32(float32(*options.Temperature))
	}

	maxTokens := 4096
	if options.MaxTokens != nil {
		maxTokens = *options.MaxTokens
	}
	inferenceConfig.MaxTokens = aws.Int32(int32(maxTokens))

	if options.TopP != nil {
		inferenceConfig.TopP = aws.Float32(float32(*options.TopP))
	}
	if stopSeq, ok := options.Extra["stopSequences"].([]string); ok && len(stopSeq) > 0 {
		inferenceConfig.StopSequences = stopSeq
	}

	return inferenceConfig
}

// convertBedrockMessages converts messages to Converse format.
// System messages go to the separate system parameter.
func convertBedrockMessages(messages []*agenkit.Message) ([]types.Message, []types.SystemContentBlock) {
	var bedrockMessages []types.Message
	var systemPrompts []types.SystemContentBlock

	for _, msg := range messages {
		if msg.Role == "system" {
			systemPrompts = append(systemPrompts, &types.SystemContentBlockMemberText{Value: msg.Content})
			continue
		}

		role := types.ConversationRoleAssistant
		if msg.Role == "user" {
			role = types.ConversationRoleUser
		}

		bedrockMessages = append(bedrockMessages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
		})
	}

	return bedrockMessages, systemPrompts
}

// Unwrap returns the underlying *bedrockruntime.Client.
func (b *BedrockLLM) Unwrap() interface{} {
	return b.client
}
