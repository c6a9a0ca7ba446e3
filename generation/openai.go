package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	config Config
}

// NewOpenAIGenerator creates an OpenAI adapter. BaseURL may point at any
// compatible server.
func NewOpenAIGenerator(config Config) (*OpenAIGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

func (g *OpenAIGenerator) Name() string {
	return ProviderOpenAI
}

// Generate sends the prompt as a single user message under the system prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.timeout())
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   g.config.maxTokens(),
		Temperature: defaultTemperature,
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
