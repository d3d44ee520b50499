package services

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Birzhan20/neuro-search-core/internal/models"
)

// Generator turns an ordered message sequence into answer text.
// Stateless per call; conversation state lives in the chat repository.
type Generator interface {
	Generate(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// LLMConfig configures the chat completion client.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// OpenAIGenerator implements Generator with an OpenAI chat model.
type OpenAIGenerator struct {
	client llms.Model
}

// NewOpenAIGenerator creates the LLM client.
func NewOpenAIGenerator(config LLMConfig) (*OpenAIGenerator, error) {
	opts := []openai.Option{
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &OpenAIGenerator{client: client}, nil
}

// Generate invokes the model with temperature 0 and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []models.ChatMessage) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}

	return response.Choices[0].Content, nil
}
