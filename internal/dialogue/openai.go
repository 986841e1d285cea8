package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"setter-platform/internal/config"
)

// OpenAIGenerator implements Generator on the official OpenAI client using
// the Chat Completions API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    config.OpenAIConfig
}

// NewOpenAIGenerator builds a generator from the configured credentials and
// sampling parameters.
func NewOpenAIGenerator(cfg config.OpenAIConfig) *OpenAIGenerator {
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return NewOpenAIGeneratorFromClient(&client, cfg)
}

// NewOpenAIGeneratorFromClient wraps an existing client, useful when the
// caller already holds one with custom transport options.
func NewOpenAIGeneratorFromClient(client *openai.Client, cfg config.OpenAIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, cfg: cfg}
}

func (g *OpenAIGenerator) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               g.cfg.Model,
		Temperature:         openai.Float(g.cfg.Temperature),
		MaxCompletionTokens: openai.Int(g.cfg.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
