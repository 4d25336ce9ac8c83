package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/voxlabs/interviewd/internal/config"
)

// Provider generates replies through the OpenAI chat completions API.
type Provider struct {
	client openai.Client
	model  openai.ChatModel
}

func New(cfg config.LLMConfig) *Provider {
	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Provider{
		client: openai.NewClient(
			option.WithAPIKey(cfg.OpenAIAPIKey),
		),
		model: model,
	}
}

func (p *Provider) Reply(ctx context.Context, prompt string) (string, error) {
	completion, err := p.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: p.model,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
