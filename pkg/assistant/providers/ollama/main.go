package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/presbrey/ollamafarm"
	"github.com/voxlabs/interviewd/internal/config"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

// Provider generates replies through a farm of ollama servers. Requests go
// to the first server currently online.
type Provider struct {
	farm        *ollamafarm.Farm
	model       string
	temperature float64
	maxTokens   int
	logger      *Logger.Logger
}

func New(cfg config.LLMConfig, logger *Logger.Logger) *Provider {
	farm := ollamafarm.New()

	for _, srv := range cfg.LLamaModels {
		if err := farm.RegisterURL(srv.URL, nil); err != nil {
			logger.Warnf("failed to register ollama server %s: %v", srv.URL, err)
		}
	}

	return &Provider{
		farm:        farm,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

func (p *Provider) Reply(ctx context.Context, prompt string) (string, error) {
	srv := p.farm.First(&ollamafarm.Where{Offline: false})
	if srv == nil {
		return "", fmt.Errorf("no ollama server online for model %s", p.model)
	}

	stream := false
	req := api.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": p.temperature,
			"num_predict": p.maxTokens,
		},
	}

	var out strings.Builder
	err := srv.Client().Generate(ctx, &req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	return out.String(), nil
}
