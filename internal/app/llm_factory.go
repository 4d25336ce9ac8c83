package app

import (
	"fmt"

	"github.com/voxlabs/interviewd/internal/config"
	"github.com/voxlabs/interviewd/pkg/Logger"
	"github.com/voxlabs/interviewd/pkg/assistant"
	"github.com/voxlabs/interviewd/pkg/assistant/providers/gemini"
	"github.com/voxlabs/interviewd/pkg/assistant/providers/ollama"
	"github.com/voxlabs/interviewd/pkg/assistant/providers/openai"
)

// NewReplier builds the configured model backend.
func NewReplier(cfg config.LLMConfig, logger *Logger.Logger) (assistant.Replier, error) {
	switch cfg.Provider {
	case "ollama", "":
		return ollama.New(cfg, logger), nil
	case "openai":
		return openai.New(cfg), nil
	case "gemini":
		return gemini.New(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
