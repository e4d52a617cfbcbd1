// Package provider selects the configured vision backend.
package provider

import (
	"log/slog"

	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/llm"
	"github.com/joseph-ayodele/docsheet/internal/llm/gemini"
	"github.com/joseph-ayodele/docsheet/internal/llm/openai"
)

// Named is an extractor that can report which backend it talks to.
type Named interface {
	llm.Extractor
	Name() string
}

// New builds the extractor for cfg.Provider.
func New(cfg common.VisionConfig, logger *slog.Logger) (Named, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, common.InvalidInputf("unknown vision provider %q", cfg.Provider)
	}
}
