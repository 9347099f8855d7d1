// Package llm turns chat messages into tagged intents and structured fields
// using a hosted completion model.
package llm

import (
	"context"
	"fmt"

	"counto/pkg/config"

	"go.uber.org/zap"
)

// Provider is a single-turn completion endpoint.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// NewProvider builds the provider selected by LLM_PROVIDER.
func NewProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Provider, error) {
	switch cfg.LLM.Provider {
	case "", "gigachat":
		return NewGigaChatProvider(ctx, &cfg.GigaChat, logger)
	case "gemini":
		return NewGeminiProvider(ctx, &cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
