package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/cv-master/backend/internal/config"
)

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s credentials or model not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err := NewGeminiProvider(ctx, cfg.GenAIClientConfig())
		if err != nil {
			return nil, err
		}
		return provider, nil
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		provider, err := NewChainProvider(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
