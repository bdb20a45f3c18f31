// -- internal/llmclient/factory.go --
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
)

// NewClient builds the generation client described by cfg: one model client
// per tier behind an LLMRouter. When both tiers name the same model a single
// client serves both.
func NewClient(ctx context.Context, cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", cfg.Provider, config.ProviderGemini)
	}

	fast, err := NewGoogleClient(ctx, cfg.ModelConfig(cfg.DefaultFastModel), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast tier client (%s): %w", cfg.DefaultFastModel, err)
	}

	var powerful schemas.LLMClient = fast
	if cfg.DefaultPowerfulModel != cfg.DefaultFastModel {
		pc, err := NewGoogleClient(ctx, cfg.ModelConfig(cfg.DefaultPowerfulModel), logger)
		if err != nil {
			fast.Close()
			return nil, fmt.Errorf("failed to create powerful tier client (%s): %w", cfg.DefaultPowerfulModel, err)
		}
		powerful = pc
	}

	router, err := NewLLMRouter(logger, fast, powerful)
	if err != nil {
		return nil, err
	}
	return router, nil
}
