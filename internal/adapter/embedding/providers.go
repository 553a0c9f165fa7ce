package embedding

import (
	"fmt"

	"ragcloud/config"
	"ragcloud/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
