package generation

import (
	"context"
	"fmt"

	"ragcloud/config"
	"ragcloud/internal/port"
)

// New builds the generator selected by cfg.Provider.
func New(cfg config.GenerationConfig) (port.Generator, error) {
	var (
		gen port.Generator
		err error
	)
	switch cfg.Provider {
	case "", "gemini":
		gen, err = NewGeminiGenerator(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Instructions, cfg.Timeout)
	case "openai":
		gen, err = NewOpenAIGenerator(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Instructions, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.PlainText {
		gen = PlainText(gen)
	}
	return gen, nil
}

type plainText struct {
	port.Generator
}

// PlainText wraps g so that answers have formatting characters removed.
func PlainText(g port.Generator) port.Generator {
	return plainText{Generator: g}
}

func (p plainText) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	answer, err := p.Generator.Generate(ctx, query, contextChunks)
	if err != nil {
		return "", err
	}
	return StripFormatting(answer), nil
}
