package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderConfig carries the settings needed to build any provider
type ProviderConfig struct {
	Provider string
	Endpoint string
	Model    string
	Region   string
	APIKey   string
	Timeout  time.Duration
}

// NewProviderFromConfig creates a Provider from config fields
func NewProviderFromConfig(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "":
		return NewOpenAI(cfg.Endpoint, cfg.Model, cfg.APIKey, cfg.Timeout), nil
	case "ollama":
		return NewOllama(cfg.Endpoint, cfg.Model, cfg.Timeout), nil
	case "bedrock":
		client, err := NewBedrock(ctx, cfg.Region, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
