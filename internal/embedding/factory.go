package embedding

import (
	"fmt"
	"os"
	"time"

	"github.com/tacticalblog/pieces/internal/config"
)

// NewProvider builds the provider named in cfg, resolving its credential
// from the environment variable cfg.APIKeyEnv, and wraps it in a rate limiter.
// A missing credential fails here, before any request is made.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
		WithDimensions(cfg.Dimensions),
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "", "huggingface":
		token := lookupKey(cfg.APIKeyEnv, "HF_TOKEN")
		if token == "" {
			return nil, missingCredential("huggingface", keyName(cfg.APIKeyEnv, "HF_TOKEN"))
		}
		p, err = NewHuggingFaceProvider(token, opts...)
	case "openai":
		key := lookupKey(cfg.APIKeyEnv, "OPENAI_API_KEY")
		if key == "" {
			return nil, missingCredential("openai", keyName(cfg.APIKeyEnv, "OPENAI_API_KEY"))
		}
		p, err = NewOpenAIProvider(key, opts...)
	case "ollama":
		p = NewOllamaProvider(opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return RateLimited(p, cfg.RequestsPerSecond), nil
}

func keyName(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func lookupKey(configured, fallback string) string {
	return os.Getenv(keyName(configured, fallback))
}
