package embedding

import (
	"errors"
	"testing"

	"github.com/tacticalblog/pieces/internal/config"
)

func TestNewProvider(t *testing.T) {
	t.Setenv("HF_TOKEN", "hf_test")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	tests := []struct {
		name     string
		cfg      config.EmbeddingConfig
		wantType Provider
	}{
		{"default is huggingface", config.EmbeddingConfig{}, &HuggingFaceProvider{}},
		{"openai", config.EmbeddingConfig{Provider: "openai"}, &OpenAIProvider{}},
		{"ollama", config.EmbeddingConfig{Provider: "ollama"}, &OllamaProvider{}},
		{"rate limited", config.EmbeddingConfig{Provider: "ollama", RequestsPerSecond: 5}, &RateLimitedProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			switch tt.wantType.(type) {
			case *HuggingFaceProvider:
				if _, ok := p.(*HuggingFaceProvider); !ok {
					t.Errorf("NewProvider() = %T", p)
				}
			case *OpenAIProvider:
				if _, ok := p.(*OpenAIProvider); !ok {
					t.Errorf("NewProvider() = %T", p)
				}
			case *OllamaProvider:
				if _, ok := p.(*OllamaProvider); !ok {
					t.Errorf("NewProvider() = %T", p)
				}
			case *RateLimitedProvider:
				if _, ok := p.(*RateLimitedProvider); !ok {
					t.Errorf("NewProvider() = %T", p)
				}
			}
		})
	}
}

func TestNewProvider_MissingCredential(t *testing.T) {
	t.Setenv("HF_TOKEN", "")
	t.Setenv("PIECES_EMBED_KEY", "")

	tests := []config.EmbeddingConfig{
		{Provider: "huggingface"},
		{Provider: "openai", APIKeyEnv: "PIECES_EMBED_KEY"},
	}
	for _, cfg := range tests {
		if _, err := NewProvider(cfg); !errors.Is(err, ErrMissingCredential) {
			t.Errorf("NewProvider(%+v) error = %v, want ErrMissingCredential", cfg, err)
		}
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider(config.EmbeddingConfig{Provider: "word2vec"}); err == nil {
		t.Error("NewProvider() expected error for unknown provider")
	}
}
