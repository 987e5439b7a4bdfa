package main

import (
	"context"
	"errors"
	"testing"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/embedding"
)

func TestServeEmbedder_MissingCredential(t *testing.T) {
	t.Setenv("PIECES_TEST_HF_TOKEN", "")

	e := serveEmbedder(&config.GlobalConfig{
		Embedding: config.EmbeddingConfig{Provider: "huggingface", APIKeyEnv: "PIECES_TEST_HF_TOKEN"},
	})
	if _, ok := e.(unprovisionedEmbedder); !ok {
		t.Fatalf("serveEmbedder() = %T, want unprovisionedEmbedder", e)
	}

	_, err := e.Embed(context.Background(), "tempo")
	if !errors.Is(err, embedding.ErrMissingCredential) {
		t.Errorf("Embed() error = %v, want ErrMissingCredential", err)
	}
}

func TestServeEmbedder_Configured(t *testing.T) {
	e := serveEmbedder(&config.GlobalConfig{
		Embedding: config.EmbeddingConfig{Provider: "ollama"},
	})
	if _, ok := e.(*embedding.QueryEmbedder); !ok {
		t.Errorf("serveEmbedder() = %T, want *embedding.QueryEmbedder", e)
	}
}
