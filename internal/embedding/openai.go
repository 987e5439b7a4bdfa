package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the default OpenAI embedding model.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIProvider uses the OpenAI embeddings API.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions atomic.Int64
	requested  int
}

// NewOpenAIProvider creates an OpenAI embedder.
// Returns ErrMissingCredential if apiKey is empty.
func NewOpenAIProvider(apiKey string, opts ...Option) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, missingCredential("openai", "OPENAI_API_KEY")
	}
	o := newClientOptions("", DefaultOpenAIModel, opts)

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	cfg.HTTPClient = o.client

	p := &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     o.model,
		requested: o.dimensions,
	}
	p.dimensions.Store(int64(o.dimensions))
	return p, nil
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	if len(out) != 1 {
		return Embedding{}, &ProviderError{Provider: "openai", Message: fmt.Sprintf("expected 1 vector, got %d", len(out))}
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request, returning results in input order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(p.model),
		Input:      texts,
		Dimensions: p.requested,
	})
	if err != nil {
		return nil, openAIError(err)
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([]Embedding, len(data))
	for i, d := range data {
		if err := checkDimensions(&p.dimensions, len(d.Embedding)); err != nil {
			return nil, err
		}
		out[i] = Embedding{Vector: d.Embedding}
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the vector dimensions, or 0 before the first response.
func (p *OpenAIProvider) Dimensions() int {
	return int(p.dimensions.Load())
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return &ProviderError{Provider: "openai", Message: err.Error()}
}
