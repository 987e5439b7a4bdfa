package embedding

import (
	"context"
	"net/http"
	"time"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch generates one embedding per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the vector dimensions, or 0 if not yet known.
	Dimensions() int
}

// DefaultTimeout is the timeout for embedding requests.
const DefaultTimeout = 60 * time.Second

// clientOptions holds settings shared by the HTTP-backed providers.
type clientOptions struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// Option configures a provider.
type Option func(*clientOptions)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithDimensions sets the expected vector dimensions.
func WithDimensions(dims int) Option {
	return func(o *clientOptions) {
		o.dimensions = dims
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.client.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.client = c
	}
}

func newClientOptions(baseURL, model string, opts []Option) clientOptions {
	o := clientOptions{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
