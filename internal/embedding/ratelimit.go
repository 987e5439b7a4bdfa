package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider waits on a token bucket before every request
// to the wrapped provider.
type RateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

// RateLimited wraps p so that it issues at most rps requests per second.
// A non-positive rps returns p unchanged.
func RateLimited(p Provider, rps float64) Provider {
	if rps <= 0 {
		return p
	}
	return &RateLimitedProvider{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed waits for the limiter, then delegates.
func (r *RateLimitedProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Embedding{}, err
	}
	return r.Provider.Embed(ctx, text)
}

// EmbedBatch waits for the limiter, then delegates. A batch counts as one request.
func (r *RateLimitedProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.EmbedBatch(ctx, texts)
}

// Unwrap returns the provider behind any rate limiter.
func Unwrap(p Provider) Provider {
	if r, ok := p.(*RateLimitedProvider); ok {
		return r.Provider
	}
	return p
}
