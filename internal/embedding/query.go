package embedding

import (
	"context"
	"strings"
)

// MaxQueryLength bounds the query text sent to the provider, in runes.
// Longer queries are scored on their prefix.
const MaxQueryLength = 2000

// QueryVector is an embedded query together with its norm.
type QueryVector struct {
	Vector []float32
	Norm   float64
}

// QueryEmbedder turns raw query text into a QueryVector.
type QueryEmbedder struct {
	provider Provider
}

// NewQueryEmbedder creates a query embedder backed by p.
func NewQueryEmbedder(p Provider) *QueryEmbedder {
	return &QueryEmbedder{provider: p}
}

// Embed embeds the trimmed, truncated query. Blank input returns
// ErrEmptyQuery without calling the provider. Provider errors are
// returned unchanged and never retried.
func (q *QueryEmbedder) Embed(ctx context.Context, text string) (QueryVector, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return QueryVector{}, ErrEmptyQuery
	}

	emb, err := q.provider.Embed(ctx, Truncate(trimmed, MaxQueryLength))
	if err != nil {
		return QueryVector{}, err
	}
	return QueryVector{Vector: emb.Vector, Norm: emb.Norm()}, nil
}

// ModelName returns the model of the underlying provider.
func (q *QueryEmbedder) ModelName() string {
	return q.provider.ModelName()
}
