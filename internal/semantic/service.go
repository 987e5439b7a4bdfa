package semantic

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/piece"
)

// QueryEmbedder embeds query text. *embedding.QueryEmbedder implements it.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) (embedding.QueryVector, error)
}

// Service answers retrieval requests against the cached store and corpus.
// Create one at startup and share it; it is safe for concurrent use.
type Service struct {
	loader   *Loader
	embedder QueryEmbedder
}

// NewService creates a retrieval service.
func NewService(loader *Loader, embedder QueryEmbedder) *Service {
	return &Service{loader: loader, embedder: embedder}
}

// RetrieveContext returns the fragments and pieces most similar to query.
// A blank query returns an empty result without calling the provider.
// Store errors (ErrStoreMissing, ErrStoreEmpty) and provider errors are
// returned to the caller unchanged.
func (s *Service) RetrieveContext(ctx context.Context, query string, opts Options) (Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return EmptyResult(), nil
	}

	var (
		store  *LoadedStore
		corpus *Corpus
		qv     embedding.QueryVector
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		store, err = s.loader.Store()
		return err
	})
	g.Go(func() error {
		var err error
		corpus, err = s.loader.Corpus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		qv, err = s.embedder.Embed(gctx, trimmed)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Retrieve(qv, store, corpus.Fragments, corpus.PiecesBySlug, opts), nil
}

// Pieces returns the cached corpus in listing order.
func (s *Service) Pieces(ctx context.Context) ([]piece.Piece, error) {
	c, err := s.loader.Corpus(ctx)
	if err != nil {
		return nil, err
	}
	return c.Pieces, nil
}

// Piece returns one piece by slug, or piece.ErrNotFound.
func (s *Service) Piece(ctx context.Context, slug string) (piece.Piece, error) {
	c, err := s.loader.Corpus(ctx)
	if err != nil {
		return piece.Piece{}, err
	}
	p, ok := c.PiecesBySlug[slug]
	if !ok {
		return piece.Piece{}, piece.ErrNotFound
	}
	return p, nil
}
