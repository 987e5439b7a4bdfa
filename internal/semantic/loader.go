package semantic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/logger"
	"github.com/tacticalblog/pieces/internal/piece"
)

// LoadedVector is a stored record with its precomputed norm.
type LoadedVector struct {
	Record
	Norm float64
}

// LoadedStore is a Store prepared for scoring.
type LoadedStore struct {
	Version         string
	Model           string
	CreatedAt       time.Time
	Dimensions      int
	Fragments       []LoadedVector
	PieceEmbeddings []LoadedVector
}

// Load reads the store at path and precomputes the norm of every vector.
// Returns ErrStoreMissing if the file does not exist and ErrStoreEmpty if
// it holds no fragment records.
func Load(path string) (*LoadedStore, error) {
	s, err := ReadStore(path)
	if err != nil {
		return nil, err
	}
	if err := CheckVersion(s.Version); err != nil {
		return nil, err
	}
	if len(s.Fragments) == 0 {
		return nil, ErrStoreEmpty
	}

	return &LoadedStore{
		Version:         s.Version,
		Model:           s.Model,
		CreatedAt:       s.CreatedAt,
		Dimensions:      s.Dimensions,
		Fragments:       withNorms(s.Fragments),
		PieceEmbeddings: withNorms(s.PieceEmbeddings),
	}, nil
}

func withNorms(records []Record) []LoadedVector {
	out := make([]LoadedVector, len(records))
	for i, r := range records {
		out[i] = LoadedVector{Record: r, Norm: embedding.Norm(r.Embedding)}
	}
	return out
}

// Corpus is the parsed piece collection, indexed for rehydrating records.
type Corpus struct {
	Pieces       []piece.Piece             // In listing order
	PiecesBySlug map[string]piece.Piece    // Keyed by slug
	Fragments    map[string]piece.Fragment // Keyed by fragment id
}

// NewCorpus fragments pieces and indexes both.
func NewCorpus(pieces []piece.Piece, minLength int) *Corpus {
	c := &Corpus{
		Pieces:       pieces,
		PiecesBySlug: make(map[string]piece.Piece, len(pieces)),
		Fragments:    make(map[string]piece.Fragment),
	}
	for _, p := range pieces {
		c.PiecesBySlug[p.Slug] = p
		for _, f := range piece.FragmentPiece(p, minLength) {
			c.Fragments[f.ID] = f
		}
	}
	return c
}

// PieceLister lists the corpus. *piece.Store implements it.
type PieceLister interface {
	List(ctx context.Context) ([]piece.Piece, error)
}

// Loader memoizes the loaded store and corpus for the process lifetime.
// Concurrent first callers share a single load. A successful load is kept
// forever; a failed load is not kept, so the next call tries again.
type Loader struct {
	storePath string
	pieces    PieceLister
	minLength int

	group  singleflight.Group
	store  cached[*LoadedStore]
	corpus cached[*Corpus]
}

// NewLoader creates a loader for the store at storePath and the given corpus.
func NewLoader(storePath string, pieces PieceLister, minLength int) *Loader {
	return &Loader{
		storePath: storePath,
		pieces:    pieces,
		minLength: minLength,
	}
}

// StorePath returns the path of the store file.
func (l *Loader) StorePath() string {
	return l.storePath
}

// Store returns the loaded embedding store.
func (l *Loader) Store() (*LoadedStore, error) {
	return loadOnce(&l.group, "store", &l.store, func() (*LoadedStore, error) {
		s, err := Load(l.storePath)
		if err != nil {
			return nil, err
		}
		logger.Infow("loaded embedding store",
			"path", l.storePath,
			"model", s.Model,
			"fragments", len(s.Fragments),
			"pieces", len(s.PieceEmbeddings))
		return s, nil
	})
}

// Corpus returns the parsed and fragmented corpus. The load is detached from
// ctx cancellation so one cancelled caller does not fail the others sharing it.
func (l *Loader) Corpus(ctx context.Context) (*Corpus, error) {
	return loadOnce(&l.group, "corpus", &l.corpus, func() (*Corpus, error) {
		pieces, err := l.pieces.List(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
		return NewCorpus(pieces, l.minLength), nil
	})
}

// cached holds a value once it has been loaded successfully.
type cached[T any] struct {
	mu  sync.RWMutex
	val T
	ok  bool
}

func (c *cached[T]) get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val, c.ok
}

func (c *cached[T]) set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val, c.ok = v, true
}

func loadOnce[T any](g *singleflight.Group, key string, c *cached[T], load func() (T, error)) (T, error) {
	if v, ok := c.get(); ok {
		return v, nil
	}

	v, err, _ := g.Do(key, func() (any, error) {
		if v, ok := c.get(); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.set(v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
