package piece

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store reads pieces from a content directory. It keeps no cache: every
// List call re-reads the directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the given content directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the content directory.
func (s *Store) Dir() string {
	return s.dir
}

// List loads and validates every *.md file in the content directory.
//
// A missing directory yields an empty list. A single malformed file fails
// the whole call with an *InvalidDocumentError. Results are sorted pinned
// first, then newest first, then by descending id.
func (s *Store) List(ctx context.Context) ([]Piece, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Piece{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorpusUnavailable, s.dir, err)
	}

	pieces := make([]Piece, 0, len(entries))
	seenIDs := make(map[int]string)
	seenSlugs := make(map[string]string)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrCorpusUnavailable, entry.Name(), err)
		}

		p, err := Parse(raw, entry.Name())
		if err != nil {
			return nil, err
		}

		if other, dup := seenIDs[p.ID]; dup {
			return nil, &InvalidDocumentError{
				File:   entry.Name(),
				Field:  "id",
				Reason: fmt.Sprintf("duplicate of %s", other),
			}
		}
		if other, dup := seenSlugs[p.Slug]; dup {
			return nil, &InvalidDocumentError{
				File:   entry.Name(),
				Reason: fmt.Sprintf("slug %q duplicates %s", p.Slug, other),
			}
		}
		seenIDs[p.ID] = entry.Name()
		seenSlugs[p.Slug] = entry.Name()

		pieces = append(pieces, p)
	}

	SortPieces(pieces)
	return pieces, nil
}

// Get returns the piece with the given slug.
func (s *Store) Get(ctx context.Context, slug string) (Piece, error) {
	pieces, err := s.List(ctx)
	if err != nil {
		return Piece{}, err
	}
	for _, p := range pieces {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Piece{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
}

// SortPieces orders pieces pinned first, then by descending publication
// time, then by descending id.
func SortPieces(pieces []Piece) {
	sort.SliceStable(pieces, func(i, j int) bool {
		a, b := pieces[i], pieces[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID > b.ID
	})
}
