package semantic

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tacticalblog/pieces/internal/piece"
)

func writeTestStore(t *testing.T, path string) {
	t.Helper()
	s := NewStore("nvidia/NV-Embed-v2", 2)
	s.Fragments = []Record{
		{ID: "piece-001-fragment-001", PieceID: 1, PieceSlug: "alpha", FragmentOrder: 1, Embedding: []float32{3, 4}},
		{ID: "piece-001-fragment-002", PieceID: 1, PieceSlug: "alpha", FragmentOrder: 2, Embedding: []float32{0, 0}},
	}
	s.PieceEmbeddings = []Record{
		{ID: "alpha", PieceID: 1, PieceSlug: "alpha", Embedding: []float32{1, 0}},
	}
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces-v1.json")
	writeTestStore(t, path)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Fragments) != 2 || len(s.PieceEmbeddings) != 1 {
		t.Fatalf("loaded %d fragments and %d pieces", len(s.Fragments), len(s.PieceEmbeddings))
	}
	if math.Abs(s.Fragments[0].Norm-5) > 1e-9 {
		t.Errorf("fragment norm = %v, want 5", s.Fragments[0].Norm)
	}
	if s.Fragments[1].Norm != 0 {
		t.Errorf("zero vector norm = %v, want 0", s.Fragments[1].Norm)
	}
	if s.PieceEmbeddings[0].Norm != 1 {
		t.Errorf("piece norm = %v, want 1", s.PieceEmbeddings[0].Norm)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "pieces-v1.json"))
	if !errors.Is(err, ErrStoreMissing) {
		t.Fatalf("expected ErrStoreMissing, got %v", err)
	}
	if want := "pieces embed"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should tell the operator to run %q", err.Error(), want)
	}
}

func TestLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces-v1.json")
	if err := NewStore("m", 0).Save(path); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !errors.Is(err, ErrStoreEmpty) {
		t.Errorf("expected ErrStoreEmpty, got %v", err)
	}
}

func TestLoad_MissingPieceEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces-v1.json")
	data := `{"version":"nv-embed-v2::pieces-v1","model":"nvidia/NV-Embed-v2","createdAt":"2025-01-02T00:00:00Z","dimensions":2,
		"fragments":[{"id":"piece-001-fragment-001","pieceId":1,"pieceSlug":"a","pieceTitle":"A","fragmentOrder":1,"embedding":[1,0]}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.PieceEmbeddings == nil || len(s.PieceEmbeddings) != 0 {
		t.Errorf("PieceEmbeddings = %v, want empty", s.PieceEmbeddings)
	}
}

// countingLister counts List calls and can be told to fail.
type countingLister struct {
	calls  atomic.Int32
	pieces []piece.Piece
	err    error
}

func (c *countingLister) List(ctx context.Context) ([]piece.Piece, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.pieces, nil
}

func TestLoader_CachesSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces-v1.json")
	writeTestStore(t, path)
	lister := &countingLister{pieces: testPieces()}
	l := NewLoader(path, lister, 0)

	var wg sync.WaitGroup
	stores := make([]*LoadedStore, 8)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := l.Store()
			if err != nil {
				t.Errorf("Store() error = %v", err)
			}
			stores[i] = s
			if _, err := l.Corpus(context.Background()); err != nil {
				t.Errorf("Corpus() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	for _, s := range stores[1:] {
		if s != stores[0] {
			t.Fatal("concurrent callers should share one loaded store")
		}
	}
	if n := lister.calls.Load(); n != 1 {
		t.Errorf("corpus listed %d times, want 1", n)
	}

	// Deleting the file does not affect a cached store.
	os.Remove(path)
	s, err := l.Store()
	if err != nil || s != stores[0] {
		t.Errorf("Store() after delete = %p, %v; want cached store", s, err)
	}
}

func TestLoader_DoesNotCacheFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces-v1.json")
	l := NewLoader(path, &countingLister{}, 0)

	if _, err := l.Store(); !errors.Is(err, ErrStoreMissing) {
		t.Fatalf("expected ErrStoreMissing, got %v", err)
	}

	// Provisioning the store later is picked up without a restart.
	writeTestStore(t, path)
	s, err := l.Store()
	if err != nil {
		t.Fatalf("Store() after provisioning error = %v", err)
	}
	if len(s.Fragments) != 2 {
		t.Errorf("fragments = %d, want 2", len(s.Fragments))
	}
}

func TestLoader_CorpusFailureRetries(t *testing.T) {
	lister := &countingLister{err: piece.ErrCorpusUnavailable}
	l := NewLoader("", lister, 0)

	if _, err := l.Corpus(context.Background()); !errors.Is(err, piece.ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}

	lister.err = nil
	lister.pieces = testPieces()
	c, err := l.Corpus(context.Background())
	if err != nil {
		t.Fatalf("Corpus() retry error = %v", err)
	}
	if len(c.Pieces) != 2 || len(c.Fragments) != 3 {
		t.Errorf("corpus has %d pieces and %d fragments", len(c.Pieces), len(c.Fragments))
	}
	if lister.calls.Load() != 2 {
		t.Errorf("List called %d times, want 2", lister.calls.Load())
	}
}

func TestNewCorpus(t *testing.T) {
	c := NewCorpus(testPieces(), 0)

	if _, ok := c.PiecesBySlug["terrain"]; !ok {
		t.Error("terrain missing from PiecesBySlug")
	}
	if f, ok := c.Fragments["piece-001-fragment-002"]; !ok || f.Order != 2 {
		t.Errorf("fragment piece-001-fragment-002 = %+v, %v", f, ok)
	}
}
