package main

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
	"github.com/tacticalblog/pieces/internal/storage"
)

const (
	paragraphOne = "The first paragraph is long enough to survive the fragment length cut."
	paragraphTwo = "The second paragraph also clears the minimum length for a fragment."
)

func checkFixture() ([]piece.Piece, []piece.Fragment) {
	pieces := []piece.Piece{
		{ID: 1, Slug: "on-tempo", Title: "On Tempo", Excerpt: "Timing.", Content: paragraphOne + "\n\n" + paragraphTwo},
		{ID: 2, Slug: "on-terrain", Title: "On Terrain", Excerpt: "Ground.", Content: paragraphOne},
	}
	return pieces, piece.FragmentAll(pieces, 0)
}

// storeFor builds a store holding records for the given ids.
func storeFor(fragmentIDs, pieceSlugs []string) *semantic.Store {
	s := semantic.NewStore("test-model", 2)
	for _, id := range fragmentIDs {
		s.Fragments = append(s.Fragments, semantic.Record{ID: id, Embedding: []float32{1, 0}})
	}
	for _, slug := range pieceSlugs {
		s.PieceEmbeddings = append(s.PieceEmbeddings, semantic.Record{ID: slug, PieceSlug: slug, Embedding: []float32{1, 0}})
	}
	return s
}

// metadataFor records the current hashes, as a fresh build would.
func metadataFor(pieces []piece.Piece, fragments []piece.Fragment) (frag, pcs map[string]storage.EmbeddingMetadata) {
	fragHashes, pieceHashes := corpusHashes(pieces, fragments)
	frag = make(map[string]storage.EmbeddingMetadata)
	for id, h := range fragHashes {
		frag[id] = storage.EmbeddingMetadata{ItemID: id, ItemClass: storage.ClassFragment, ContentHash: h}
	}
	pcs = make(map[string]storage.EmbeddingMetadata)
	for id, h := range pieceHashes {
		pcs[id] = storage.EmbeddingMetadata{ItemID: id, ItemClass: storage.ClassPiece, ContentHash: h}
	}
	return frag, pcs
}

func TestDiffStore_Healthy(t *testing.T) {
	pieces, fragments := checkFixture()
	store := storeFor(
		[]string{"piece-001-fragment-001", "piece-001-fragment-002", "piece-002-fragment-001"},
		[]string{"on-tempo", "on-terrain"},
	)
	fragMeta, pieceMeta := metadataFor(pieces, fragments)

	d := diffStore(pieces, fragments, store, fragMeta, pieceMeta)
	if d.stale() {
		t.Errorf("diffStore() stale = true, diff = %+v", d)
	}
	if len(d.orphaned) != 0 {
		t.Errorf("orphaned = %v, want none", d.orphaned)
	}
}

func TestDiffStore_Missing(t *testing.T) {
	pieces, fragments := checkFixture()
	store := storeFor([]string{"piece-001-fragment-001"}, []string{"on-tempo"})

	d := diffStore(pieces, fragments, store, nil, nil)
	want := []string{"on-terrain", "piece-001-fragment-002", "piece-002-fragment-001"}
	if !reflect.DeepEqual(d.missing, want) {
		t.Errorf("missing = %v, want %v", d.missing, want)
	}
	if !d.stale() {
		t.Error("diffStore() stale = false, want true")
	}
}

func TestDiffStore_Changed(t *testing.T) {
	pieces, fragments := checkFixture()
	fragMeta, pieceMeta := metadataFor(pieces, fragments)
	store := storeFor(
		[]string{"piece-001-fragment-001", "piece-001-fragment-002", "piece-002-fragment-001"},
		[]string{"on-tempo", "on-terrain"},
	)

	// Edit piece 2 after the build.
	pieces[1].Content = paragraphTwo
	fragments = piece.FragmentAll(pieces, 0)

	d := diffStore(pieces, fragments, store, fragMeta, pieceMeta)
	want := []string{"on-terrain", "piece-002-fragment-001"}
	if !reflect.DeepEqual(d.changed, want) {
		t.Errorf("changed = %v, want %v", d.changed, want)
	}
	if len(d.missing) != 0 {
		t.Errorf("missing = %v, want none", d.missing)
	}
}

func TestDiffStore_OrphanedIsNotStale(t *testing.T) {
	pieces, fragments := checkFixture()
	fragMeta, pieceMeta := metadataFor(pieces, fragments)
	store := storeFor(
		[]string{"piece-001-fragment-001", "piece-001-fragment-002", "piece-002-fragment-001", "piece-009-fragment-001"},
		[]string{"on-tempo", "on-terrain", "retired"},
	)

	d := diffStore(pieces, fragments, store, fragMeta, pieceMeta)
	want := []string{"piece-009-fragment-001", "retired"}
	if !reflect.DeepEqual(d.orphaned, want) {
		t.Errorf("orphaned = %v, want %v", d.orphaned, want)
	}
	if d.stale() {
		t.Error("orphaned records alone should not make the store stale")
	}
}

func TestLimitIDs(t *testing.T) {
	if got := limitIDs(nil); got != nil {
		t.Errorf("limitIDs(nil) = %v", got)
	}
	few := []string{"a", "b"}
	if got := limitIDs(few); !reflect.DeepEqual(got, few) {
		t.Errorf("limitIDs(few) = %v", got)
	}
	many := make([]string, maxListedIDs+1)
	if got := limitIDs(many); got != nil {
		t.Errorf("limitIDs(many) = %v, want nil", got)
	}
}

func TestFilterByMood(t *testing.T) {
	pieces := []piece.Piece{
		{ID: 1, Mood: []piece.Mood{piece.MoodAnalytical}},
		{ID: 2, Mood: []piece.Mood{piece.MoodCritical, piece.MoodAnalytical}},
		{ID: 3, Mood: []piece.Mood{piece.MoodContemplative}},
	}
	if got := filterByMood(pieces, ""); len(got) != 3 {
		t.Errorf("filterByMood(\"\") returned %d pieces, want 3", len(got))
	}
	got := filterByMood(pieces, "analytical")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("filterByMood(analytical) = %+v", got)
	}
}

func TestItemStatus(t *testing.T) {
	pieces, fragments := checkFixture()
	frags, pcs := corpusHashes(pieces, fragments)

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	first := fragments[0].ID
	if err := db.SaveEmbeddingMetadataBatch([]storage.EmbeddingMetadata{
		{ItemID: first, ItemClass: storage.ClassFragment, ModelName: "test-model", ContentHash: frags[first], IndexedAt: 1700000000},
		{ItemID: "on-tempo", ItemClass: storage.ClassPiece, ModelName: "test-model", ContentHash: "old-hash", IndexedAt: 1700000000},
		{ItemID: "retired", ItemClass: storage.ClassPiece, ModelName: "test-model", ContentHash: "old-hash", IndexedAt: 1700000000},
	}); err != nil {
		t.Fatal(err)
	}
	store := storeFor([]string{first}, []string{"on-tempo", "retired"})

	tests := []struct {
		id   string
		want ItemStatus
	}{
		{first, ItemStatus{ID: first, Class: storage.ClassFragment, InCorpus: true, Stored: true,
			Model: "test-model", IndexedAt: "2023-11-14T22:13:20Z"}},
		{fragments[1].ID, ItemStatus{ID: fragments[1].ID, Class: storage.ClassFragment, InCorpus: true}},
		{"on-tempo", ItemStatus{ID: "on-tempo", Class: storage.ClassPiece, InCorpus: true, Stored: true,
			Model: "test-model", IndexedAt: "2023-11-14T22:13:20Z", Changed: true}},
		{"retired", ItemStatus{ID: "retired", Class: storage.ClassPiece, Stored: true,
			Model: "test-model", IndexedAt: "2023-11-14T22:13:20Z"}},
		{"unknown", ItemStatus{ID: "unknown", Class: storage.ClassPiece}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := itemStatus(db, tt.id, store, frags, pcs)
			if err != nil {
				t.Fatalf("itemStatus() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("itemStatus() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
