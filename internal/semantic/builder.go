package semantic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/logger"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/storage"
)

const (
	// DefaultBatchSize is the number of texts sent per provider request.
	DefaultBatchSize = 16

	// MaxInputLength is the maximum text length (in characters) sent to the
	// provider for any stored item.
	MaxInputLength = 2000

	// PieceBodyPrefix is how much of a piece body goes into its piece-level text.
	PieceBodyPrefix = 1200
)

// ProgressReporter receives progress updates during a build.
type ProgressReporter interface {
	// OnProgress is called with the number of items embedded so far.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// MetadataStore records which text each stored vector was computed from.
// *storage.DB implements it.
type MetadataStore interface {
	ClearEmbeddingMetadata() error
	SaveEmbeddingMetadataBatch(metas []storage.EmbeddingMetadata) error
}

// BuildOptions control a single build.
type BuildOptions struct {
	// Force discards Existing and re-embeds everything.
	Force bool
	// Existing is the previously saved store, or nil.
	Existing *Store
}

// Builder extends an embedding store with vectors for new fragments and pieces.
type Builder struct {
	provider  embedding.Provider
	metadata  MetadataStore
	batchSize int
	progress  ProgressReporter

	// Metadata from the last successful Build, written by Commit.
	pendingMeta []storage.EmbeddingMetadata
	clearMeta   bool
}

// NewBuilder creates a new store builder. metadata may be nil.
func NewBuilder(provider embedding.Provider, metadata MetadataStore) *Builder {
	return &Builder{
		provider:  provider,
		metadata:  metadata,
		batchSize: DefaultBatchSize,
	}
}

// SetBatchSize sets the number of texts per provider request.
func (b *Builder) SetBatchSize(n int) {
	if n > 0 {
		b.batchSize = n
	}
}

// SetProgressReporter sets the progress reporter for the builder.
func (b *Builder) SetProgressReporter(reporter ProgressReporter) {
	b.progress = reporter
}

// pendingItem is one text waiting to be embedded.
type pendingItem struct {
	record Record
	class  string
	text   string
}

// PieceText is the text embedded for a whole piece: title, excerpt and the
// start of the body.
func PieceText(p piece.Piece) string {
	return strings.Join([]string{p.Title, p.Excerpt, embedding.Truncate(p.Content, PieceBodyPrefix)}, "\n\n")
}

// InputText is the exact text sent to the provider for an item.
func InputText(text string) string {
	return embedding.Truncate(text, MaxInputLength)
}

// Build embeds every fragment id and piece slug missing from the existing
// store and returns the merged store. Nothing is returned until every batch
// has succeeded, so a provider failure never yields a partial store.
// Metadata rows for the new vectors are held until Commit.
func (b *Builder) Build(ctx context.Context, pieces []piece.Piece, fragments []piece.Fragment, opts BuildOptions) (*Store, *BuildStats, error) {
	startTime := time.Now()
	model := b.provider.ModelName()
	b.pendingMeta, b.clearMeta = nil, false

	existing := opts.Existing
	if opts.Force || existing == nil {
		existing = NewStore(model, 0)
	}
	if !opts.Force && existing.Model != "" && existing.Model != model && len(existing.Fragments)+len(existing.PieceEmbeddings) > 0 {
		return nil, nil, fmt.Errorf("%w: store has %q, provider is %q (rebuild with --force)", ErrModelMismatch, existing.Model, model)
	}

	stats := &BuildStats{}
	haveFragments := existing.FragmentIDs()
	havePieces := existing.PieceSlugs()

	var pending []pendingItem
	for _, f := range fragments {
		if haveFragments[f.ID] {
			stats.FragmentsReused++
			continue
		}
		pending = append(pending, pendingItem{
			record: Record{
				ID:            f.ID,
				PieceID:       f.PieceID,
				PieceSlug:     f.PieceSlug,
				PieceTitle:    f.PieceTitle,
				FragmentOrder: f.Order,
			},
			class: storage.ClassFragment,
			text:  f.Text,
		})
	}
	for _, p := range pieces {
		if havePieces[p.Slug] {
			stats.PiecesReused++
			continue
		}
		pending = append(pending, pendingItem{
			record: Record{
				ID:         p.Slug,
				PieceID:    p.ID,
				PieceSlug:  p.Slug,
				PieceTitle: p.Title,
			},
			class: storage.ClassPiece,
			text:  PieceText(p),
		})
	}

	if len(pending) > 0 {
		logger.Infow("embedding items",
			"count", len(pending),
			"batches", (len(pending)+b.batchSize-1)/b.batchSize,
			"model", model)
	}

	embedded, err := b.embedItems(ctx, pending, stats)
	if err != nil {
		return nil, nil, err
	}

	dims := existing.Dimensions
	if len(embedded) > 0 {
		dims = len(embedded[0].record.Embedding)
	}
	if existing.Dimensions != 0 && dims != existing.Dimensions && len(existing.Fragments)+len(existing.PieceEmbeddings) > 0 {
		return nil, nil, fmt.Errorf("%w: new vectors have %d dimensions, store has %d (rebuild with --force)",
			ErrDimensionMismatch, dims, existing.Dimensions)
	}

	var newFragments, newPieces []Record
	for _, item := range embedded {
		if len(item.record.Embedding) != dims {
			return nil, nil, fmt.Errorf("%w: %s has %d dimensions, want %d",
				ErrDimensionMismatch, item.record.ID, len(item.record.Embedding), dims)
		}
		if item.class == storage.ClassFragment {
			newFragments = append(newFragments, item.record)
			stats.FragmentsEmbedded++
		} else {
			newPieces = append(newPieces, item.record)
			stats.PiecesEmbedded++
		}
	}

	store := &Store{
		Version:         VersionTag(model),
		Model:           model,
		CreatedAt:       time.Now().UTC(),
		Dimensions:      dims,
		Fragments:       mergeRecords(existing.Fragments, newFragments),
		PieceEmbeddings: mergeRecords(existing.PieceEmbeddings, newPieces),
	}

	b.pendingMeta = metadataRows(embedded, model)
	b.clearMeta = opts.Force

	stats.Duration = time.Since(startTime)
	return store, stats, nil
}

// embedItems sends pending items to the provider in fixed-size batches.
func (b *Builder) embedItems(ctx context.Context, items []pendingItem, stats *BuildStats) ([]pendingItem, error) {
	total := len(items)
	done := 0

	for start := 0; start < total; start += b.batchSize {
		// Check for cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := min(start+b.batchSize, total)
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = InputText(item.text)
		}

		vectors, err := b.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d: %w", stats.Batches+1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: received %d, expected %d", ErrBatchMismatch, len(vectors), len(batch))
		}

		for i := range batch {
			batch[i].record.Embedding = vectors[i].Vector
			batch[i].text = texts[i]
		}

		stats.Batches++
		done += len(batch)
		logger.Debugw("batch complete", "batch", stats.Batches, "items", done, "total", total)

		if b.progress != nil {
			b.progress.OnProgress(done, total)
		}
	}

	return items, nil
}

// Commit records the metadata of the last successful Build. Call it once
// the returned store has been saved, so rows never describe vectors that
// were not written.
func (b *Builder) Commit() error {
	if b.metadata == nil {
		return nil
	}
	if b.clearMeta {
		if err := b.metadata.ClearEmbeddingMetadata(); err != nil {
			return fmt.Errorf("clearing embedding metadata: %w", err)
		}
	}
	if len(b.pendingMeta) > 0 {
		if err := b.metadata.SaveEmbeddingMetadataBatch(b.pendingMeta); err != nil {
			return fmt.Errorf("saving embedding metadata: %w", err)
		}
	}
	b.pendingMeta, b.clearMeta = nil, false
	return nil
}

func metadataRows(items []pendingItem, model string) []storage.EmbeddingMetadata {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().Unix()
	metas := make([]storage.EmbeddingMetadata, len(items))
	for i, item := range items {
		metas[i] = storage.EmbeddingMetadata{
			ItemID:      item.record.ID,
			ItemClass:   item.class,
			ModelName:   model,
			ContentHash: storage.ContentHash(item.text),
			IndexedAt:   now,
		}
	}
	return metas
}

// mergeRecords overlays fresh on existing by id (fresh wins) and sorts by id.
func mergeRecords(existing, fresh []Record) []Record {
	byID := make(map[string]Record, len(existing)+len(fresh))
	for _, r := range existing {
		byID[r.ID] = r
	}
	for _, r := range fresh {
		byID[r.ID] = r
	}

	merged := make([]Record, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}
