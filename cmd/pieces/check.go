package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
	"github.com/tacticalblog/pieces/internal/storage"
)

// maxListedIDs caps the id lists included in check output.
const maxListedIDs = 10

var checkItem string

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkItem, "item", "", "Also report the stored state of one fragment id or piece slug")
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status          string      `json:"status"`
	PiecesTotal     int         `json:"pieces_total"`
	FragmentsTotal  int         `json:"fragments_total"`
	PiecesStored    int         `json:"pieces_stored"`
	FragmentsStored int         `json:"fragments_stored"`
	Missing         int         `json:"missing"`
	Changed         int         `json:"changed"`
	Orphaned        int         `json:"orphaned"`
	MissingIDs      []string    `json:"missing_ids,omitempty"`
	ChangedIDs      []string    `json:"changed_ids,omitempty"`
	OrphanedIDs     []string    `json:"orphaned_ids,omitempty"`
	Model           string      `json:"model"`
	StoreCreated    string      `json:"store_created"`
	StoreSizeBytes  int64       `json:"store_size_bytes"`
	MetadataRows    int         `json:"metadata_rows"`
	Item            *ItemStatus `json:"item,omitempty"`
	Recommendation  string      `json:"recommendation,omitempty"`
}

// ItemStatus describes one fragment or piece in the corpus, the store and
// the metadata database.
type ItemStatus struct {
	ID        string `json:"id"`
	Class     string `json:"class"`
	InCorpus  bool   `json:"in_corpus"`
	Stored    bool   `json:"stored"`
	Model     string `json:"model,omitempty"`
	IndexedAt string `json:"indexed_at,omitempty"`
	Changed   bool   `json:"changed"`
}

// metadataLookup fetches the metadata row of a single item.
// *storage.DB implements it.
type metadataLookup interface {
	GetEmbeddingMetadata(itemID, itemClass string) (*storage.EmbeddingMetadata, error)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check embedding store health",
	Long: `Compare the embedding store with the current archive.

Reports fragments and pieces that are missing from the store, items whose
text changed since they were embedded, and stored items that no longer
exist in the archive. Exits with status 6 when the store is stale.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// storeDiff is the difference between the corpus and the embedding store.
type storeDiff struct {
	missing  []string
	changed  []string
	orphaned []string
}

// itemHashes maps item ids to the hash of their current input text.
type itemHashes map[string]string

// corpusHashes hashes the text each fragment and piece would be embedded from.
func corpusHashes(pieces []piece.Piece, fragments []piece.Fragment) (frags, pcs itemHashes) {
	frags = make(itemHashes, len(fragments))
	for _, f := range fragments {
		frags[f.ID] = storage.ContentHash(semantic.InputText(f.Text))
	}
	pcs = make(itemHashes, len(pieces))
	for _, p := range pieces {
		pcs[p.Slug] = storage.ContentHash(semantic.InputText(semantic.PieceText(p)))
	}
	return frags, pcs
}

// diffClass compares one class of items. Items without metadata rows
// cannot be checked for changes and only count as present.
func diffClass(current itemHashes, stored map[string]bool, meta map[string]storage.EmbeddingMetadata, d *storeDiff) {
	for id, hash := range current {
		if !stored[id] {
			d.missing = append(d.missing, id)
			continue
		}
		if m, ok := meta[id]; ok && m.ContentHash != hash {
			d.changed = append(d.changed, id)
		}
	}
	for id := range stored {
		if _, ok := current[id]; !ok {
			d.orphaned = append(d.orphaned, id)
		}
	}
}

// diffStore compares the corpus with the store and its metadata rows.
func diffStore(pieces []piece.Piece, fragments []piece.Fragment, store *semantic.Store, fragMeta, pieceMeta map[string]storage.EmbeddingMetadata) storeDiff {
	fragHashes, pieceHashes := corpusHashes(pieces, fragments)

	var d storeDiff
	diffClass(fragHashes, store.FragmentIDs(), fragMeta, &d)
	diffClass(pieceHashes, store.PieceSlugs(), pieceMeta, &d)

	sort.Strings(d.missing)
	sort.Strings(d.changed)
	sort.Strings(d.orphaned)
	return d
}

// stale reports whether retrieval would miss or misrank current content.
// Orphaned records are dropped at query time and do not make a store stale.
func (d storeDiff) stale() bool {
	return len(d.missing) > 0 || len(d.changed) > 0
}

// itemStatus reports where a single item stands. Ids known as fragments in
// either the corpus or the store are fragments; anything else is a piece slug.
func itemStatus(db metadataLookup, id string, store *semantic.Store, frags, pcs itemHashes) (*ItemStatus, error) {
	status := &ItemStatus{ID: id, Class: storage.ClassPiece}
	current, inCorpus := pcs[id]
	stored := store.PieceSlugs()[id]
	if hash, ok := frags[id]; ok || store.FragmentIDs()[id] {
		status.Class = storage.ClassFragment
		current, inCorpus = hash, ok
		stored = store.FragmentIDs()[id]
	}
	status.InCorpus = inCorpus
	status.Stored = stored

	meta, err := db.GetEmbeddingMetadata(id, status.Class)
	if err != nil {
		return nil, fmt.Errorf("reading metadata for %s: %w", id, err)
	}
	if meta != nil {
		status.Model = meta.ModelName
		status.IndexedAt = time.Unix(meta.IndexedAt, 0).UTC().Format(time.RFC3339)
		status.Changed = inCorpus && meta.ContentHash != current
	}
	return status, nil
}

// limitIDs returns ids if there are few enough to list.
func limitIDs(ids []string) []string {
	if len(ids) == 0 || len(ids) > maxListedIDs {
		return nil
	}
	return ids
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)

	storePath := config.StorePath(root, cfg)
	store, err := semantic.ReadStore(storePath)
	if err != nil {
		if errors.Is(err, semantic.ErrStoreMissing) {
			exitWithError(ExitConfigError, "%v", err)
		}
		exitWithError(ExitDataError, "%v", err)
	}
	if err := semantic.CheckVersion(store.Version); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	pieces := mustListPieces(ctx, root, cfg)
	fragments := piece.FragmentAll(pieces, cfg.FragmentMinLength)

	db := mustOpenDatabase(root, cfg)
	defer db.Close()

	fragMeta, err := db.ListEmbeddingMetadata(storage.ClassFragment)
	if err != nil {
		exitWithError(ExitError, "reading fragment metadata: %v", err)
	}
	pieceMeta, err := db.ListEmbeddingMetadata(storage.ClassPiece)
	if err != nil {
		exitWithError(ExitError, "reading piece metadata: %v", err)
	}

	diff := diffStore(pieces, fragments, store, fragMeta, pieceMeta)

	metadataRows, err := db.CountEmbeddingMetadata("")
	if err != nil {
		exitWithError(ExitError, "counting metadata rows: %v", err)
	}

	var item *ItemStatus
	if checkItem != "" {
		frags, pcs := corpusHashes(pieces, fragments)
		if item, err = itemStatus(db, checkItem, store, frags, pcs); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	// Non-fatal if it fails
	var storeSize int64
	if size, err := semantic.StoreSize(storePath); err == nil {
		storeSize = size
	} else if humanOutput {
		fmt.Fprintf(os.Stderr, "Warning: could not determine store size: %v\n", err)
	}

	status := "healthy"
	var recommendation string
	exitCode := ExitSuccess
	switch {
	case len(diff.changed) > 0:
		status = "stale"
		recommendation = "Run 'pieces embed --force' to re-embed changed content"
		exitCode = ExitStoreStale
	case len(diff.missing) > 0:
		status = "stale"
		recommendation = "Run 'pieces embed' to update the store"
		exitCode = ExitStoreStale
	case len(diff.orphaned) > 0:
		recommendation = "Run 'pieces embed --force' to drop records for removed content"
	}

	result := CheckResult{
		Status:          status,
		PiecesTotal:     len(pieces),
		FragmentsTotal:  len(fragments),
		PiecesStored:    len(store.PieceEmbeddings),
		FragmentsStored: len(store.Fragments),
		Missing:         len(diff.missing),
		Changed:         len(diff.changed),
		Orphaned:        len(diff.orphaned),
		MissingIDs:      limitIDs(diff.missing),
		ChangedIDs:      limitIDs(diff.changed),
		OrphanedIDs:     limitIDs(diff.orphaned),
		Model:           store.Model,
		StoreCreated:    store.CreatedAt.Format(time.RFC3339),
		StoreSizeBytes:  storeSize,
		MetadataRows:    metadataRows,
		Item:            item,
		Recommendation:  recommendation,
	}

	outputCheckResults(result, exitCode)
	return nil
}

// outputCheckResults outputs the check results in the appropriate format.
func outputCheckResults(result CheckResult, exitCode int) {
	if humanOutput {
		fmt.Printf("Embedding Store Status: %s\n\n", result.Status)
		fmt.Printf("Archive:\n")
		fmt.Printf("  Pieces: %d\n", result.PiecesTotal)
		fmt.Printf("  Fragments: %d\n", result.FragmentsTotal)
		fmt.Printf("\nStore:\n")
		fmt.Printf("  Pieces: %d\n", result.PiecesStored)
		fmt.Printf("  Fragments: %d\n", result.FragmentsStored)
		fmt.Printf("  Missing: %d\n", result.Missing)
		fmt.Printf("  Changed: %d\n", result.Changed)
		fmt.Printf("  Orphaned: %d\n", result.Orphaned)
		fmt.Printf("\nStore Info:\n")
		fmt.Printf("  Model: %s\n", result.Model)
		fmt.Printf("  Created: %s\n", result.StoreCreated)
		fmt.Printf("  Size: %s\n", formatBytes(result.StoreSizeBytes))
		fmt.Printf("  Metadata rows: %d\n", result.MetadataRows)
		if it := result.Item; it != nil {
			fmt.Printf("\nItem %s (%s):\n", it.ID, it.Class)
			fmt.Printf("  In archive: %t\n", it.InCorpus)
			fmt.Printf("  Stored: %t\n", it.Stored)
			if it.IndexedAt != "" {
				fmt.Printf("  Indexed: %s with %s\n", it.IndexedAt, it.Model)
			}
			fmt.Printf("  Changed: %t\n", it.Changed)
		}
		if result.Recommendation != "" {
			fmt.Printf("\n%s\n", result.Recommendation)
		}
	} else {
		outputJSON(result)
	}

	if exitCode != ExitSuccess {
		os.Exit(exitCode)
	}
}
