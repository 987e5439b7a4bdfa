package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/logger"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
)

var (
	noProgress bool
	forceEmbed bool
)

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	embedCmd.Flags().BoolVar(&forceEmbed, "force", false, "Discard the existing store and re-embed everything")
}

// EmbedResult is the response for the embed command.
type EmbedResult struct {
	Status            string  `json:"status"`
	FragmentsEmbedded int     `json:"fragments_embedded"`
	PiecesEmbedded    int     `json:"pieces_embedded"`
	FragmentsReused   int     `json:"fragments_reused"`
	PiecesReused      int     `json:"pieces_reused"`
	Batches           int     `json:"batches"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Model             string  `json:"model"`
	Dimensions        int     `json:"dimensions"`
	StorePath         string  `json:"store_path"`
	StoreSizeBytes    int64   `json:"store_size_bytes"`
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Build or update the embedding store",
	Long: `Fragment every piece in the archive and embed the fragments and pieces
that the embedding store does not yet contain.

Existing vectors are reused unless --force is given. The store is written
only after every batch succeeds; a provider failure leaves the previous
store untouched.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)
	provider := mustProvider(cfg)
	mustValidateOllama(ctx, provider)

	pieces := mustListPieces(ctx, root, cfg)
	fragments := piece.FragmentAll(pieces, cfg.FragmentMinLength)

	storePath := config.StorePath(root, cfg)
	var existing *semantic.Store
	if !forceEmbed {
		existing = mustReadExistingStore(storePath)
	}

	db := mustOpenDatabase(root, cfg)
	defer db.Close()

	builder := semantic.NewBuilder(provider, db)
	builder.SetBatchSize(cfg.Embedding.BatchSize)
	showProgress := humanOutput && !noProgress
	if showProgress {
		builder.SetProgressReporter(semantic.ProgressFunc(printProgress))
		fmt.Fprintf(os.Stderr, "Embedding %d pieces (%d fragments)...\n", len(pieces), len(fragments))
	}

	store, stats, err := builder.Build(ctx, pieces, fragments, semantic.BuildOptions{
		Force:    forceEmbed,
		Existing: existing,
	})
	if showProgress {
		fmt.Fprintf(os.Stderr, "\r%*s\r", progressLineClearWidth, "")
	}
	if err != nil {
		exitWithError(exitCodeFor(err), "building embedding store: %v", err)
	}

	if err := store.Save(storePath); err != nil {
		exitWithError(ExitError, "saving embedding store: %v", err)
	}
	if err := builder.Commit(); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	logger.Infow("saved embeddings", "path", storePath,
		"fragments", len(store.Fragments), "pieces", len(store.PieceEmbeddings))

	// Non-fatal if it fails
	if size, err := semantic.StoreSize(storePath); err == nil {
		stats.StoreSizeBytes = size
	} else if humanOutput {
		fmt.Fprintf(os.Stderr, "Warning: could not determine store size: %v\n", err)
	}

	outputEmbedResults(store, stats, storePath)
	return nil
}

// mustReadExistingStore returns the store to extend, or nil when none exists yet.
func mustReadExistingStore(path string) *semantic.Store {
	existing, err := semantic.ReadStore(path)
	if errors.Is(err, semantic.ErrStoreMissing) {
		return nil
	}
	if err != nil {
		exitWithError(ExitDataError, "%v (rebuild with --force)", err)
	}
	if err := semantic.CheckVersion(existing.Version); err != nil {
		exitWithError(ExitDataError, "%v (rebuild with --force)", err)
	}
	if err := existing.Validate(); err != nil {
		exitWithError(ExitDataError, "%v (rebuild with --force)", err)
	}
	return existing
}

// outputEmbedResults outputs the build statistics in the appropriate format.
func outputEmbedResults(store *semantic.Store, stats *semantic.BuildStats, storePath string) {
	if humanOutput {
		fmt.Printf("Embedding complete:\n")
		fmt.Printf("  Fragments embedded: %d (%d reused)\n", stats.FragmentsEmbedded, stats.FragmentsReused)
		fmt.Printf("  Pieces embedded: %d (%d reused)\n", stats.PiecesEmbedded, stats.PiecesReused)
		fmt.Printf("  Batches: %d\n", stats.Batches)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Model: %s (%d dimensions)\n", store.Model, store.Dimensions)
		fmt.Printf("  Store: %s (%s)\n", storePath, formatBytes(stats.StoreSizeBytes))
		return
	}
	outputJSON(EmbedResult{
		Status:            "complete",
		FragmentsEmbedded: stats.FragmentsEmbedded,
		PiecesEmbedded:    stats.PiecesEmbedded,
		FragmentsReused:   stats.FragmentsReused,
		PiecesReused:      stats.PiecesReused,
		Batches:           stats.Batches,
		DurationSeconds:   stats.Duration.Seconds(),
		Model:             store.Model,
		Dimensions:        store.Dimensions,
		StorePath:         storePath,
		StoreSizeBytes:    stats.StoreSizeBytes,
	})
}
