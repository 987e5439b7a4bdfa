// Package main provides the pieces CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/logger"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
	"github.com/tacticalblog/pieces/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	rootFlag    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()

	if err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pieces",
	Short: "Fragment retrieval for a personal publishing archive",
	Long: `pieces reads the markdown archive, splits each piece into fragments,
embeds fragments and whole pieces with an external embedding model, and
answers similarity queries against the persisted embedding store.

The store is built offline with 'pieces embed' and served read-only by
'pieces search', 'pieces ask' and 'pieces serve'.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Archive root (default: $PIECES_ROOT, config root, or current directory)")
	rootCmd.Version = Version
}

// setup loads the global config, initializes logging and reads .env files
// from the archive root before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger.Init(level, cfg.Log.Format)

	// Existing environment variables win over .env values.
	if root, err := config.ResolveRoot(rootFlag, cfg); err == nil {
		_ = godotenv.Load(filepath.Join(root, ".env.local"))
		_ = godotenv.Load(filepath.Join(root, ".env"))
	}
	return nil
}

// mustLoadConfig returns the cached global config, exits on error.
func mustLoadConfig() *config.GlobalConfig {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustResolveRoot returns the archive root, exits on error.
func mustResolveRoot(cfg *config.GlobalConfig) string {
	root, err := config.ResolveRoot(rootFlag, cfg)
	if err != nil {
		exitWithError(ExitConfigError, "resolving archive root: %v", err)
	}
	return root
}

// mustListPieces reads and validates the whole corpus, exits on error.
func mustListPieces(ctx context.Context, root string, cfg *config.GlobalConfig) []piece.Piece {
	pieces, err := piece.NewStore(config.ContentPath(root, cfg)).List(ctx)
	if err != nil {
		exitWithError(exitCodeFor(err), "loading pieces: %v", err)
	}
	return pieces
}

// mustProvider builds the configured embedding provider, exits on error.
// A missing credential exits here, before any work starts.
func mustProvider(cfg *config.GlobalConfig) embedding.Provider {
	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		exitWithError(exitCodeFor(err), "configuring embedding provider: %v", err)
	}
	return provider
}

// mustValidateOllama checks that a local Ollama provider is running and has
// its model. Hosted providers are not checked.
func mustValidateOllama(ctx context.Context, provider embedding.Provider) {
	ollama, ok := embedding.Unwrap(provider).(*embedding.OllamaProvider)
	if !ok {
		return
	}
	if err := ollama.IsAvailable(ctx); err != nil {
		exitWithError(ExitProviderError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}
	hasModel, err := ollama.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitConfigError, "embedding model %s not found\n\nRun 'ollama pull %s' to download it",
			ollama.ModelName(), ollama.ModelName())
	}
}

// mustOpenDatabase opens the embedding metadata database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string, cfg *config.GlobalConfig) *storage.DB {
	db, err := storage.OpenDB(config.MetadataDBPath(root, cfg))
	if err != nil {
		exitWithError(ExitError, "opening metadata database: %v", err)
	}
	return db
}

// newService wires the retrieval service for the archive at root.
func newService(root string, cfg *config.GlobalConfig, embedder semantic.QueryEmbedder) *semantic.Service {
	loader := semantic.NewLoader(
		config.StorePath(root, cfg),
		piece.NewStore(config.ContentPath(root, cfg)),
		cfg.FragmentMinLength,
	)
	return semantic.NewService(loader, embedder)
}
