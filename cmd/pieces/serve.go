package main

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/logger"
	"github.com/tacticalblog/pieces/internal/semantic"
	"github.com/tacticalblog/pieces/internal/server"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, "+config.DefaultServerAddr+")")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the archive and retrieval over HTTP",
	Long: `Serve the piece listing and fragment retrieval as a JSON API:

  GET  /api/pieces          list pieces
  GET  /api/pieces/:slug    one piece with its body
  POST /api/retrieve        {"query": "...", "limitFragments": 6, "limitPieces": 3}

The embedding store is loaded on the first retrieval. Until it exists, or
while the embedding credential is missing, retrieval answers 503 and the
listing keeps working.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// unprovisionedEmbedder fails every query with the error that kept the
// provider from being built.
type unprovisionedEmbedder struct {
	err error
}

func (u unprovisionedEmbedder) Embed(ctx context.Context, text string) (embedding.QueryVector, error) {
	return embedding.QueryVector{}, u.err
}

// serveEmbedder builds the query embedder for the server. A missing
// credential is reported per request instead of preventing startup.
func serveEmbedder(cfg *config.GlobalConfig) semantic.QueryEmbedder {
	provider, err := embedding.NewProvider(cfg.Embedding)
	if errors.Is(err, embedding.ErrMissingCredential) {
		logger.Warnw("embedding credential missing, retrieval is unavailable", "error", err)
		return unprovisionedEmbedder{err: err}
	}
	if err != nil {
		exitWithError(exitCodeFor(err), "configuring embedding provider: %v", err)
	}
	return embedding.NewQueryEmbedder(provider)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)
	svc := newService(root, cfg, serveEmbedder(cfg))

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	mode := cfg.Server.Mode
	if verbose {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	storePath := config.StorePath(root, cfg)
	if !semantic.Exists(storePath) {
		logger.Warnw("embedding store not found, retrieval is unavailable until 'pieces embed' runs",
			"path", storePath)
	}

	return server.Run(cmd.Context(), addr, server.New(svc))
}
