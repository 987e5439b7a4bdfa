package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/config"
	"github.com/tacticalblog/pieces/internal/piece"
)

var (
	fragmentsMinLength int
	fragmentsPiece     string
)

func init() {
	rootCmd.AddCommand(fragmentsCmd)

	fragmentsCmd.Flags().IntVar(&fragmentsMinLength, "min-length", 0, "Minimum fragment length in characters (default from config)")
	fragmentsCmd.Flags().StringVar(&fragmentsPiece, "piece", "", "Only fragment the piece with this slug")
}

var fragmentsCmd = &cobra.Command{
	Use:   "fragments",
	Short: "Show how pieces split into fragments",
	Long: `Split pieces into fragments exactly as 'pieces embed' does, without
calling the embedding provider.`,
	Args: cobra.NoArgs,
	RunE: runFragments,
}

func runFragments(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)

	minLength := fragmentsMinLength
	if minLength <= 0 {
		minLength = cfg.FragmentMinLength
	}

	var pieces []piece.Piece
	if fragmentsPiece != "" {
		p, err := piece.NewStore(config.ContentPath(root, cfg)).Get(cmd.Context(), fragmentsPiece)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		pieces = []piece.Piece{p}
	} else {
		pieces = mustListPieces(cmd.Context(), root, cfg)
	}

	fragments := piece.FragmentAll(pieces, minLength)
	if fragments == nil {
		fragments = []piece.Fragment{}
	}

	if !humanOutput {
		outputJSON(fragments)
		return nil
	}

	for _, f := range fragments {
		fmt.Printf("%s  (%d words)\n", f.ID, f.WordCount)
		fmt.Printf("    %s\n", truncateString(oneLine(f.Text), SnippetMaxLen))
	}
	fmt.Printf("\nTotal: %d fragments from %d pieces\n", len(fragments), len(pieces))
	return nil
}
