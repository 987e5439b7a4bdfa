package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/semantic"
)

var (
	searchFragments int
	searchPieces    int
	searchPieceIDs  []int
	searchMinScore  float64
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchFragments, "fragments", "f", semantic.DefaultLimitFragments, "Maximum fragments to return (0 for none)")
	searchCmd.Flags().IntVarP(&searchPieces, "pieces", "p", semantic.DefaultLimitPieces, "Maximum pieces to return (0 for none)")
	searchCmd.Flags().IntSliceVar(&searchPieceIDs, "piece-id", nil, "Restrict results to these piece ids (repeatable)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "Drop results scoring below this similarity")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find fragments and pieces similar to a query",
	Long: `Embed the query and rank stored fragments and pieces by cosine similarity.

Requires an embedding store built with 'pieces embed'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// searchOptions converts the command flags into retrieval options.
func searchOptions() semantic.Options {
	return semantic.Options{
		LimitFragments: semantic.ExplicitLimit(searchFragments),
		LimitPieces:    semantic.ExplicitLimit(searchPieces),
		FilterPieceIDs: searchPieceIDs,
		MinScore:       searchMinScore,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		exitWithError(ExitError, "query is required")
	}

	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)
	svc := newService(root, cfg, embedding.NewQueryEmbedder(mustProvider(cfg)))

	result, err := svc.RetrieveContext(cmd.Context(), query, searchOptions())
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		printSearchResult(query, result)
	} else {
		outputJSON(result)
	}
	return nil
}

// printSearchResult writes a ranked, human-readable listing.
func printSearchResult(query string, result semantic.Result) {
	if len(result.Fragments) == 0 && len(result.Pieces) == 0 {
		fmt.Printf("No matches for %q\n", query)
		return
	}

	if len(result.Fragments) > 0 {
		fmt.Printf("Fragments:\n")
		for i, sf := range result.Fragments {
			fmt.Printf("%2d. [%.3f] %s  %s\n", i+1, sf.Score, sf.Fragment.ID,
				truncateString(sf.Fragment.PieceTitle, SearchTitleMaxLen))
			fmt.Printf("    %s\n", truncateString(oneLine(sf.Fragment.Text), SnippetMaxLen))
		}
	}

	if len(result.Pieces) > 0 {
		if len(result.Fragments) > 0 {
			fmt.Println()
		}
		fmt.Printf("Pieces:\n")
		for i, sp := range result.Pieces {
			fmt.Printf("%2d. [%.3f] #%03d %s (%s)\n", i+1, sp.Score, sp.Piece.ID,
				truncateString(sp.Piece.Title, SearchTitleMaxLen), sp.Piece.ReadTime)
		}
	}
}
