package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tacticalblog/pieces/internal/piece"
)

var listMood string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listMood, "mood", "", "Only list pieces with this mood")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pieces in the archive",
	Long: `List every piece in the archive, pinned pieces first, then newest first.

Every document is validated; an invalid document fails the whole listing.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// filterByMood keeps pieces tagged with mood. An empty mood keeps everything.
func filterByMood(pieces []piece.Piece, mood string) []piece.Piece {
	if mood == "" {
		return pieces
	}
	var out []piece.Piece
	for _, p := range pieces {
		if p.HasMood(piece.Mood(mood)) {
			out = append(out, p)
		}
	}
	return out
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	root := mustResolveRoot(cfg)

	pieces := filterByMood(mustListPieces(cmd.Context(), root, cfg), strings.ToLower(listMood))

	summaries := make([]piece.Piece, len(pieces))
	for i, p := range pieces {
		summaries[i] = p.Summary()
	}

	if !humanOutput {
		outputJSON(summaries)
		return nil
	}

	if len(summaries) == 0 {
		fmt.Println("No pieces found")
		return nil
	}
	for _, p := range summaries {
		pin := ""
		if p.Pinned {
			pin = "  [pinned]"
		}
		fmt.Printf("#%03d  %s  %-*s  %s%s\n", p.ID, p.Date, ListTitleMaxLen,
			truncateString(p.Title, ListTitleMaxLen), p.ReadTime, pin)
	}
	fmt.Printf("\nTotal: %d pieces\n", len(summaries))
	return nil
}
