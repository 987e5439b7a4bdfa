// Package llm builds grounded prompts from retrieval results and streams
// completions for them.
package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tacticalblog/pieces/internal/semantic"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NoMatchesLine is used in place of CONTEXT when retrieval found nothing.
const NoMatchesLine = "No direct matches found in the archive. Answer using general knowledge, but state the gap."

// BuildSystemPrompt returns the system instruction for grounded answers.
func BuildSystemPrompt() string {
	return strings.Join([]string{
		"You are the tactical blog synthesizer.",
		"Answer concisely using the provided context fragments. When citing, reference the fragment IDs like [#004-F001].",
		"If context is insufficient, explicitly say so before offering general guidance.",
	}, " ")
}

// BuildContextPrompt formats the retrieved pieces and fragments as a
// CONTEXT block followed by the user's prompt under TASK.
func BuildContextPrompt(prompt string, result semantic.Result) string {
	var lines []string

	if len(result.Pieces) > 0 || len(result.Fragments) > 0 {
		lines = append(lines, "CONTEXT:")

		for _, sp := range result.Pieces {
			lines = append(lines, fmt.Sprintf("%s %s (%s) · score %.2f",
				PieceRef(sp.Piece.ID), sp.Piece.Title, sp.Piece.ReadTime, sp.Score))
		}

		if len(result.Fragments) > 0 {
			if len(result.Pieces) > 0 {
				lines = append(lines, "")
			}
			for _, sf := range result.Fragments {
				snippet := whitespaceRun.ReplaceAllString(sf.Fragment.Text, " ")
				lines = append(lines, fmt.Sprintf("%s %s · score %.2f",
					FragmentRef(sf.Fragment.PieceID, sf.Fragment.Order), snippet, sf.Score))
			}
		}
	} else {
		lines = append(lines, NoMatchesLine)
	}

	lines = append(lines, "", "TASK:", strings.TrimSpace(prompt))
	return strings.Join(lines, "\n")
}

// PieceRef formats a piece citation, e.g. [#003].
func PieceRef(pieceID int) string {
	return fmt.Sprintf("[#%03d]", pieceID)
}

// FragmentRef formats a fragment citation, e.g. [#003-F002].
func FragmentRef(pieceID, order int) string {
	return fmt.Sprintf("[#%03d-F%03d]", pieceID, order)
}
