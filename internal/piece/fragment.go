package piece

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultFragmentMinLength is the shortest block, in characters, kept as a fragment.
const DefaultFragmentMinLength = 48

// blankLineRun matches two or more consecutive newlines.
var blankLineRun = regexp.MustCompile(`\n{2,}`)

// Fragment is a paragraph-sized slice of a piece, the unit of fine-grained retrieval.
type Fragment struct {
	ID         string `json:"id"`
	PieceID    int    `json:"pieceId"`
	PieceTitle string `json:"pieceTitle"`
	PieceSlug  string `json:"pieceSlug"`
	Order      int    `json:"order"` // 1-based among kept blocks
	Text       string `json:"text"`
	WordCount  int    `json:"wordCount"`
}

// FragmentID formats the identifier of the order-th fragment of a piece.
func FragmentID(pieceID, order int) string {
	return fmt.Sprintf("piece-%03d-fragment-%03d", pieceID, order)
}

// FragmentPiece splits the body on blank-line runs and keeps blocks of at
// least minLength characters. Dropped blocks do not consume an order number.
// A non-positive minLength selects DefaultFragmentMinLength.
func FragmentPiece(p Piece, minLength int) []Fragment {
	if minLength <= 0 {
		minLength = DefaultFragmentMinLength
	}

	body := strings.ReplaceAll(p.Content, "\r\n", "\n")
	var fragments []Fragment
	for _, block := range blankLineRun.Split(body, -1) {
		text := strings.TrimSpace(block)
		if runeLen(text) < minLength {
			continue
		}
		order := len(fragments) + 1
		fragments = append(fragments, Fragment{
			ID:         FragmentID(p.ID, order),
			PieceID:    p.ID,
			PieceTitle: p.Title,
			PieceSlug:  p.Slug,
			Order:      order,
			Text:       text,
			WordCount:  CountWords(text),
		})
	}
	return fragments
}

// FragmentAll fragments every piece, preserving piece order.
func FragmentAll(pieces []Piece, minLength int) []Fragment {
	var all []Fragment
	for _, p := range pieces {
		all = append(all, FragmentPiece(p, minLength)...)
	}
	return all
}
