package llm

import (
	"strings"
	"testing"

	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
)

func TestBuildContextPrompt(t *testing.T) {
	result := semantic.Result{
		Pieces: []semantic.ScoredPiece{
			{Piece: piece.Piece{ID: 3, Title: "On Tempo", ReadTime: "2 min"}, Score: 0.812},
		},
		Fragments: []semantic.ScoredFragment{
			{Fragment: piece.Fragment{PieceID: 3, Order: 2, Text: "Tempo is\nthe rate   of decisions."}, Score: 0.7449},
		},
	}

	got := BuildContextPrompt("  What is tempo?  ", result)
	want := strings.Join([]string{
		"CONTEXT:",
		"[#003] On Tempo (2 min) · score 0.81",
		"",
		"[#003-F002] Tempo is the rate of decisions. · score 0.74",
		"",
		"TASK:",
		"What is tempo?",
	}, "\n")

	if got != want {
		t.Errorf("BuildContextPrompt() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildContextPrompt_FragmentsOnly(t *testing.T) {
	result := semantic.Result{
		Fragments: []semantic.ScoredFragment{
			{Fragment: piece.Fragment{PieceID: 12, Order: 1, Text: "Ground truth."}, Score: 0.5},
		},
	}

	got := BuildContextPrompt("terrain", result)
	if !strings.HasPrefix(got, "CONTEXT:\n[#012-F001] Ground truth. · score 0.50\n") {
		t.Errorf("BuildContextPrompt() = %q", got)
	}
}

func TestBuildContextPrompt_NoMatches(t *testing.T) {
	got := BuildContextPrompt("anything", semantic.EmptyResult())
	want := NoMatchesLine + "\n\nTASK:\nanything"
	if got != want {
		t.Errorf("BuildContextPrompt() = %q, want %q", got, want)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	got := BuildSystemPrompt()
	if !strings.Contains(got, "[#004-F001]") {
		t.Errorf("BuildSystemPrompt() should show the citation format, got %q", got)
	}
}

func TestRefs(t *testing.T) {
	if got := PieceRef(7); got != "[#007]" {
		t.Errorf("PieceRef(7) = %q", got)
	}
	if got := FragmentRef(7, 12); got != "[#007-F012]" {
		t.Errorf("FragmentRef(7, 12) = %q", got)
	}
}
