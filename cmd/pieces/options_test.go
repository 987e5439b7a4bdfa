package main

import (
	"reflect"
	"testing"

	"github.com/tacticalblog/pieces/internal/semantic"
)

func TestAskOptions(t *testing.T) {
	defer func(f, p, id int, min float64) {
		askFragments, askPieces, askPieceID, askMinScore = f, p, id, min
	}(askFragments, askPieces, askPieceID, askMinScore)

	askFragments, askPieces, askPieceID, askMinScore = 4, 2, 0, defaultAskMinScore
	got := askOptions()
	want := semantic.Options{LimitFragments: 4, LimitPieces: 2, MinScore: 0.1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("askOptions() = %+v, want %+v", got, want)
	}

	askFragments = 0
	if got := askOptions(); got.LimitFragments >= 0 {
		t.Errorf("explicit zero fragments = %d, want none", got.LimitFragments)
	}

	askPieceID = 7
	if got := askOptions(); !reflect.DeepEqual(got.FilterPieceIDs, []int{7}) {
		t.Errorf("FilterPieceIDs = %v, want [7]", got.FilterPieceIDs)
	}
}

func TestSearchOptions(t *testing.T) {
	defer func(f, p int, ids []int, min float64) {
		searchFragments, searchPieces, searchPieceIDs, searchMinScore = f, p, ids, min
	}(searchFragments, searchPieces, searchPieceIDs, searchMinScore)

	searchFragments, searchPieces, searchPieceIDs, searchMinScore = -1, 5, []int{1, 3}, 0.25
	got := searchOptions()
	want := semantic.Options{LimitFragments: -1, LimitPieces: 5, FilterPieceIDs: []int{1, 3}, MinScore: 0.25}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("searchOptions() = %+v, want %+v", got, want)
	}

	searchFragments, searchPieces, searchPieceIDs = 0, 0, nil
	got = searchOptions()
	if got.LimitFragments >= 0 || got.LimitPieces >= 0 {
		t.Errorf("explicit zero limits = %d/%d, want none", got.LimitFragments, got.LimitPieces)
	}
	if got.FilterPieceIDs != nil {
		t.Errorf("FilterPieceIDs = %v, want nil", got.FilterPieceIDs)
	}
}
