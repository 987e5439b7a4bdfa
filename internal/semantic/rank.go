package semantic

import (
	"math"
	"sort"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/piece"
)

// Default result sizes.
const (
	DefaultLimitFragments = 6
	DefaultLimitPieces    = 3
)

// Options control a retrieval. A zero limit selects the default; a negative
// limit returns nothing for that class. MinScore drops results scoring
// below it (zero keeps only non-negative scores).
type Options struct {
	LimitFragments int
	LimitPieces    int
	FilterPieceIDs []int // Restrict to these pieces; nil means all, empty means none
	MinScore       float64
}

func (o Options) limits() (fragments, pieces int) {
	return resolveLimit(o.LimitFragments, DefaultLimitFragments), resolveLimit(o.LimitPieces, DefaultLimitPieces)
}

// ExplicitLimit converts a limit the caller stated outright into an Options
// limit, so that an explicit zero returns nothing rather than the default.
func ExplicitLimit(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func resolveLimit(n, def int) int {
	switch {
	case n == 0:
		return def
	case n < 0:
		return 0
	}
	return n
}

// ScoredFragment is a retrieved fragment and its similarity to the query.
type ScoredFragment struct {
	Fragment piece.Fragment `json:"fragment"`
	Score    float64        `json:"score"`
}

// ScoredPiece is a retrieved piece and its similarity to the query.
type ScoredPiece struct {
	Piece piece.Piece `json:"piece"`
	Score float64     `json:"score"`
}

// Result holds both classes of results, best first.
type Result struct {
	Fragments []ScoredFragment `json:"fragments"`
	Pieces    []ScoredPiece    `json:"pieces"`
}

// EmptyResult returns a result with no matches.
func EmptyResult() Result {
	return Result{Fragments: []ScoredFragment{}, Pieces: []ScoredPiece{}}
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction,
// and 0 if either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}

// cosine scores a stored vector against the query using precomputed norms.
func cosine(q embedding.QueryVector, v *LoadedVector) float64 {
	if len(q.Vector) != len(v.Embedding) {
		return 0
	}
	denominator := q.Norm * v.Norm
	if denominator == 0 {
		return 0
	}

	var dot float64
	for i, x := range q.Vector {
		dot += float64(x) * float64(v.Embedding[i])
	}
	return dot / denominator
}

// scored is a candidate record with its score.
type scored struct {
	vec   *LoadedVector
	score float64
}

// rank scores every candidate allowed by the filter, drops those below
// minScore, sorts by score (highest first, ties by ascending id) and
// keeps the first limit.
func rank(q embedding.QueryVector, candidates []LoadedVector, allow map[int]bool, minScore float64, limit int) []scored {
	if limit <= 0 {
		return nil
	}

	results := make([]scored, 0, len(candidates))
	for i := range candidates {
		v := &candidates[i]
		if allow != nil && !allow[v.PieceID] {
			continue
		}
		if s := cosine(q, v); s >= minScore {
			results = append(results, scored{vec: v, score: s})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].vec.ID < results[j].vec.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Retrieve ranks fragments and pieces independently against the query and
// rehydrates the survivors from the corpus maps. Records whose fragment or
// piece is no longer in the corpus are dropped without error.
func Retrieve(q embedding.QueryVector, store *LoadedStore, fragments map[string]piece.Fragment, pieces map[string]piece.Piece, opts Options) Result {
	result := EmptyResult()
	if store == nil {
		return result
	}

	var allow map[int]bool
	if opts.FilterPieceIDs != nil {
		allow = make(map[int]bool, len(opts.FilterPieceIDs))
		for _, id := range opts.FilterPieceIDs {
			allow[id] = true
		}
	}
	limitFragments, limitPieces := opts.limits()

	for _, s := range rank(q, store.Fragments, allow, opts.MinScore, limitFragments) {
		f, ok := fragments[s.vec.ID]
		if !ok {
			continue
		}
		result.Fragments = append(result.Fragments, ScoredFragment{Fragment: f, Score: s.score})
	}

	for _, s := range rank(q, store.PieceEmbeddings, allow, opts.MinScore, limitPieces) {
		p, ok := pieces[s.vec.PieceSlug]
		if !ok {
			continue
		}
		result.Pieces = append(result.Pieces, ScoredPiece{Piece: p, Score: s.score})
	}

	return result
}
