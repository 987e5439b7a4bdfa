// Package semantic builds, loads and ranks the fragment and piece embedding store.
package semantic

import "time"

// Record is one stored vector. For piece-level records ID is the piece slug
// and FragmentOrder is 0.
type Record struct {
	ID            string    `json:"id"`
	PieceID       int       `json:"pieceId"`
	PieceSlug     string    `json:"pieceSlug"`
	PieceTitle    string    `json:"pieceTitle"`
	FragmentOrder int       `json:"fragmentOrder"`
	Embedding     []float32 `json:"embedding"`
}

// Store is the persisted embedding payload shared by the offline builder
// and the serving path.
type Store struct {
	// Version tags the file format, e.g. "nv-embed-v2::pieces-v1".
	// Check with CheckVersion when loading.
	Version string `json:"version"`

	Model      string    `json:"model"`      // e.g., "nvidia/NV-Embed-v2"
	CreatedAt  time.Time `json:"createdAt"`  // When the store was last written
	Dimensions int       `json:"dimensions"` // Width of every vector

	Fragments       []Record `json:"fragments"`
	PieceEmbeddings []Record `json:"pieceEmbeddings"`
}

// BuildStats contains statistics from a store build.
type BuildStats struct {
	FragmentsEmbedded int           `json:"fragments_embedded"`
	PiecesEmbedded    int           `json:"pieces_embedded"`
	FragmentsReused   int           `json:"fragments_reused"`
	PiecesReused      int           `json:"pieces_reused"`
	Batches           int           `json:"batches"`
	Duration          time.Duration `json:"duration"`
	StoreSizeBytes    int64         `json:"store_size_bytes"`
}
