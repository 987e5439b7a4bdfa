package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeBadRequest     = "bad_request"
	CodeNotFound       = "not_found"
	CodeNotProvisioned = "retrieval_not_provisioned"
	CodeProvider       = "embedding_provider_error"
	CodeCorpus         = "corpus_invalid"
	CodeInternal       = "internal_error"
)

type handler struct {
	retriever Retriever
}

// retrieveRequest is the body of POST /api/retrieve. Omitted fields use
// the retrieval defaults.
type retrieveRequest struct {
	Query          string   `json:"query"`
	LimitFragments *int     `json:"limitFragments"`
	LimitPieces    *int     `json:"limitPieces"`
	PieceID        *int     `json:"pieceId"`
	PieceIDs       []int    `json:"pieceIds"`
	MinScore       *float64 `json:"minScore"`
}

func (r retrieveRequest) options() semantic.Options {
	var opts semantic.Options
	if r.LimitFragments != nil {
		opts.LimitFragments = semantic.ExplicitLimit(*r.LimitFragments)
	}
	if r.LimitPieces != nil {
		opts.LimitPieces = semantic.ExplicitLimit(*r.LimitPieces)
	}
	// A present but empty pieceIds allows no pieces.
	if r.PieceIDs != nil || (r.PieceID != nil && *r.PieceID != 0) {
		opts.FilterPieceIDs = []int{}
	}
	if r.PieceID != nil && *r.PieceID != 0 {
		opts.FilterPieceIDs = append(opts.FilterPieceIDs, *r.PieceID)
	}
	opts.FilterPieceIDs = append(opts.FilterPieceIDs, r.PieceIDs...)
	if r.MinScore != nil {
		opts.MinScore = *r.MinScore
	}
	return opts
}

func (h *handler) retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": CodeBadRequest})
		return
	}

	result, err := h.retriever.RetrieveContext(c.Request.Context(), req.Query, req.options())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) listPieces(c *gin.Context) {
	pieces, err := h.retriever.Pieces(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	summaries := make([]piece.Piece, len(pieces))
	for i, p := range pieces {
		summaries[i] = p.Summary()
	}
	c.JSON(http.StatusOK, gin.H{"pieces": summaries})
}

func (h *handler) getPiece(c *gin.Context) {
	p, err := h.retriever.Piece(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"piece": p})
}

// writeError maps an error class to a status code and a stable error code.
func writeError(c *gin.Context, err error) {
	c.Error(err)

	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, semantic.ErrStoreMissing), errors.Is(err, semantic.ErrStoreEmpty),
		errors.Is(err, semantic.ErrUnsupportedVersion), errors.Is(err, embedding.ErrMissingCredential):
		status, code = http.StatusServiceUnavailable, CodeNotProvisioned
	case errors.Is(err, embedding.ErrProvider):
		status, code = http.StatusBadGateway, CodeProvider
	case errors.Is(err, piece.ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, piece.ErrInvalidDocument), errors.Is(err, piece.ErrCorpusUnavailable):
		code = CodeCorpus
	}

	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
