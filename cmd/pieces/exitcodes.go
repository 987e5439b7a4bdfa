package main

import (
	"errors"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/llm"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
)

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (missing credential, store not provisioned)
	ExitDataError     = 3 // Data error (invalid document, batch mismatch)
	ExitProviderError = 4 // Embedding or completion provider failure
	ExitStoreStale    = 6 // Embedding store is behind the corpus
)

// exitCodeFor maps an error class to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, embedding.ErrMissingCredential),
		errors.Is(err, llm.ErrMissingAPIKey),
		errors.Is(err, llm.ErrUnknownProvider),
		errors.Is(err, semantic.ErrStoreMissing),
		errors.Is(err, semantic.ErrStoreEmpty),
		errors.Is(err, semantic.ErrUnsupportedVersion),
		errors.Is(err, piece.ErrCorpusUnavailable):
		return ExitConfigError
	case errors.Is(err, piece.ErrInvalidDocument),
		errors.Is(err, semantic.ErrBatchMismatch),
		errors.Is(err, semantic.ErrDimensionMismatch),
		errors.Is(err, semantic.ErrModelMismatch):
		return ExitDataError
	case errors.Is(err, embedding.ErrProvider):
		return ExitProviderError
	}
	return ExitError
}
