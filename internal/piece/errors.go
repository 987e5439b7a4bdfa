package piece

import (
	"errors"
	"fmt"
)

// Errors returned by the piece store.
var (
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrNotFound          = errors.New("piece not found")
)

// InvalidDocumentError names the offending field and source file.
type InvalidDocumentError struct {
	File   string
	Field  string
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid document %s: %s", e.File, e.Reason)
	}
	msg := fmt.Sprintf("invalid or missing %q in %s", e.Field, e.File)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidDocument).
func (e *InvalidDocumentError) Unwrap() error {
	return ErrInvalidDocument
}
