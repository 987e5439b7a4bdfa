package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when a provider needs an API key that is not set.
	ErrMissingCredential = errors.New("missing embedding credential")

	// ErrProvider marks any failure reported by, or while talking to, an embedding provider.
	ErrProvider = errors.New("embedding provider error")

	// ErrEmptyQuery is returned when asked to embed blank query text.
	ErrEmptyQuery = errors.New("cannot embed empty query")
)

// ProviderError carries the message returned by an embedding provider.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 for transport failures
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap lets callers match with errors.Is(err, ErrProvider).
func (e *ProviderError) Unwrap() error {
	return ErrProvider
}

func missingCredential(provider, envKey string) error {
	if envKey == "" {
		return fmt.Errorf("%w: %s requires an API key", ErrMissingCredential, provider)
	}
	return fmt.Errorf("%w: %s is required for %s (set it in the environment or .env)", ErrMissingCredential, envKey, provider)
}
