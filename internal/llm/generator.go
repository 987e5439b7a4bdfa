package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the default completion model.
const DefaultModel = "gpt-4o-mini"

var (
	// ErrMissingAPIKey is returned when no completion API key is configured.
	ErrMissingAPIKey = errors.New("missing completion API key")
	// ErrUnknownProvider is returned for an unrecognised completion provider.
	ErrUnknownProvider = errors.New("unknown completion provider")
)

// Generator streams a completion for a system and user prompt.
// onToken is called with each text delta; returning an error stops the stream.
type Generator interface {
	Stream(ctx context.Context, system, user string, onToken func(string) error) error
}

// NewGenerator creates the generator for a provider name: "openai" (also the
// default when empty) or "anthropic".
func NewGenerator(provider, apiKey, model, baseURL string) (Generator, error) {
	switch provider {
	case "", "openai":
		return NewOpenAIGenerator(apiKey, model, baseURL)
	case "anthropic":
		return NewAnthropicGenerator(apiKey, model, baseURL)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

// OpenAIGenerator streams chat completions from an OpenAI-compatible API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a generator. baseURL may be empty for the
// public API.
func NewOpenAIGenerator(apiKey, model, baseURL string) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.2,
	}, nil
}

// Stream implements Generator.
func (g *OpenAIGenerator) Stream(ctx context.Context, system, user string, onToken func(string) error) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return fmt.Errorf("starting completion: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading completion: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onToken(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
}
