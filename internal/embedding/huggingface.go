package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

const (
	// DefaultHuggingFaceURL is the hosted inference API.
	DefaultHuggingFaceURL = "https://api-inference.huggingface.co"

	// DefaultHuggingFaceModel is the model the published store is built with.
	DefaultHuggingFaceModel = "nvidia/NV-Embed-v2"
)

// HuggingFaceProvider calls the feature-extraction pipeline of the
// Hugging Face inference API.
type HuggingFaceProvider struct {
	baseURL    string
	model      string
	token      string
	dimensions atomic.Int64
	client     *http.Client
}

// NewHuggingFaceProvider creates a provider authenticated with token.
// Returns ErrMissingCredential if token is empty.
func NewHuggingFaceProvider(token string, opts ...Option) (*HuggingFaceProvider, error) {
	if strings.TrimSpace(token) == "" {
		return nil, missingCredential("huggingface", "HF_TOKEN")
	}
	o := newClientOptions(DefaultHuggingFaceURL, DefaultHuggingFaceModel, opts)
	p := &HuggingFaceProvider{
		baseURL: strings.TrimRight(o.baseURL, "/"),
		model:   o.model,
		token:   token,
		client:  o.client,
	}
	p.dimensions.Store(int64(o.dimensions))
	return p, nil
}

func (p *HuggingFaceProvider) endpoint() string {
	return fmt.Sprintf("%s/models/%s/pipeline/feature-extraction", p.baseURL, p.model)
}

// Embed generates an embedding for a single text.
func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	if len(out) != 1 {
		return Embedding{}, &ProviderError{Provider: "huggingface", Message: fmt.Sprintf("expected 1 vector, got %d", len(out))}
	}
	return out[0], nil
}

// EmbedBatch sends all texts in one request. The number of returned
// embeddings is whatever the API returned; callers check it.
func (p *HuggingFaceProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(hfRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "huggingface", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "huggingface", StatusCode: resp.StatusCode, Message: hfErrorMessage(formatErrorBody(resp.Body))}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	vectors, err := parseFeatureExtraction(raw)
	if err != nil {
		return nil, err
	}

	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		if err := checkDimensions(&p.dimensions, len(v)); err != nil {
			return nil, err
		}
		out[i] = Embedding{Vector: v}
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *HuggingFaceProvider) ModelName() string {
	return p.model
}

// Dimensions returns the vector dimensions, or 0 before the first response.
func (p *HuggingFaceProvider) Dimensions() int {
	return int(p.dimensions.Load())
}

type hfRequest struct {
	Inputs []string `json:"inputs"`
}

// parseFeatureExtraction accepts either a list of vectors or a single
// bare vector, which the API returns for some single-input requests.
func parseFeatureExtraction(raw json.RawMessage) ([][]float32, error) {
	var batch [][]float32
	if err := json.Unmarshal(raw, &batch); err == nil {
		return batch, nil
	}
	var single []float32
	if err := json.Unmarshal(raw, &single); err == nil {
		return [][]float32{single}, nil
	}
	return nil, &ProviderError{Provider: "huggingface", Message: "unexpected feature-extraction response shape"}
}

// hfErrorMessage extracts the "error" field from an API error body.
func hfErrorMessage(body string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return body
}
