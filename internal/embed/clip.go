package embed

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/asha/decorscout/internal/domain"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/semaphore"
)

// ClipConfig holds configuration for the CLIP embedding service client.
type ClipConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	// MaxInFlight bounds concurrent model calls separately from fetch
	// concurrency; the model is GPU-bound and saturates quickly.
	MaxInFlight int
}

// ClipEmbedder calls a CLIP-style image embedding HTTP service.
type ClipEmbedder struct {
	client     *resty.Client
	model      string
	dimensions int
	sem        *semaphore.Weighted
}

// NewClipEmbedder creates a CLIP service client.
// Parameters:
//   - cfg: client configuration.
// Returns:
//   - *ClipEmbedder: initialized embedder.
func NewClipEmbedder(cfg *ClipConfig) *ClipEmbedder {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")

	inFlight := cfg.MaxInFlight
	if inFlight <= 0 {
		inFlight = 2
	}

	return &ClipEmbedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		sem:        semaphore.NewWeighted(int64(inFlight)),
	}
}

// Embedding service request/response structures.
type embedRequest struct {
	Model       string `json:"model"`
	ImageBase64 string `json:"image_base64"`
	Normalize   bool   `json:"normalize"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Detail    string    `json:"detail,omitempty"`
}

// Embed produces the embedding for one image, serialized through the
// in-flight bound.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageBytes: raw image bytes.
// Returns:
//   - []float32: normalized vector of Dimensions() length.
//   - error: ErrUnsupportedContent (wrapped) when the service rejects the
//     bytes as non-image; other errors for transport failures.
func (e *ClipEmbedder) Embed(ctx context.Context, imageBytes []byte) ([]float32, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	req := embedRequest{
		Model:       e.model,
		ImageBase64: base64.StdEncoding.EncodeToString(imageBytes),
		Normalize:   true,
	}

	var resp embedResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post("/v1/embeddings/image")
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}

	switch httpResp.StatusCode() {
	case 200:
	case 415, 422:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedContent, resp.Detail)
	default:
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding service error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding service error: status %d", httpResp.StatusCode())
	}

	if len(resp.Embedding) != e.dimensions {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, expected %d", len(resp.Embedding), e.dimensions)
	}

	return resp.Embedding, nil
}

// Dimensions returns the fixed vector length D.
// Parameters: none.
// Returns:
//   - int: embedding dimension.
func (e *ClipEmbedder) Dimensions() int {
	return e.dimensions
}
