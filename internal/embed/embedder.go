// Package embed wraps the opaque image embedding model: fetching candidate
// bytes, producing fixed-length normalized vectors, and caching by content
// identity.
package embed

import "context"

// Embedder converts image bytes into a fixed-length normalized vector. The
// model itself is opaque; implementations wrap an external service.
type Embedder interface {
	// Embed produces the embedding for one image.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - imageBytes: raw image bytes.
	// Returns:
	//   - []float32: vector of Dimensions() length.
	//   - error: ErrUnsupportedContent (wrapped) for non-image bytes.
	Embed(ctx context.Context, imageBytes []byte) ([]float32, error)

	// Dimensions returns the fixed vector length D.
	// Parameters: none.
	// Returns:
	//   - int: embedding dimension.
	Dimensions() int
}
