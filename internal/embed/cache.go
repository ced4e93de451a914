package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder wraps an Embedder with a content-hash cache so repeated
// candidates across requests are not re-embedded. Keys are derived from the
// bytes, not the URL: URLs can point at changing content.
//
// Safe for concurrent use. Concurrent requests for the same content share
// one in-flight computation instead of racing duplicate model calls.
type CachedEmbedder struct {
	inner Embedder
	cache *gocache.Cache

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done   chan struct{}
	vector []float32
	err    error
}

// NewCachedEmbedder wraps inner with a content-hash cache.
// Parameters:
//   - inner: embedder to wrap.
//   - ttl: how long cached vectors live; 0 means no expiry.
// Returns:
//   - *CachedEmbedder: caching wrapper.
func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &CachedEmbedder{
		inner:    inner,
		cache:    gocache.New(ttl, 10*time.Minute),
		inflight: make(map[string]*inflightCall),
	}
}

// ContentHash returns the cache key for image bytes.
// Parameters:
//   - imageBytes: raw image bytes.
// Returns:
//   - string: hex-encoded SHA-256 of the bytes.
func ContentHash(imageBytes []byte) string {
	sum := sha256.Sum256(imageBytes)
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for the content hash, or computes it once
// and caches it. Failed computations are not cached, so a transient service
// error does not poison the key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageBytes: raw image bytes.
// Returns:
//   - []float32: embedding vector.
//   - error: non-nil if the underlying embedder fails.
func (c *CachedEmbedder) Embed(ctx context.Context, imageBytes []byte) ([]float32, error) {
	key := ContentHash(imageBytes)

	if cached, found := c.cache.Get(key); found {
		return cached.([]float32), nil
	}

	c.mu.Lock()
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.vector, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.vector, call.err = c.inner.Embed(ctx, imageBytes)
	if call.err == nil {
		c.cache.Set(key, call.vector, gocache.DefaultExpiration)
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(call.done)

	return call.vector, call.err
}

// Dimensions returns the wrapped embedder's vector length.
// Parameters: none.
// Returns:
//   - int: embedding dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}
