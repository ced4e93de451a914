package embed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/asha/decorscout/internal/domain"
	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"
)

// FetcherConfig holds configuration for the image fetcher.
type FetcherConfig struct {
	Timeout time.Duration
	// RequestsPerSecond limits fetches per remote host so provider CDNs
	// don't start throttling mid-batch.
	RequestsPerSecond float64
	Burst             int
	MaxBytes          int64
}

// Fetcher downloads candidate image bytes with a bounded timeout, per-host
// rate limiting, and content validation.
type Fetcher struct {
	client   *resty.Client
	maxBytes int64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

// NewFetcher creates an image fetcher.
// Parameters:
//   - cfg: fetcher configuration; nil uses defaults.
// Returns:
//   - *Fetcher: initialized fetcher.
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	timeout := 10 * time.Second
	perHost := rate.Limit(4)
	burst := 4
	maxBytes := int64(15 << 20)
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		if cfg.RequestsPerSecond > 0 {
			perHost = rate.Limit(cfg.RequestsPerSecond)
		}
		if cfg.Burst > 0 {
			burst = cfg.Burst
		}
		if cfg.MaxBytes > 0 {
			maxBytes = cfg.MaxBytes
		}
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", browserUserAgent)

	return &Fetcher{
		client:   client,
		maxBytes: maxBytes,
		limiters: make(map[string]*rate.Limiter),
		perHost:  perHost,
		burst:    burst,
	}
}

// browserUserAgent matches what image CDNs expect from a real client.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// limiterFor returns the rate limiter for one host, creating it on demand.
func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(f.perHost, f.burst)
		f.limiters[host] = limiter
	}
	return limiter
}

// Fetch downloads and validates image bytes from rawURL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rawURL: image URL to fetch.
// Returns:
//   - []byte: validated image bytes.
//   - error: ErrFetchFailed (wrapped) on transport/timeout problems,
//     ErrUnsupportedContent (wrapped) when the response is not an image.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", domain.ErrFetchFailed, rawURL)
	}

	if err := f.limiterFor(u.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content-type %q", domain.ErrUnsupportedContent, contentType)
	}

	// Read at most maxBytes+1 so an oversized or endless body is rejected
	// without buffering the rest of the stream.
	body, err := io.ReadAll(io.LimitReader(raw, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrFetchFailed, f.maxBytes)
	}

	// Content-Type headers lie often enough that the bytes get decoded too.
	if _, _, err := image.DecodeConfig(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("%w: undecodable image: %v", domain.ErrUnsupportedContent, err)
	}

	return body, nil
}
