package googleimages

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/provider"
	"github.com/go-resty/resty/v2"
)

const defaultSearchURL = "https://www.google.com/search"

// browserUserAgent keeps the image search endpoint serving full result pages.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// imageURLPattern matches direct image URLs embedded in the result page.
var imageURLPattern = regexp.MustCompile(`https://[^\s"<>\\]+\.(?:jpg|jpeg|png|webp)`)

// skipFragments filters obvious non-candidate URLs (icons, chrome assets)
// before they reach the prefilter.
var skipFragments = []string{
	".svg", "icon", "logo", "branding", "data:",
	"gstatic.com/bar", "googleusercontent.com/bar", "ssl.gstatic.com/gb",
}

// Config holds configuration for the Google Images adapter.
type Config struct {
	SearchURL string
}

// Adapter implements provider.Adapter by extracting direct image URLs from
// the Google Images result page.
type Adapter struct {
	client    *resty.Client
	searchURL string
}

// NewAdapter creates a Google Images adapter.
// Parameters:
//   - cfg: adapter configuration; nil uses defaults.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	searchURL := defaultSearchURL
	if cfg != nil && cfg.SearchURL != "" {
		searchURL = cfg.SearchURL
	}

	client := resty.New()
	client.SetHeader("User-Agent", browserUserAgent)
	client.SetHeader("Accept-Language", "en-US,en;q=0.5")

	return &Adapter{client: client, searchURL: searchURL}
}

// Name returns the stable source label recorded on candidates.
// Parameters: none.
// Returns:
//   - string: "google".
func (a *Adapter) Name() string {
	return "google"
}

// IdentityKey returns the canonicalizer for Google records. Google has no
// stable native identity for image results, so the normalized image URL with
// tracking parameters stripped is the dedup key.
// Parameters: none.
// Returns:
//   - provider.Canonicalizer: pure dedup-key function.
func (a *Adapter) IdentityKey() provider.Canonicalizer {
	return func(rec provider.RawRecord) (string, error) {
		normalized, err := provider.NormalizeImageURL(rec.RawURL)
		if err != nil {
			return "", err
		}
		return "url:" + normalized, nil
	}
}

// Search runs one query against the image search page and extracts direct
// image URLs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: provider query string.
//   - limit: maximum number of records to return.
// Returns:
//   - []provider.RawRecord: records found, possibly empty.
//   - error: ErrSourceUnavailable (wrapped) if the page cannot be fetched.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]provider.RawRecord, error) {
	if limit <= 0 {
		return []provider.RawRecord{}, nil
	}

	httpResp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("tbm", "isch").
		Get(a.searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", domain.ErrSourceUnavailable, err)
	}
	if httpResp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: google: status %d", domain.ErrSourceUnavailable, httpResp.StatusCode())
	}

	return extractRecords(string(httpResp.Body()), limit), nil
}

// extractRecords pulls candidate image URLs out of a result page. Separated
// from Search so page parsing stays testable with literal HTML.
func extractRecords(html string, limit int) []provider.RawRecord {
	seen := make(map[string]bool)
	records := make([]provider.RawRecord, 0, limit)

	for _, match := range imageURLPattern.FindAllString(html, -1) {
		candidate := unescapeEmbeddedURL(match)
		if seen[candidate] {
			continue
		}
		lower := strings.ToLower(candidate)
		skip := false
		for _, fragment := range skipFragments {
			if strings.Contains(lower, fragment) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		seen[candidate] = true
		records = append(records, provider.RawRecord{
			RawURL: candidate,
			Title:  titleFromURL(candidate),
		})
		if len(records) >= limit {
			break
		}
	}

	return records
}

// unescapeEmbeddedURL undoes the JSON and percent escaping Google applies to
// URLs embedded in page scripts.
func unescapeEmbeddedURL(raw string) string {
	raw = strings.ReplaceAll(raw, `\u003d`, "=")
	raw = strings.ReplaceAll(raw, `\u0026`, "&")
	raw = strings.ReplaceAll(raw, `\/`, "/")
	return raw
}

// titleFromURL derives a display title from the URL's file name, since the
// result page carries no per-image titles worth keeping.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	name := segments[len(segments)-1]
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return strings.NewReplacer("-", " ", "_", " ").Replace(name)
}
