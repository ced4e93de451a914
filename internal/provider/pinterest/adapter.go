package pinterest

import (
	"context"
	"fmt"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/provider"
	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.pinterest.com/v5"
	maxPageSize    = 250
)

// Config holds configuration for the Pinterest API v5 adapter.
type Config struct {
	AccessToken string
	BaseURL     string
}

// Adapter implements provider.Adapter against the official Pinterest API v5.
type Adapter struct {
	client *resty.Client
}

// NewAdapter creates a Pinterest adapter.
// Parameters:
//   - cfg: adapter configuration including the API access token.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.AccessToken)
	client.SetHeader("Content-Type", "application/json")

	return &Adapter{client: client}
}

// Name returns the stable source label recorded on candidates.
// Parameters: none.
// Returns:
//   - string: "pinterest".
func (a *Adapter) Name() string {
	return "pinterest"
}

// IdentityKey returns the canonicalizer for Pinterest records. Pin ids are
// stable while image CDN URLs rotate between sizes and hosts, so identity is
// the pin id, with the normalized image URL as a fallback for records that
// arrived without one.
// Parameters: none.
// Returns:
//   - provider.Canonicalizer: pure dedup-key function.
func (a *Adapter) IdentityKey() provider.Canonicalizer {
	return func(rec provider.RawRecord) (string, error) {
		if rec.SourceID != "" {
			return "pin:" + rec.SourceID, nil
		}
		normalized, err := provider.NormalizeImageURL(rec.RawURL)
		if err != nil {
			return "", err
		}
		return "url:" + normalized, nil
	}
}

// Pinterest API v5 response structures.
type searchResponse struct {
	Items    []pinItem `json:"items"`
	Bookmark string    `json:"bookmark"`
	Message  string    `json:"message,omitempty"`
}

type pinItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Note        string `json:"note"`
	Media       struct {
		Images map[string]struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"images"`
	} `json:"media"`
	PinMetrics struct {
		Saves int `json:"saves"`
	} `json:"pin_metrics"`
}

// imageSizePreference orders media variants from best to worst.
var imageSizePreference = []string{"originals", "1200x", "736x", "564x"}

// Search runs one query against the Pinterest pins search endpoint,
// following bookmarks until limit records are collected or results end.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: provider query string.
//   - limit: maximum number of records to return.
// Returns:
//   - []provider.RawRecord: records found, possibly empty.
//   - error: ErrSourceUnavailable (wrapped) if the API cannot be reached.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]provider.RawRecord, error) {
	if limit <= 0 {
		return []provider.RawRecord{}, nil
	}

	records := make([]provider.RawRecord, 0, limit)
	bookmark := ""

	for len(records) < limit {
		pageSize := limit - len(records)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		var resp searchResponse
		req := a.client.R().
			SetContext(ctx).
			SetQueryParam("query", query).
			SetQueryParam("page_size", fmt.Sprintf("%d", pageSize)).
			SetResult(&resp)
		if bookmark != "" {
			req.SetQueryParam("bookmark", bookmark)
		}

		httpResp, err := req.Get("/search/pins")
		if err != nil {
			return nil, fmt.Errorf("%w: pinterest: %v", domain.ErrSourceUnavailable, err)
		}
		if httpResp.StatusCode() != 200 {
			if resp.Message != "" {
				return nil, fmt.Errorf("%w: pinterest: %s", domain.ErrSourceUnavailable, resp.Message)
			}
			return nil, fmt.Errorf("%w: pinterest: status %d", domain.ErrSourceUnavailable, httpResp.StatusCode())
		}

		for _, item := range resp.Items {
			if rec, ok := formatPin(item); ok {
				records = append(records, rec)
				if len(records) >= limit {
					break
				}
			}
		}

		if resp.Bookmark == "" || len(resp.Items) == 0 {
			break
		}
		bookmark = resp.Bookmark
	}

	return records, nil
}

// formatPin converts an API item into a raw record, preferring the largest
// available image variant. Pins without any image URL are skipped here; the
// unifier counts drops for records that slip through with empty URLs.
func formatPin(item pinItem) (provider.RawRecord, bool) {
	if item.ID == "" {
		return provider.RawRecord{}, false
	}

	imageURL := ""
	for _, size := range imageSizePreference {
		if variant, ok := item.Media.Images[size]; ok && variant.URL != "" {
			imageURL = variant.URL
			break
		}
	}
	if imageURL == "" {
		return provider.RawRecord{}, false
	}

	title := item.Title
	if title == "" {
		title = item.Note
	}
	description := item.Description
	if description == "" {
		description = item.Note
	}

	return provider.RawRecord{
		SourceID:        item.ID,
		RawURL:          imageURL,
		Title:           title,
		Description:     description,
		EngagementCount: item.PinMetrics.Saves,
	}, true
}
