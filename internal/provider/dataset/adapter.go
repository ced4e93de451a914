package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/provider"
)

// ManifestItem represents one line of a JSONL pin export, the static
// fallback used when live providers are exhausted.
type ManifestItem struct {
	PinID       string `json:"pin_id"`
	ImageURL    string `json:"image_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Saves       int    `json:"saves"`
}

// Adapter implements provider.Adapter over a local JSONL manifest of
// previously exported pins. One adapter instance is shared across concurrent
// rank requests, so the lazy load runs exactly once.
type Adapter struct {
	manifestPath string

	loadOnce sync.Once
	loadErr  error
	items    []provider.RawRecord
}

// NewAdapter creates a dataset adapter for the given manifest file.
// Parameters:
//   - manifestPath: path to the JSONL manifest.
// Returns:
//   - *Adapter: initialized adapter (items load lazily on first search).
func NewAdapter(manifestPath string) *Adapter {
	return &Adapter{manifestPath: manifestPath}
}

// Name returns the stable source label recorded on candidates.
// Parameters: none.
// Returns:
//   - string: "dataset".
func (a *Adapter) Name() string {
	return "dataset"
}

// IdentityKey returns the canonicalizer for dataset records: pin id when the
// export carried one, normalized image URL otherwise. Matching the Pinterest
// adapter's key format lets live and exported copies of the same pin merge.
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

// Search filters the manifest by query terms. Any record whose title or
// description contains at least one query term matches; with no matches the
// full manifest is returned in file order so an off-topic export still
// yields candidates for the prefilter to judge.
// Parameters:
//   - ctx: context for cancellation (unused for local reads).
//   - query: provider query string.
//   - limit: maximum number of records to return.
// Returns:
//   - []provider.RawRecord: matching records, possibly empty.
//   - error: ErrSourceUnavailable (wrapped) if the manifest cannot be read.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]provider.RawRecord, error) {
	a.loadOnce.Do(func() {
		a.loadErr = a.load()
	})
	if a.loadErr != nil {
		return nil, fmt.Errorf("%w: dataset: %v", domain.ErrSourceUnavailable, a.loadErr)
	}

	if limit <= 0 || len(a.items) == 0 {
		return []provider.RawRecord{}, nil
	}

	terms := strings.Fields(strings.ToLower(query))
	matched := make([]provider.RawRecord, 0, limit)
	for _, item := range a.items {
		haystack := strings.ToLower(item.Title + " " + item.Description)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched = append(matched, item)
				break
			}
		}
		if len(matched) >= limit {
			return matched, nil
		}
	}

	if len(matched) > 0 {
		return matched, nil
	}

	if limit > len(a.items) {
		limit = len(a.items)
	}
	return a.items[:limit], nil
}

// load reads the manifest line by line, skipping malformed entries.
func (a *Adapter) load() error {
	file, err := os.Open(a.manifestPath)
	if err != nil {
		return err
	}
	defer file.Close()

	a.items = []provider.RawRecord{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue
		}
		if item.ImageURL == "" {
			continue
		}

		a.items = append(a.items, provider.RawRecord{
			SourceID:        item.PinID,
			RawURL:          item.ImageURL,
			Title:           item.Title,
			Description:     item.Description,
			EngagementCount: item.Saves,
		})
	}

	return scanner.Err()
}
