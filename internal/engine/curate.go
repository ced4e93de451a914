package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/embed"
	"github.com/asha/decorscout/internal/logger"
)

// CurationStatus is the per-item outcome of a curation call.
// Values include CurationCurated, CurationDuplicate, and CurationFailed.
type CurationStatus string

const (
	CurationCurated   CurationStatus = "curated"
	CurationDuplicate CurationStatus = "duplicate"
	CurationFailed    CurationStatus = "failed"
)

// CurationItem reports the outcome for one identity key.
type CurationItem struct {
	IdentityKey string         `json:"identity_key"`
	Status      CurationStatus `json:"status"`
	ExemplarID  string         `json:"exemplar_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// CurationReport summarizes one curation call. Item order follows the
// request's key order.
type CurationReport struct {
	Category   domain.Category `json:"category"`
	Curated    int             `json:"curated"`
	Duplicates int             `json:"duplicates"`
	Failed     int             `json:"failed"`
	Items      []CurationItem  `json:"items"`
}

// CurateSelection promotes user-approved candidates from the most recent
// ranking of a partition into the exemplar corpus. Each item succeeds or
// fails independently: one bad key never blocks the rest. Re-curating an
// already-present candidate is a no-op reported as a duplicate.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: target partition; must match the ranking being curated.
//   - identityKeys: approved candidate keys, as returned by RankCandidates.
// Returns:
//   - *CurationReport: per-item outcomes plus counts.
//   - error: ErrInvalidCategory (wrapped); item-level failures are reported
//     in the report, not as an error.
func (e *Engine) CurateSelection(ctx context.Context, category domain.Category, identityKeys []string) (*CurationReport, error) {
	if err := category.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.SetCategory(ctx, category.String())

	report := &CurationReport{
		Category: category,
		Items:    make([]CurationItem, 0, len(identityKeys)),
	}

	session, hasSession := e.sessionFor(category)

	seen := make(map[string]bool, len(identityKeys))
	for _, key := range identityKeys {
		if seen[key] {
			continue
		}
		seen[key] = true

		item := e.curateOne(ctx, category, session, hasSession, key)
		switch item.Status {
		case CurationCurated:
			report.Curated++
		case CurationDuplicate:
			report.Duplicates++
		default:
			report.Failed++
		}
		report.Items = append(report.Items, item)
	}

	logger.With(logger.Fields{
		"curated":    report.Curated,
		"duplicates": report.Duplicates,
		"failed":     report.Failed,
	}).Info(ctx, "Curation completed")

	return report, nil
}

// curateOne promotes a single candidate: resolve it from the ranking
// session, re-fetch the full-resolution bytes, persist the image, and append
// the exemplar to the corpus partition.
func (e *Engine) curateOne(ctx context.Context, category domain.Category, session map[string]*domain.CandidateRecord, hasSession bool, key string) CurationItem {
	item := CurationItem{IdentityKey: key}

	if !hasSession {
		item.Status = CurationFailed
		item.Error = "no recent ranking session for this category"
		return item
	}
	cand, ok := session[key]
	if !ok {
		item.Status = CurationFailed
		item.Error = "identity key not present in the last ranking"
		return item
	}

	body, err := e.fetcher.Fetch(ctx, cand.RawURL)
	if err != nil {
		item.Status = CurationFailed
		item.Error = fmt.Sprintf("fetch: %v", err)
		return item
	}

	contentHash := embed.ContentHash(body)

	vector := cand.Embedding
	if vector == nil {
		vector, err = e.embedder.Embed(ctx, body)
		if err != nil {
			item.Status = CurationFailed
			item.Error = fmt.Sprintf("embed: %v", err)
			return item
		}
	}

	storageKey := fmt.Sprintf("exemplars/%s/%s/%s%s",
		category.EventType, category.BudgetBucket, contentHash, imageExt(body))
	contentType := http.DetectContentType(body)
	if err := e.objects.Upload(ctx, storageKey, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		item.Status = CurationFailed
		item.Error = fmt.Sprintf("store: %v", err)
		return item
	}

	exemplar := &domain.ExemplarImage{
		EventType:    category.EventType,
		BudgetBucket: category.BudgetBucket,
		StorageKey:   storageKey,
		IdentityKey:  key,
		ContentHash:  contentHash,
		Embedding:    vector,
		Provenance:   domain.ProvenanceUserCurated,
	}
	if err := e.corpus.Append(ctx, exemplar); err != nil {
		if errors.Is(err, domain.ErrDuplicateCuration) {
			item.Status = CurationDuplicate
			return item
		}
		item.Status = CurationFailed
		item.Error = fmt.Sprintf("append: %v", err)
		return item
	}

	item.Status = CurationCurated
	item.ExemplarID = exemplar.ID
	return item
}

// imageExt picks a file extension from sniffed content type.
func imageExt(body []byte) string {
	switch http.DetectContentType(body) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
