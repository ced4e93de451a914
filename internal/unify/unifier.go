// Package unify merges raw provider records into deduplicated candidates.
package unify

import (
	"sort"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/provider"
)

// Unifier accumulates raw records across queries and sources into
// deduplicated CandidateRecords. It is source-agnostic: identity keys come
// from the per-source canonicalizer handed in with each batch.
//
// Not safe for concurrent use; the pipeline feeds it sequentially, which is
// cheap enough that it never needs the worker pool.
type Unifier struct {
	candidates map[string]*domain.CandidateRecord
	// seenQuery tracks (identity key, query variant) pairs so occurrence
	// counts increment exactly once per distinct query.
	seenQuery map[string]map[int]bool
	dropped   int
}

// New creates an empty Unifier.
// Parameters: none.
// Returns:
//   - *Unifier: initialized unifier.
func New() *Unifier {
	return &Unifier{
		candidates: make(map[string]*domain.CandidateRecord),
		seenQuery:  make(map[string]map[int]bool),
	}
}

// Add merges one batch of raw records surfaced by a source for one query
// variant. Malformed records (no usable identity) are dropped and counted,
// never returned as an error.
// Parameters:
//   - source: source label for the batch.
//   - queryIndex: index of the query variant that produced the batch.
//   - identity: canonicalizer for the batch's source.
//   - records: raw records to merge.
// Returns: none.
func (u *Unifier) Add(source string, queryIndex int, identity provider.Canonicalizer, records []provider.RawRecord) {
	for _, rec := range records {
		key, err := identity(rec)
		if err != nil || key == "" {
			u.dropped++
			continue
		}

		cand, exists := u.candidates[key]
		if !exists {
			cand = &domain.CandidateRecord{
				IdentityKey:     key,
				RawURL:          rec.RawURL,
				Title:           rec.Title,
				Description:     rec.Description,
				EngagementCount: rec.EngagementCount,
				Status:          domain.CandidatePending,
			}
			u.candidates[key] = cand
			u.seenQuery[key] = make(map[int]bool)
		} else {
			mergeMetadata(cand, rec)
		}

		cand.AddSource(source)

		if !u.seenQuery[key][queryIndex] {
			u.seenQuery[key][queryIndex] = true
			cand.OccurrenceCount++
		}
	}
}

// mergeMetadata keeps the richer display metadata on collision: non-empty
// fields win, and the larger engagement count is kept.
func mergeMetadata(cand *domain.CandidateRecord, rec provider.RawRecord) {
	if cand.Title == "" && rec.Title != "" {
		cand.Title = rec.Title
	}
	if cand.Description == "" && rec.Description != "" {
		cand.Description = rec.Description
	}
	if rec.EngagementCount > cand.EngagementCount {
		cand.EngagementCount = rec.EngagementCount
	}
	if cand.RawURL == "" && rec.RawURL != "" {
		cand.RawURL = rec.RawURL
	}
}

// Candidates returns the merged candidates ordered by identity key so
// downstream stages see a deterministic sequence.
// Parameters: none.
// Returns:
//   - []*domain.CandidateRecord: deduplicated candidates.
func (u *Unifier) Candidates() []*domain.CandidateRecord {
	out := make([]*domain.CandidateRecord, 0, len(u.candidates))
	for _, cand := range u.candidates {
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IdentityKey < out[j].IdentityKey
	})
	return out
}

// Dropped returns the count of malformed records that could not be keyed.
// Parameters: none.
// Returns:
//   - int: dropped record count.
func (u *Unifier) Dropped() int {
	return u.dropped
}
