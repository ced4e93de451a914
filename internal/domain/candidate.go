package domain

import (
	"encoding/json"
	"sort"
)

// CandidateStatus tracks where a candidate is in the pipeline.
// Values include CandidatePending, CandidateScored, CandidateRejectedHeuristic,
// and CandidateFetchFailed.
type CandidateStatus string

const (
	CandidatePending           CandidateStatus = "pending"
	CandidateScored            CandidateStatus = "scored"
	CandidateRejectedHeuristic CandidateStatus = "rejected_heuristic"
	CandidateFetchFailed       CandidateStatus = "fetch_failed"
)

// CandidateRecord is the canonical in-memory representation of a scraped
// item, independent of the provider that surfaced it. Records live for the
// duration of one rank request unless promoted into the exemplar corpus.
//
// Each field has a single writer: the unifier owns identity and metadata,
// the prefilter owns HeuristicScore and Status, the embedding stage owns
// Embedding, and the ranker owns SimilarityScore and BestMatchExemplarID.
type CandidateRecord struct {
	// IdentityKey is the canonical dedup key derived per source. Two records
	// with equal keys are the same candidate and are merged, not duplicated.
	IdentityKey string `json:"identity_key"`

	// Sources records every provider that surfaced this candidate.
	// Kept as a set: the same image may legitimately arrive from two
	// providers under different source labels.
	Sources map[string]bool `json:"-"`

	RawURL          string `json:"raw_url"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	EngagementCount int    `json:"engagement_count,omitempty"`

	// OccurrenceCount is incremented exactly once per distinct query variant
	// in which the identity key appeared. Always >= 1.
	OccurrenceCount int `json:"occurrence_count"`

	HeuristicScore int             `json:"heuristic_score"`
	Status         CandidateStatus `json:"status"`

	// Embedding is nil until the embedding stage succeeds. nil embedding and
	// nil SimilarityScore mean "not scored", which is distinct from a real
	// score of 0.
	Embedding []float32 `json:"-"`

	SimilarityScore     *float64 `json:"similarity_score,omitempty"`
	BestMatchExemplarID string   `json:"best_match_exemplar_id,omitempty"`
}

// SourceList returns the contributing sources sorted for stable output.
func (c *CandidateRecord) SourceList() []string {
	out := make([]string, 0, len(c.Sources))
	for s := range c.Sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AddSource records a contributing source label.
func (c *CandidateRecord) AddSource(source string) {
	if c.Sources == nil {
		c.Sources = make(map[string]bool)
	}
	c.Sources[source] = true
}

// MarshalJSON renders the source set as a sorted list.
func (c *CandidateRecord) MarshalJSON() ([]byte, error) {
	type alias CandidateRecord
	return json.Marshal(struct {
		*alias
		Sources []string `json:"sources"`
	}{(*alias)(c), c.SourceList()})
}
