// Package rank holds the deterministic post-processing stages of the
// pipeline: similarity ranking, diversity selection, and aggregation.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/asha/decorscout/internal/domain"
)

// CorpusReader is the ranker's view of the exemplar corpus. Keeping it an
// interface lets the in-memory/SQL implementation be swapped for an indexed
// one without touching the ranker.
type CorpusReader interface {
	// EmbeddingsFor returns the embeddings of one category partition.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - category: target partition.
	// Returns:
	//   - []domain.ExemplarEmbedding: partition contents, possibly empty.
	//   - error: non-nil if the lookup fails.
	EmbeddingsFor(ctx context.Context, category domain.Category) ([]domain.ExemplarEmbedding, error)
}

// Ranker scores candidates against one category partition of the corpus.
type Ranker struct {
	corpus CorpusReader
}

// NewRanker creates a ranker over the given corpus.
// Parameters:
//   - corpus: exemplar corpus reader.
// Returns:
//   - *Ranker: initialized ranker.
func NewRanker(corpus CorpusReader) *Ranker {
	return &Ranker{corpus: corpus}
}

// Rank computes similarity scores for every candidate that has an
// embedding, then returns the scored candidates sorted by similarity
// descending (ties broken by identity key ascending). Candidates without an
// embedding keep a nil score: "failed" and "scored 0" stay distinguishable.
//
// Exhaustive O(candidates × exemplars) cosine; partitions are tens to low
// hundreds of exemplars, so no ANN structure is needed at this scale.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: target partition; assumed validated by the caller.
//   - cands: candidates to score; SimilarityScore, BestMatchExemplarID, and
//     Status are written on candidates with embeddings.
// Returns:
//   - []*domain.CandidateRecord: scored candidates in rank order.
//   - error: ErrEmptyCorpus (wrapped) if the partition has no exemplars.
func (r *Ranker) Rank(ctx context.Context, category domain.Category, cands []*domain.CandidateRecord) ([]*domain.CandidateRecord, error) {
	exemplars, err := r.corpus.EmbeddingsFor(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus partition: %w", err)
	}
	if len(exemplars) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyCorpus, category)
	}

	scored := make([]*domain.CandidateRecord, 0, len(cands))
	for _, cand := range cands {
		if cand.Embedding == nil {
			continue
		}

		best := -1.0
		bestID := ""
		var bestCreated = exemplars[0].CreatedAt
		for _, ex := range exemplars {
			sim := Cosine(cand.Embedding, ex.Vector)
			// Strictly-better wins; on an exact tie the more recently
			// created exemplar wins, a slight deterministic recency bias.
			if sim > best || (sim == best && ex.CreatedAt.After(bestCreated)) {
				best = sim
				bestID = ex.ID
				bestCreated = ex.CreatedAt
			}
		}

		score := clamp01(best)
		cand.SimilarityScore = &score
		cand.BestMatchExemplarID = bestID
		cand.Status = domain.CandidateScored
		scored = append(scored, cand)
	}

	sort.Slice(scored, func(i, j int) bool {
		si, sj := *scored[i].SimilarityScore, *scored[j].SimilarityScore
		if si != sj {
			return si > sj
		}
		return scored[i].IdentityKey < scored[j].IdentityKey
	})

	return scored, nil
}

// Cosine computes cosine similarity between two vectors, 0 when either has
// zero magnitude or the lengths differ.
// Parameters:
//   - a, b: vectors to compare.
// Returns:
//   - float64: cosine similarity in [-1, 1].
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clamp01 clamps a similarity into [0, 1]. CLIP-style embeddings rarely go
// negative against in-domain exemplars, but the contract is a [0,1] score.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
