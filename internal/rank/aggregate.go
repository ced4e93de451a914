package rank

import "github.com/asha/decorscout/internal/domain"

// SourceStats summarizes one source's post-filter, post-rank candidates.
// AvgSimilarity and TopSimilarity are nil when the source produced no
// successfully scored candidates: an undefined average, not zero similarity.
type SourceStats struct {
	TotalResults  int                       `json:"total_results"`
	AvgSimilarity *float64                  `json:"avg_similarity"`
	TopSimilarity *float64                  `json:"top_similarity"`
	DiverseTopK   []*domain.CandidateRecord `json:"diverse_top_k"`
}

// Aggregate computes per-source statistics over ranked candidates and runs
// diversity selection per source. A candidate surfaced by several sources
// counts toward each of them.
// Parameters:
//   - ranked: candidates in rank order, scored.
//   - sources: source labels to report on, in request order.
//   - cfg: diversity selection bounds.
// Returns:
//   - map[string]*SourceStats: statistics keyed by source label.
//   - int: combined total across sources.
func Aggregate(ranked []*domain.CandidateRecord, sources []string, cfg DiversityConfig) (map[string]*SourceStats, int) {
	perSource := make(map[string]*SourceStats, len(sources))
	combined := 0

	for _, source := range sources {
		own := make([]*domain.CandidateRecord, 0, len(ranked))
		for _, cand := range ranked {
			if cand.Sources[source] {
				own = append(own, cand)
			}
		}

		stats := &SourceStats{
			TotalResults: len(own),
			DiverseTopK:  SelectDiverse(own, cfg),
		}

		var sum, top float64
		scoredCount := 0
		for _, cand := range own {
			if cand.SimilarityScore == nil {
				continue
			}
			if scoredCount == 0 || *cand.SimilarityScore > top {
				top = *cand.SimilarityScore
			}
			sum += *cand.SimilarityScore
			scoredCount++
		}
		if scoredCount > 0 {
			avg := sum / float64(scoredCount)
			stats.AvgSimilarity = &avg
			topCopy := top
			stats.TopSimilarity = &topCopy
		}

		perSource[source] = stats
		combined += len(own)
	}

	return perSource, combined
}
