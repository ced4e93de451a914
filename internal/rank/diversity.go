package rank

import "github.com/asha/decorscout/internal/domain"

// DiversityConfig holds the selection bound and the near-duplicate cutoff.
type DiversityConfig struct {
	TopK int
	// DuplicateThreshold is the pairwise cosine similarity above which two
	// candidates count as visual near-duplicates.
	DuplicateThreshold float64
}

// DefaultDiversityConfig returns the production defaults.
func DefaultDiversityConfig() DiversityConfig {
	return DiversityConfig{TopK: 10, DuplicateThreshold: 0.95}
}

// SelectDiverse greedily picks up to TopK candidates from a
// similarity-sorted list, skipping any candidate whose embedding is a near
// duplicate of one already picked.
//
// Guarantees: output size <= TopK; no two outputs exceed the duplicate
// threshold pairwise; output preserves the input's rank order. Deterministic
// given the input ordering (the ranker already breaks ties by identity key).
// Parameters:
//   - ranked: candidates sorted by similarity descending.
//   - cfg: selection bounds; zero values fall back to defaults.
// Returns:
//   - []*domain.CandidateRecord: diverse subset in rank order.
func SelectDiverse(ranked []*domain.CandidateRecord, cfg DiversityConfig) []*domain.CandidateRecord {
	def := DefaultDiversityConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = def.DuplicateThreshold
	}

	picked := make([]*domain.CandidateRecord, 0, cfg.TopK)
	for _, cand := range ranked {
		if len(picked) >= cfg.TopK {
			break
		}
		if cand.Embedding == nil {
			continue
		}

		duplicate := false
		for _, chosen := range picked {
			if Cosine(cand.Embedding, chosen.Embedding) > cfg.DuplicateThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			picked = append(picked, cand)
		}
	}

	return picked
}
