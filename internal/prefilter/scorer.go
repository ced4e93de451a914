// Package prefilter scores candidates on cheap text and URL signals before
// the expensive fetch/embed path.
package prefilter

import (
	"strings"

	"github.com/asha/decorscout/internal/domain"
)

// Weights configures the signed signal weights and the rejection floor.
type Weights struct {
	Domain  int // added once when the URL matches the vendor allowlist
	Topic   int // added per matched positive keyword
	Exclude int // subtracted per matched exclusion keyword
	Floor   int // scores below this are rejected before embedding
}

// DefaultWeights mirrors the tuning that held up in production: a single
// exclusion match (-5) outweighs any one positive signal, pushing obvious
// renders and clipart below the floor.
func DefaultWeights() Weights {
	return Weights{Domain: 3, Topic: 2, Exclude: 5, Floor: 0}
}

// vendorDomains is the allowlist of event-decor vendor and content domains
// whose images are overwhelmingly real installed boards.
var vendorDomains = []string{
	"weddingwire", "shaadisaga", "wedmegood", "weddingz", "weddingbazaar",
	"mywedding", "weddingplz", "weddingwishlist", "pinimg.com",
}

// topicTerms are positive keywords indicating an on-topic, real photograph.
var topicTerms = []string{
	"welcome", "board", "sign", "entrance", "display",
	"photo", "real", "diy", "decor", "ceremony",
}

// excludeTerms indicate illustration-class content that embeds well but is
// useless as a buildable reference.
var excludeTerms = []string{
	"sketch", "drawing", "render", "rendering", "illustration",
	"vector", "clipart", "template", "mockup", "cartoon", "anime",
	"painting",
}

// Scorer computes heuristic relevance scores. Pure text function: no
// network, no side effects, deterministic.
type Scorer struct {
	weights Weights
	event   domain.EventType
}

// NewScorer creates a scorer for one category's event type.
// Parameters:
//   - event: event type whose name counts as a positive keyword.
//   - weights: signal weights; zero-value fields fall back to DefaultWeights.
// Returns:
//   - *Scorer: initialized scorer.
func NewScorer(event domain.EventType, weights Weights) *Scorer {
	def := DefaultWeights()
	if weights.Domain == 0 {
		weights.Domain = def.Domain
	}
	if weights.Topic == 0 {
		weights.Topic = def.Topic
	}
	if weights.Exclude == 0 {
		weights.Exclude = def.Exclude
	}
	return &Scorer{weights: weights, event: event}
}

// Score computes the heuristic score for one candidate from its title,
// description, and URL.
// Parameters:
//   - cand: candidate to score; only text fields are read.
// Returns:
//   - int: signed heuristic score.
func (s *Scorer) Score(cand *domain.CandidateRecord) int {
	text := strings.ToLower(cand.Title + " " + cand.Description + " " + cand.RawURL)

	score := 0

	for _, d := range vendorDomains {
		if strings.Contains(text, d) {
			score += s.weights.Domain
			break
		}
	}

	for _, term := range topicTerms {
		if strings.Contains(text, term) {
			score += s.weights.Topic
		}
	}

	if s.event != "" && strings.Contains(text, string(s.event)) {
		score += s.weights.Topic
	}

	for _, term := range excludeTerms {
		if strings.Contains(text, term) {
			score -= s.weights.Exclude
		}
	}

	return score
}

// Result summarizes one prefilter pass.
type Result struct {
	Passed   []*domain.CandidateRecord
	Rejected int
}

// Apply scores every candidate and partitions them against the floor.
// Rejected candidates are marked rejected_heuristic and counted, not
// removed from the input slice: they stay enumerable for stats.
// Parameters:
//   - cands: candidates to score; HeuristicScore and Status are written.
// Returns:
//   - Result: candidates that passed plus the rejection count.
func (s *Scorer) Apply(cands []*domain.CandidateRecord) Result {
	res := Result{Passed: make([]*domain.CandidateRecord, 0, len(cands))}
	for _, cand := range cands {
		cand.HeuristicScore = s.Score(cand)
		if cand.HeuristicScore < s.weights.Floor {
			cand.Status = domain.CandidateRejectedHeuristic
			res.Rejected++
			continue
		}
		res.Passed = append(res.Passed, cand)
	}
	return res
}
