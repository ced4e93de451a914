package prefilter

import (
	"testing"

	"github.com/asha/decorscout/internal/domain"
)

func TestScoreSignals(t *testing.T) {
	s := NewScorer(domain.EventWedding, DefaultWeights())

	testCases := []struct {
		name string
		cand domain.CandidateRecord
		want int
	}{
		{
			name: "vendor domain plus topic terms",
			cand: domain.CandidateRecord{
				RawURL: "https://www.wedmegood.com/photos/welcome-board.jpg",
			},
			// domain +3, "welcome" +2, "board" +2, "photo" +2 = 9
			want: 9,
		},
		{
			name: "single exclusion pushes negative",
			cand: domain.CandidateRecord{
				Title:  "Welcome board clipart",
				RawURL: "https://example.com/a.jpg",
			},
			// "welcome" +2, "board" +2, clipart -5 = -1
			want: -1,
		},
		{
			name: "event type match counts as topic",
			cand: domain.CandidateRecord{
				Title:  "wedding entrance",
				RawURL: "https://example.com/b.jpg",
			},
			// "entrance" +2, event "wedding" +2 = 4
			want: 4,
		},
		{
			name: "no signals",
			cand: domain.CandidateRecord{
				Title:  "something else",
				RawURL: "https://example.com/c.jpg",
			},
			want: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Score(&tc.cand)
			if got != tc.want {
				t.Errorf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(domain.EventMehendi, DefaultWeights())
	cand := domain.CandidateRecord{Title: "Mehendi welcome sign", RawURL: "https://weddingwire.in/x.png"}

	first := s.Score(&cand)
	for i := 0; i < 10; i++ {
		if got := s.Score(&cand); got != first {
			t.Fatalf("score changed between runs: %d vs %d", got, first)
		}
	}
}

func TestApplyRejectsBelowFloorAndCounts(t *testing.T) {
	s := NewScorer(domain.EventWedding, DefaultWeights())

	cands := []*domain.CandidateRecord{
		{IdentityKey: "a", Title: "wedding welcome board photo", RawURL: "https://example.com/a.jpg"},
		{IdentityKey: "b", Title: "welcome board vector template", RawURL: "https://example.com/b.jpg"},
		{IdentityKey: "c", Title: "cartoon illustration sketch", RawURL: "https://example.com/c.jpg"},
	}

	res := s.Apply(cands)

	if len(res.Passed) != 1 || res.Passed[0].IdentityKey != "a" {
		t.Fatalf("expected only candidate a to pass, got %d passed", len(res.Passed))
	}
	if res.Rejected != 2 {
		t.Errorf("expected 2 rejections, got %d", res.Rejected)
	}

	// Rejected candidates stay marked, never vanish.
	for _, cand := range cands[1:] {
		if cand.Status != domain.CandidateRejectedHeuristic {
			t.Errorf("candidate %s: expected rejected_heuristic status, got %q", cand.IdentityKey, cand.Status)
		}
	}
}
