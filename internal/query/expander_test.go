package query

import (
	"errors"
	"testing"

	"github.com/asha/decorscout/internal/domain"
)

func TestExpandProducesBoundedDistinctVariants(t *testing.T) {
	testCases := []struct {
		name     string
		category domain.Category
		theme    string
	}{
		{
			name:     "wedding mid budget with theme",
			category: domain.Category{EventType: domain.EventWedding, BudgetBucket: domain.BudgetMid},
			theme:    "pastel pink",
		},
		{
			name:     "haldi low budget no theme",
			category: domain.Category{EventType: domain.EventHaldi, BudgetBucket: domain.BudgetLow},
			theme:    "",
		},
		{
			name:     "reception high budget",
			category: domain.Category{EventType: domain.EventReception, BudgetBucket: domain.BudgetHigh},
			theme:    "gold",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			variants, err := Expand(tc.category, tc.theme)
			if err != nil {
				t.Fatalf("Expand failed: %v", err)
			}
			if len(variants) < 2 || len(variants) > 4 {
				t.Errorf("expected 2-4 variants, got %d: %v", len(variants), variants)
			}

			seen := make(map[string]bool)
			for _, v := range variants {
				if seen[v] {
					t.Errorf("duplicate variant %q", v)
				}
				seen[v] = true
			}
		})
	}
}

func TestExpandDeterministic(t *testing.T) {
	category := domain.Category{EventType: domain.EventSangeet, BudgetBucket: domain.BudgetMid}

	first, err := Expand(category, "bold colors")
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := Expand(category, "bold colors")
		if err != nil {
			t.Fatalf("Expand failed on run %d: %v", i, err)
		}
		if len(again) != len(first) {
			t.Fatalf("variant count changed: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Errorf("variant %d changed: %q vs %q", j, again[j], first[j])
			}
		}
	}
}

func TestExpandBudgetHintsDiffer(t *testing.T) {
	low, err := Expand(domain.Category{EventType: domain.EventWedding, BudgetBucket: domain.BudgetLow}, "")
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	high, err := Expand(domain.Category{EventType: domain.EventWedding, BudgetBucket: domain.BudgetHigh}, "")
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	lowJoined := ""
	for _, v := range low {
		lowJoined += v + "|"
	}
	highJoined := ""
	for _, v := range high {
		highJoined += v + "|"
	}
	if lowJoined == highJoined {
		t.Error("expected different variants for different budget buckets")
	}
}

func TestExpandInvalidCategory(t *testing.T) {
	_, err := Expand(domain.Category{EventType: "birthday", BudgetBucket: domain.BudgetMid}, "pastel")
	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}

	_, err = Expand(domain.Category{EventType: domain.EventWedding, BudgetBucket: "0-100"}, "pastel")
	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
}
