// Package query builds the search query variants sent to providers.
package query

import (
	"strings"

	"github.com/asha/decorscout/internal/domain"
)

// budgetTerms maps each budget bucket to the material and style hints that
// tend to surface boards actually achievable at that price point.
var budgetTerms = map[domain.BudgetBucket][]string{
	domain.BudgetLow:  {"simple", "diy", "budget"},
	domain.BudgetMid:  {"acrylic", "wooden"},
	domain.BudgetHigh: {"luxury", "premium", "floral"},
}

// Expand produces 2-4 distinct query strings for one category and theme,
// recombining keyword order (event-first and descriptor-first phrasings)
// with budget-tier material hints. Deterministic: identical input always
// yields identical output in identical order.
// Parameters:
//   - category: target category; must be valid.
//   - theme: free-form theme keywords (e.g. "pastel pink"), may be empty.
// Returns:
//   - []string: 2-4 distinct query variants.
//   - error: ErrInvalidCategory (wrapped) if the category is invalid.
func Expand(category domain.Category, theme string) ([]string, error) {
	if err := category.Validate(); err != nil {
		return nil, err
	}

	event := string(category.EventType)
	theme = strings.TrimSpace(theme)

	variants := make([]string, 0, 4)

	// Event-first base phrasing, with the theme when one was given.
	base := event + " welcome board"
	if theme != "" {
		base += " " + theme
	}
	variants = append(variants, base)

	// Descriptor-first phrasing widens provider coverage for boards tagged
	// by venue rather than event.
	variants = append(variants, "welcome sign "+event+" entrance decor")

	// Budget-tier material variants.
	for i, term := range budgetTerms[category.BudgetBucket] {
		if i >= 2 {
			break
		}
		variants = append(variants, term+" "+event+" welcome board")
	}

	return dedupe(variants), nil
}

// dedupe removes exact duplicates while preserving order. Duplicates can
// appear when the theme repeats a budget term.
func dedupe(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}
