package provider

import "context"

// RawRecord is one item returned by a provider search before unification.
type RawRecord struct {
	SourceID        string // Provider-native identifier, if any (e.g. pin id)
	RawURL          string // Image URL
	Title           string
	Description     string
	EngagementCount int // Saves/likes where the provider reports them
}

// Canonicalizer derives the cross-query dedup identity key for one raw
// record. It must be a pure function: URL equality is not a sufficient
// identity for every source, so each adapter supplies its own rule.
type Canonicalizer func(rec RawRecord) (string, error)

// Adapter is the contract consumed from each image provider. Scraping
// mechanics (HTML parsing, pagination, auth) live entirely behind this
// interface.
type Adapter interface {
	// Name returns the stable source label recorded on candidates.
	// Parameters: none.
	// Returns:
	//   - string: source label, e.g. "pinterest".
	Name() string

	// Search runs one query against the provider.
	// An empty result set is not an error; timeouts and rate-limit errors
	// return a non-nil error so "zero results" and "source unavailable"
	// stay distinguishable.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - query: provider query string.
	//   - limit: maximum number of records to return.
	// Returns:
	//   - []RawRecord: records found, possibly empty.
	//   - error: non-nil if the provider is unavailable.
	Search(ctx context.Context, query string, limit int) ([]RawRecord, error)

	// IdentityKey returns the canonicalizer for this source.
	// Parameters: none.
	// Returns:
	//   - Canonicalizer: pure dedup-key function.
	IdentityKey() Canonicalizer
}
