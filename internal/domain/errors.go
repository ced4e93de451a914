package domain

import "errors"

// Error taxonomy for the ranking and curation pipeline.
//
// Only ErrInvalidCategory and total provider exhaustion are fatal to a
// request. Per-candidate failures (ErrFetchFailed, ErrUnsupportedContent)
// and per-source failures (ErrSourceUnavailable) are counted and reported,
// never silently dropped, and never abort the rest of the batch.
var (
	// ErrInvalidCategory indicates a category outside the closed enumeration.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrSourceUnavailable indicates a provider failed entirely for a request.
	// The request continues with the remaining sources.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrFetchFailed indicates image bytes could not be fetched for a
	// candidate within the bounded timeout.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrUnsupportedContent indicates fetched bytes are not a decodable image.
	ErrUnsupportedContent = errors.New("unsupported content")

	// ErrEmptyCorpus indicates the target category partition holds zero
	// exemplars, so similarity is undefined. This is surfaced rather than
	// scored as 0, which would read as "definitely dissimilar".
	ErrEmptyCorpus = errors.New("empty exemplar corpus for category")

	// ErrDuplicateCuration indicates the candidate is already in the corpus
	// partition. Curation treats this as an idempotent no-op.
	ErrDuplicateCuration = errors.New("already curated")
)
