// Package engine wires the ranking pipeline together: query expansion,
// provider search, unification, heuristic prefiltering, fetch/embed, corpus
// similarity ranking, and diversity selection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/embed"
	"github.com/asha/decorscout/internal/logger"
	"github.com/asha/decorscout/internal/prefilter"
	"github.com/asha/decorscout/internal/provider"
	"github.com/asha/decorscout/internal/query"
	"github.com/asha/decorscout/internal/rank"
	"github.com/asha/decorscout/internal/storage"
	"github.com/asha/decorscout/internal/unify"
)

// ImageFetcher downloads candidate image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// CorpusStore is the engine's view of the exemplar corpus: partition reads
// for ranking, curated-key lookups for exclusion, and appends for curation.
type CorpusStore interface {
	EmbeddingsFor(ctx context.Context, category domain.Category) ([]domain.ExemplarEmbedding, error)
	CuratedKeys(ctx context.Context, category domain.Category) (map[string]bool, error)
	Append(ctx context.Context, exemplar *domain.ExemplarImage) error
}

// Config holds engine tuning.
type Config struct {
	// PerSourceLimit caps records requested per provider per query variant.
	PerSourceLimit int
	// Workers bounds concurrent fetch+embed of candidate images.
	Workers int
	// RequestTimeout caps one whole ranking request. Candidates not embedded
	// when it expires stay unscored; the request still returns partial results.
	RequestTimeout time.Duration
	// SessionTTL is how long a ranking's candidates stay resolvable for
	// curation.
	SessionTTL time.Duration

	Weights   prefilter.Weights
	Diversity rank.DiversityConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PerSourceLimit: 25,
		Workers:        8,
		RequestTimeout: 90 * time.Second,
		SessionTTL:     30 * time.Minute,
		Weights:        prefilter.DefaultWeights(),
		Diversity:      rank.DefaultDiversityConfig(),
	}
}

// Engine is the ranking and curation facade.
type Engine struct {
	providers []provider.Adapter
	fetcher   ImageFetcher
	embedder  embed.Embedder
	corpus    CorpusStore
	objects   storage.ObjectStorage
	ranker    *rank.Ranker
	sessions  *gocache.Cache
	cfg       Config
}

// NewEngine creates the engine.
// Parameters:
//   - providers: candidate sources, queried in order.
//   - fetcher: image downloader.
//   - embedder: embedding backend, normally the cached wrapper.
//   - corpusStore: exemplar corpus.
//   - objects: object storage for curated exemplar images.
//   - cfg: engine tuning; zero-value fields fall back to DefaultConfig.
// Returns:
//   - *Engine: initialized engine.
func NewEngine(
	providers []provider.Adapter,
	fetcher ImageFetcher,
	embedder embed.Embedder,
	corpusStore CorpusStore,
	objects storage.ObjectStorage,
	cfg Config,
) *Engine {
	def := DefaultConfig()
	if cfg.PerSourceLimit <= 0 {
		cfg.PerSourceLimit = def.PerSourceLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}

	return &Engine{
		providers: providers,
		fetcher:   fetcher,
		embedder:  embedder,
		corpus:    corpusStore,
		objects:   objects,
		ranker:    rank.NewRanker(corpusStore),
		sessions:  gocache.New(cfg.SessionTTL, 10*time.Minute),
		cfg:       cfg,
	}
}

// RankResult is the outcome of one ranking request.
type RankResult struct {
	RankID        string          `json:"rank_id"`
	Category      domain.Category `json:"category"`
	Theme         string          `json:"theme,omitempty"`
	QueryVariants []string        `json:"query_variants"`

	// Shortlist is the diversified top-K across all sources.
	Shortlist []*domain.CandidateRecord `json:"shortlist"`

	Sources       map[string]*rank.SourceStats `json:"sources"`
	CombinedTotal int                          `json:"combined_total"`

	UniqueCandidates    int      `json:"unique_candidates"`
	DroppedRecords      int      `json:"dropped_records"`
	AlreadyCurated      int      `json:"already_curated"`
	RejectedByHeuristic int      `json:"rejected_by_heuristic"`
	FetchFailures       int      `json:"fetch_failures"`
	FailedSources       []string `json:"failed_sources,omitempty"`

	ElapsedMs int64 `json:"elapsed_ms"`
}

// RankCandidates runs the full pipeline for one category and optional theme.
// Provider failures degrade to partial results as long as at least one
// provider answered; embedding failures leave individual candidates unscored.
// Parameters:
//   - ctx: request context; the engine adds its own deadline on top.
//   - category: target partition.
//   - theme: free-text styling hint folded into query variants; may be empty.
//   - sources: source names to query; empty means all configured sources.
//     Requested names with no configured provider are reported as failed.
// Returns:
//   - *RankResult: ranked, diversified results with per-source stats.
//   - error: ErrInvalidCategory, ErrSourceUnavailable (all providers failed),
//     or ErrEmptyCorpus, each wrapped with context.
func (e *Engine) RankCandidates(ctx context.Context, category domain.Category, theme string, sources []string) (*RankResult, error) {
	start := time.Now()

	variants, err := query.Expand(category, theme)
	if err != nil {
		return nil, err
	}

	providers, unknownSources := e.selectProviders(sources)
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no requested source is configured", domain.ErrSourceUnavailable)
	}

	rankID := uuid.New().String()
	ctx = logger.SetRankID(ctx, rankID)
	ctx = logger.SetCategory(ctx, category.String())

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	logger.CtxInfo(ctx, "Starting ranking with %d query variants across %d sources", len(variants), len(providers))

	unifier := unify.New()
	sourceLabels := make([]string, 0, len(providers))
	failedSources := append([]string{}, unknownSources...)

	for _, p := range providers {
		sourceLabels = append(sourceLabels, p.Name())
		answered := false
		for qi, q := range variants {
			records, err := p.Search(ctx, q, e.cfg.PerSourceLimit)
			if err != nil {
				logger.FromContext(ctx).WithError(err).WithField(logger.FieldSource, p.Name()).
					Warnf("Source query failed: %q", q)
				if errors.Is(err, domain.ErrSourceUnavailable) {
					// The source is down, not just this query. Stop hitting it.
					break
				}
				continue
			}
			answered = true
			unifier.Add(p.Name(), qi, p.IdentityKey(), records)
		}
		if !answered {
			failedSources = append(failedSources, p.Name())
		}
	}

	if len(failedSources) == len(providers)+len(unknownSources) {
		return nil, fmt.Errorf("%w: every source failed", domain.ErrSourceUnavailable)
	}

	cands := unifier.Candidates()
	result := &RankResult{
		RankID:           rankID,
		Category:         category,
		Theme:            theme,
		QueryVariants:    variants,
		UniqueCandidates: len(cands),
		DroppedRecords:   unifier.Dropped(),
		FailedSources:    failedSources,
	}

	// Candidates already promoted into this partition never resurface.
	curated, err := e.corpus.CuratedKeys(ctx, category)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to load curated keys, skipping exclusion")
		curated = nil
	}
	fresh := make([]*domain.CandidateRecord, 0, len(cands))
	for _, cand := range cands {
		if curated[cand.IdentityKey] {
			result.AlreadyCurated++
			continue
		}
		fresh = append(fresh, cand)
	}

	scorer := prefilter.NewScorer(category.EventType, e.cfg.Weights)
	pre := scorer.Apply(fresh)
	result.RejectedByHeuristic = pre.Rejected

	result.FetchFailures = int(e.embedCandidates(ctx, pre.Passed))

	// The request deadline bounds fetch/embed only; ranking and aggregation
	// still run over whatever subset completed before it expired.
	ctx = context.WithoutCancel(ctx)

	ranked, err := e.ranker.Rank(ctx, category, pre.Passed)
	if err != nil {
		return nil, err
	}

	result.Shortlist = rank.SelectDiverse(ranked, e.cfg.Diversity)
	result.Sources, result.CombinedTotal = rank.Aggregate(ranked, sourceLabels, e.cfg.Diversity)
	result.ElapsedMs = time.Since(start).Milliseconds()

	e.storeSession(category, ranked)

	logger.With(logger.Fields{
		"unique":      result.UniqueCandidates,
		"rejected":    result.RejectedByHeuristic,
		"failed":      result.FetchFailures,
		"ranked":      len(ranked),
		"shortlist":   len(result.Shortlist),
		"duration_ms": result.ElapsedMs,
	}).Info(ctx, "Ranking completed")

	return result, nil
}

// selectProviders filters configured providers down to the requested source
// names. Empty means all. Requested names without a provider come back in
// unknown so they can be reported rather than silently ignored.
func (e *Engine) selectProviders(sources []string) (selected []provider.Adapter, unknown []string) {
	if len(sources) == 0 {
		return e.providers, nil
	}

	byName := make(map[string]provider.Adapter, len(e.providers))
	for _, p := range e.providers {
		byName[p.Name()] = p
	}
	for _, name := range sources {
		if p, ok := byName[name]; ok {
			selected = append(selected, p)
		} else {
			unknown = append(unknown, name)
		}
	}
	return selected, unknown
}

// embedCandidates fetches and embeds candidates on a bounded worker pool.
// Candidates that fail are marked fetch_failed and stay in the slice with a
// nil embedding. Returns the failure count.
func (e *Engine) embedCandidates(ctx context.Context, cands []*domain.CandidateRecord) int64 {
	itemsChan := make(chan *domain.CandidateRecord, e.cfg.Workers*2)

	var failed int64
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range itemsChan {
				if ctx.Err() != nil {
					// Deadline hit: drain without marking failure so the
					// candidate reports as unscored, not fetch_failed.
					continue
				}

				body, err := e.fetcher.Fetch(ctx, cand.RawURL)
				if err != nil {
					cand.Status = domain.CandidateFetchFailed
					atomic.AddInt64(&failed, 1)
					logger.FromContext(ctx).WithError(err).
						Warnf("Fetch failed for %s", cand.IdentityKey)
					continue
				}

				vector, err := e.embedder.Embed(ctx, body)
				if err != nil {
					cand.Status = domain.CandidateFetchFailed
					atomic.AddInt64(&failed, 1)
					logger.FromContext(ctx).WithError(err).
						Warnf("Embedding failed for %s", cand.IdentityKey)
					continue
				}
				cand.Embedding = vector
			}
		}()
	}

	for _, cand := range cands {
		itemsChan <- cand
	}
	close(itemsChan)
	wg.Wait()

	return failed
}

// sessionKey returns the session cache key for one partition.
func sessionKey(category domain.Category) string {
	return "session:" + category.String()
}

// storeSession records the last ranking's candidates so a follow-up curation
// call can resolve identity keys without re-running the pipeline.
func (e *Engine) storeSession(category domain.Category, ranked []*domain.CandidateRecord) {
	byKey := make(map[string]*domain.CandidateRecord, len(ranked))
	for _, cand := range ranked {
		byKey[cand.IdentityKey] = cand
	}
	e.sessions.Set(sessionKey(category), byKey, gocache.DefaultExpiration)
}

// sessionFor returns the candidate index of the last ranking for a partition.
func (e *Engine) sessionFor(category domain.Category) (map[string]*domain.CandidateRecord, bool) {
	v, found := e.sessions.Get(sessionKey(category))
	if !found {
		return nil, false
	}
	byKey, ok := v.(map[string]*domain.CandidateRecord)
	return byKey, ok
}
