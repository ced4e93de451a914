package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/provider"
)

// fakeProvider returns one prepared batch per Search call, in order.
type fakeProvider struct {
	name    string
	batches [][]provider.RawRecord
	err     error

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ string, _ int) ([]provider.RawRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.batches) {
		f.calls++
		return nil, nil
	}
	batch := f.batches[f.calls]
	f.calls++
	return batch, nil
}

func (f *fakeProvider) IdentityKey() provider.Canonicalizer {
	return func(rec provider.RawRecord) (string, error) {
		if rec.RawURL == "" {
			return "", errors.New("no url")
		}
		return "url:" + rec.RawURL, nil
	}
}

// fakeFetcher serves bytes from a map; missing URLs fail.
type fakeFetcher struct {
	images map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := f.images[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchFailed, rawURL)
	}
	return body, nil
}

// blockingFetcher serves fast URLs from a map and holds blocked URLs until
// the request context expires.
type blockingFetcher struct {
	fast  map[string][]byte
	block map[string]bool
}

func (f *blockingFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.block[rawURL] {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, ctx.Err())
	}
	body, ok := f.fast[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchFailed, rawURL)
	}
	return body, nil
}

// fakeEmbedder maps content strings to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, imageBytes []byte) ([]float32, error) {
	vec, ok := f.vectors[string(imageBytes)]
	if !ok {
		return nil, errors.New("unknown content")
	}
	return vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

// fakeCorpus is an in-memory CorpusStore.
type fakeCorpus struct {
	mu        sync.Mutex
	exemplars map[string][]domain.ExemplarImage
	nextID    int
}

func newFakeCorpus() *fakeCorpus {
	return &fakeCorpus{exemplars: make(map[string][]domain.ExemplarImage)}
}

func (f *fakeCorpus) EmbeddingsFor(_ context.Context, category domain.Category) ([]domain.ExemplarEmbedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ExemplarEmbedding, 0)
	for _, ex := range f.exemplars[category.String()] {
		out = append(out, domain.ExemplarEmbedding{ID: ex.ID, Vector: ex.Embedding, CreatedAt: ex.CreatedAt})
	}
	return out, nil
}

func (f *fakeCorpus) CuratedKeys(_ context.Context, category domain.Category) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make(map[string]bool)
	for _, ex := range f.exemplars[category.String()] {
		if ex.Provenance == domain.ProvenanceUserCurated {
			keys[ex.IdentityKey] = true
		}
	}
	return keys, nil
}

func (f *fakeCorpus) Append(_ context.Context, exemplar *domain.ExemplarImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := exemplar.Category().String()
	for _, ex := range f.exemplars[key] {
		if ex.IdentityKey == exemplar.IdentityKey || ex.ContentHash == exemplar.ContentHash {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCuration, exemplar.IdentityKey)
		}
	}
	f.nextID++
	exemplar.ID = fmt.Sprintf("ex-%d", f.nextID)
	f.exemplars[key] = append(f.exemplars[key], *exemplar)
	return nil
}

func (f *fakeCorpus) seed(category domain.Category, id string, vector []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exemplars[category.String()] = append(f.exemplars[category.String()], domain.ExemplarImage{
		ID:           id,
		EventType:    category.EventType,
		BudgetBucket: category.BudgetBucket,
		IdentityKey:  "seed:" + id,
		ContentHash:  "seedhash:" + id,
		Embedding:    vector,
		Provenance:   domain.ProvenanceSeed,
	})
}

// fakeObjects is an in-memory object store.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *fakeObjects) Download(_ context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeObjects) GetURL(key string) string { return "fake://" + key }

func (f *fakeObjects) Delete(_ context.Context, key string) error { return nil }

func (f *fakeObjects) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func weddingMid() domain.Category {
	return domain.Category{EventType: domain.EventWedding, BudgetBucket: domain.BudgetMid}
}

func rec(url, title string) provider.RawRecord {
	return provider.RawRecord{RawURL: url, Title: title}
}

// newTestEngine builds an engine around one provider whose records exercise
// dedup, heuristic rejection, and fetch failure in a single pass.
func newTestEngine(t *testing.T) (*Engine, *fakeCorpus) {
	t.Helper()

	prov := &fakeProvider{
		name: "pinterest",
		batches: [][]provider.RawRecord{
			{
				rec("https://img.example/a.jpg", "wedding welcome sign decor"),
				rec("https://img.example/b.jpg", "welcome board display"),
				rec("https://img.example/c.jpg", "welcome sign vector clipart template"),
			},
			{
				// a again, from the second query variant: occurrence 2.
				rec("https://img.example/a.jpg", "wedding welcome sign decor"),
				rec("https://img.example/d.jpg", "wedding welcome board photo"),
				rec("https://img.example/e.jpg", "wedding entrance decor photo"),
			},
		},
	}

	fetcher := &fakeFetcher{images: map[string][]byte{
		"https://img.example/a.jpg": []byte("img-a"),
		"https://img.example/b.jpg": []byte("img-b"),
		// d is intentionally missing: fetch failure.
		"https://img.example/e.jpg": []byte("img-e"),
	}}

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"img-a": {1, 0},
		"img-b": {0.6, 0.8},
		"img-e": {0, 1},
	}}

	store := newFakeCorpus()
	store.seed(weddingMid(), "seed-1", []float32{1, 0})

	eng := NewEngine([]provider.Adapter{prov}, fetcher, embedder, store, newFakeObjects(), Config{Workers: 2})
	return eng, store
}

func TestRankCandidatesPipeline(t *testing.T) {
	eng, _ := newTestEngine(t)

	result, err := eng.RankCandidates(context.Background(), weddingMid(), "", nil)
	if err != nil {
		t.Fatalf("RankCandidates failed: %v", err)
	}

	// a, b, c, d, e: five unique across two batches.
	if result.UniqueCandidates != 5 {
		t.Errorf("unique = %d, want 5", result.UniqueCandidates)
	}
	// c carries three exclusion terms and sinks below the floor.
	if result.RejectedByHeuristic != 1 {
		t.Errorf("rejected = %d, want 1", result.RejectedByHeuristic)
	}
	if result.FetchFailures != 1 {
		t.Errorf("fetch failures = %d, want 1", result.FetchFailures)
	}
	if len(result.FailedSources) != 0 {
		t.Errorf("unexpected failed sources: %v", result.FailedSources)
	}

	// a, b, e survive to ranking. a matches the seed exemplar exactly.
	if len(result.Shortlist) != 3 {
		t.Fatalf("shortlist = %d, want 3", len(result.Shortlist))
	}
	if result.Shortlist[0].IdentityKey != "url:https://img.example/a.jpg" {
		t.Errorf("top candidate = %s, want a", result.Shortlist[0].IdentityKey)
	}
	if result.Shortlist[0].OccurrenceCount != 2 {
		t.Errorf("top candidate occurrence = %d, want 2", result.Shortlist[0].OccurrenceCount)
	}
	for i := 1; i < len(result.Shortlist); i++ {
		prev, cur := *result.Shortlist[i-1].SimilarityScore, *result.Shortlist[i].SimilarityScore
		if prev < cur {
			t.Errorf("shortlist similarity not monotone at %d: %f < %f", i, prev, cur)
		}
	}

	stats, ok := result.Sources["pinterest"]
	if !ok {
		t.Fatal("missing pinterest source stats")
	}
	if stats.TotalResults != 3 {
		t.Errorf("pinterest total = %d, want 3 ranked", stats.TotalResults)
	}
	if stats.TopSimilarity == nil || *stats.TopSimilarity < 0.999 {
		t.Errorf("pinterest top similarity = %v, want ~1.0", stats.TopSimilarity)
	}
}

func TestRankCandidatesDeadlinePartialResults(t *testing.T) {
	// One worker processes candidates in identity-key order: a completes,
	// b holds the worker until the request deadline, and c is still queued
	// when it expires. The request must return with a scored, b counted as a
	// fetch failure, and c drained as unscored rather than failed.
	prov := &fakeProvider{
		name: "pinterest",
		batches: [][]provider.RawRecord{
			{
				rec("https://img.example/a.jpg", "wedding welcome board photo"),
				rec("https://img.example/b.jpg", "wedding welcome sign decor"),
				rec("https://img.example/c.jpg", "wedding entrance welcome display"),
			},
		},
	}
	fetcher := &blockingFetcher{
		fast: map[string][]byte{
			"https://img.example/a.jpg": []byte("img-a"),
			"https://img.example/c.jpg": []byte("img-c"),
		},
		block: map[string]bool{"https://img.example/b.jpg": true},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"img-a": {1, 0},
		"img-c": {0, 1},
	}}
	store := newFakeCorpus()
	store.seed(weddingMid(), "seed-1", []float32{1, 0})

	eng := NewEngine([]provider.Adapter{prov}, fetcher, embedder, store, newFakeObjects(), Config{
		Workers:        1,
		RequestTimeout: 100 * time.Millisecond,
	})

	result, err := eng.RankCandidates(context.Background(), weddingMid(), "", nil)
	if err != nil {
		t.Fatalf("RankCandidates failed instead of returning partial results: %v", err)
	}

	// Only the blocked candidate counts as a failure; the drained one stays
	// unscored without inflating the failure count.
	if result.FetchFailures != 1 {
		t.Errorf("fetch failures = %d, want 1", result.FetchFailures)
	}
	if len(result.Shortlist) != 1 {
		t.Fatalf("shortlist = %d, want 1 completed candidate", len(result.Shortlist))
	}
	if result.Shortlist[0].IdentityKey != "url:https://img.example/a.jpg" {
		t.Errorf("shortlist candidate = %s, want a", result.Shortlist[0].IdentityKey)
	}
	if result.Shortlist[0].SimilarityScore == nil || *result.Shortlist[0].SimilarityScore < 0.999 {
		t.Errorf("completed candidate score = %v, want ~1.0", result.Shortlist[0].SimilarityScore)
	}
}

func TestRankCandidatesSourceFilter(t *testing.T) {
	prov := &fakeProvider{
		name: "pinterest",
		batches: [][]provider.RawRecord{
			{rec("https://img.example/a.jpg", "wedding welcome sign decor")},
		},
	}
	other := &fakeProvider{
		name: "googleimages",
		batches: [][]provider.RawRecord{
			{rec("https://img.example/z.jpg", "wedding welcome board")},
		},
	}
	fetcher := &fakeFetcher{images: map[string][]byte{
		"https://img.example/a.jpg": []byte("img-a"),
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"img-a": {1, 0}}}
	store := newFakeCorpus()
	store.seed(weddingMid(), "seed-1", []float32{1, 0})

	eng := NewEngine([]provider.Adapter{prov, other}, fetcher, embedder, store, newFakeObjects(), Config{Workers: 1})

	result, err := eng.RankCandidates(context.Background(), weddingMid(), "", []string{"pinterest", "bing"})
	if err != nil {
		t.Fatalf("RankCandidates failed: %v", err)
	}

	other.mu.Lock()
	queried := other.calls
	other.mu.Unlock()
	if queried != 0 {
		t.Errorf("unrequested source was queried %d times", queried)
	}
	if _, ok := result.Sources["googleimages"]; ok {
		t.Error("unrequested source present in stats")
	}
	if len(result.FailedSources) != 1 || result.FailedSources[0] != "bing" {
		t.Errorf("failed sources = %v, want [bing]", result.FailedSources)
	}

	if _, err := eng.RankCandidates(context.Background(), weddingMid(), "", []string{"bing"}); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable for unknown-only sources, got %v", err)
	}
}

func TestRankCandidatesAllSourcesDown(t *testing.T) {
	down := &fakeProvider{
		name: "pinterest",
		err:  fmt.Errorf("%w: 503", domain.ErrSourceUnavailable),
	}
	eng := NewEngine([]provider.Adapter{down}, &fakeFetcher{}, &fakeEmbedder{}, newFakeCorpus(), newFakeObjects(), Config{})

	_, err := eng.RankCandidates(context.Background(), weddingMid(), "", nil)
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRankCandidatesEmptyCorpus(t *testing.T) {
	eng, _ := newTestEngine(t)

	empty := domain.Category{EventType: domain.EventHaldi, BudgetBucket: domain.BudgetLow}
	_, err := eng.RankCandidates(context.Background(), empty, "", nil)
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestRankCandidatesInvalidCategory(t *testing.T) {
	eng, _ := newTestEngine(t)

	bad := domain.Category{EventType: "prom", BudgetBucket: domain.BudgetLow}
	_, err := eng.RankCandidates(context.Background(), bad, "", nil)
	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCurateSelection(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.RankCandidates(ctx, weddingMid(), "", nil); err != nil {
		t.Fatalf("RankCandidates failed: %v", err)
	}

	report, err := eng.CurateSelection(ctx, weddingMid(), []string{
		"url:https://img.example/a.jpg",
		"url:https://img.example/nope.jpg",
	})
	if err != nil {
		t.Fatalf("CurateSelection failed: %v", err)
	}
	if report.Curated != 1 || report.Failed != 1 || report.Duplicates != 0 {
		t.Fatalf("report = curated %d failed %d duplicates %d, want 1/1/0",
			report.Curated, report.Failed, report.Duplicates)
	}
	if report.Items[0].Status != CurationCurated || report.Items[0].ExemplarID == "" {
		t.Errorf("first item = %+v, want curated with exemplar ID", report.Items[0])
	}
	if report.Items[1].Status != CurationFailed {
		t.Errorf("second item = %+v, want failed", report.Items[1])
	}

	// The partition grew by one.
	embeddings, err := store.EmbeddingsFor(ctx, weddingMid())
	if err != nil {
		t.Fatalf("EmbeddingsFor failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Errorf("partition size = %d, want 2", len(embeddings))
	}

	// Re-approving the same candidate is a reported no-op.
	again, err := eng.CurateSelection(ctx, weddingMid(), []string{"url:https://img.example/a.jpg"})
	if err != nil {
		t.Fatalf("repeat CurateSelection failed: %v", err)
	}
	if again.Duplicates != 1 || again.Curated != 0 {
		t.Errorf("repeat report = curated %d duplicates %d, want 0/1", again.Curated, again.Duplicates)
	}
}

func TestCurateSelectionWithoutSession(t *testing.T) {
	eng, _ := newTestEngine(t)

	report, err := eng.CurateSelection(context.Background(), weddingMid(), []string{"url:https://img.example/a.jpg"})
	if err != nil {
		t.Fatalf("CurateSelection failed: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report failed = %d, want 1", report.Failed)
	}
	if report.Items[0].Error == "" {
		t.Error("expected an error message on the failed item")
	}
}

func TestCurateSelectionExcludedFromNextRanking(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.RankCandidates(ctx, weddingMid(), "", nil); err != nil {
		t.Fatalf("first RankCandidates failed: %v", err)
	}
	if _, err := eng.CurateSelection(ctx, weddingMid(), []string{"url:https://img.example/a.jpg"}); err != nil {
		t.Fatalf("CurateSelection failed: %v", err)
	}

	prov := &fakeProvider{
		name: "pinterest",
		batches: [][]provider.RawRecord{
			{rec("https://img.example/a.jpg", "wedding welcome sign decor")},
		},
	}
	fetcher := &fakeFetcher{images: map[string][]byte{
		"https://img.example/a.jpg": []byte("img-a"),
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"img-a": {1, 0}}}

	// Reuse the corpus that now contains the curated exemplar.
	engReuse := NewEngine([]provider.Adapter{prov}, fetcher, embedder, eng.corpus, newFakeObjects(), Config{Workers: 1})
	res, err := engReuse.RankCandidates(ctx, weddingMid(), "", nil)
	if err != nil {
		t.Fatalf("re-rank failed: %v", err)
	}
	if res.AlreadyCurated != 1 {
		t.Errorf("already curated = %d, want 1", res.AlreadyCurated)
	}
	if len(res.Shortlist) != 0 {
		t.Errorf("curated candidate resurfaced in shortlist: %v", res.Shortlist[0].IdentityKey)
	}
}
