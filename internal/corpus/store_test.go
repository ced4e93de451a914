package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/asha/decorscout/internal/config"
	"github.com/asha/decorscout/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "corpus_test.db"),
		MaxIdleConns:    2,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	}
	db, err := InitDB(cfg)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return NewStore(db)
}

func haldiLow() domain.Category {
	return domain.Category{EventType: domain.EventHaldi, BudgetBucket: domain.BudgetLow}
}

func exemplar(category domain.Category, identityKey, contentHash string) *domain.ExemplarImage {
	return &domain.ExemplarImage{
		EventType:    category.EventType,
		BudgetBucket: category.BudgetBucket,
		StorageKey:   "exemplars/" + identityKey,
		IdentityKey:  identityKey,
		ContentHash:  contentHash,
		Embedding:    domain.FloatVector{0.1, 0.2, 0.3},
		Provenance:   domain.ProvenanceUserCurated,
	}
}

func TestAppendAndReadBack(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, exemplar(haldiLow(), "pin:101", "hash-a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	embeddings, err := store.EmbeddingsFor(ctx, haldiLow())
	if err != nil {
		t.Fatalf("EmbeddingsFor failed: %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(embeddings))
	}
	if len(embeddings[0].Vector) != 3 {
		t.Errorf("embedding vector not round-tripped: %v", embeddings[0].Vector)
	}
	if embeddings[0].ID == "" {
		t.Error("exemplar ID not assigned on append")
	}
}

func TestAppendDuplicateIdentityIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, exemplar(haldiLow(), "pin:101", "hash-a")); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	err := store.Append(ctx, exemplar(haldiLow(), "pin:101", "hash-b"))
	if !errors.Is(err, domain.ErrDuplicateCuration) {
		t.Fatalf("expected ErrDuplicateCuration, got %v", err)
	}

	embeddings, err := store.EmbeddingsFor(ctx, haldiLow())
	if err != nil {
		t.Fatalf("EmbeddingsFor failed: %v", err)
	}
	if len(embeddings) != 1 {
		t.Errorf("duplicate append grew the partition: %d rows", len(embeddings))
	}
}

func TestAppendDuplicateContentHashRejected(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, exemplar(haldiLow(), "pin:101", "hash-a")); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	// Different identity, same bytes: same image hosted at two URLs.
	err := store.Append(ctx, exemplar(haldiLow(), "url:https://other.example/a.jpg", "hash-a"))
	if !errors.Is(err, domain.ErrDuplicateCuration) {
		t.Fatalf("expected ErrDuplicateCuration for repeated content hash, got %v", err)
	}
}

func TestAppendSameIdentityAcrossPartitions(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	other := domain.Category{EventType: domain.EventWedding, BudgetBucket: domain.BudgetHigh}

	if err := store.Append(ctx, exemplar(haldiLow(), "pin:101", "hash-a")); err != nil {
		t.Fatalf("Append into first partition failed: %v", err)
	}
	if err := store.Append(ctx, exemplar(other, "pin:101", "hash-a")); err != nil {
		t.Fatalf("same identity must be curatable into a different partition: %v", err)
	}
}

func TestAppendInvalidCategory(t *testing.T) {
	store := testStore(t)

	bad := domain.Category{EventType: "bar_mitzvah", BudgetBucket: domain.BudgetLow}
	err := store.Append(context.Background(), exemplar(bad, "pin:1", "h"))
	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestConcurrentAppendsSamePartition(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Many goroutines racing on the same identity: exactly one insert wins.
	var wg sync.WaitGroup
	dupCount := 0
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Append(ctx, exemplar(haldiLow(), "pin:race", "hash-race"))
			if errors.Is(err, domain.ErrDuplicateCuration) {
				mu.Lock()
				dupCount++
				mu.Unlock()
			} else if err != nil {
				t.Errorf("unexpected append error: %v", err)
			}
		}()
	}
	wg.Wait()

	if dupCount != 7 {
		t.Errorf("expected 7 duplicate rejections, got %d", dupCount)
	}
	embeddings, err := store.EmbeddingsFor(ctx, haldiLow())
	if err != nil {
		t.Fatalf("EmbeddingsFor failed: %v", err)
	}
	if len(embeddings) != 1 {
		t.Errorf("race produced %d rows, want 1", len(embeddings))
	}
}

func TestStats(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	seedEx := exemplar(haldiLow(), "pin:seed", "hash-seed")
	seedEx.Provenance = domain.ProvenanceSeed
	if err := store.Append(ctx, seedEx); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, exemplar(haldiLow(), "pin:cur", "hash-cur")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(stats))
	}
	p := stats[0]
	if p.Total != 2 || p.Seed != 1 || p.Curated != 1 {
		t.Errorf("stats = total %d seed %d curated %d, want 2/1/1", p.Total, p.Seed, p.Curated)
	}
}
