// Package corpus persists the exemplar corpus: the per-category partitions of
// reference embeddings that candidates are ranked against, grown over time by
// curation.
package corpus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asha/decorscout/internal/domain"
)

// Store handles exemplar persistence. Reads run concurrently; appends into the
// same partition are serialized so curation cannot race itself into duplicate
// rows.
type Store struct {
	db *gorm.DB

	mu         sync.Mutex
	partitions map[string]*sync.Mutex
}

// NewStore creates a new Store.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *Store: store instance bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		partitions: make(map[string]*sync.Mutex),
	}
}

// partitionLock returns the mutex guarding writes to one category partition.
func (s *Store) partitionLock(category domain.Category) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := category.String()
	lock, ok := s.partitions[key]
	if !ok {
		lock = &sync.Mutex{}
		s.partitions[key] = lock
	}
	return lock
}

// EmbeddingsFor returns the embeddings of one category partition, oldest
// first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: target partition.
// Returns:
//   - []domain.ExemplarEmbedding: partition contents, possibly empty.
//   - error: non-nil if the query fails.
func (s *Store) EmbeddingsFor(ctx context.Context, category domain.Category) ([]domain.ExemplarEmbedding, error) {
	var exemplars []domain.ExemplarImage
	if err := s.db.WithContext(ctx).
		Where("event_type = ? AND budget_bucket = ?", category.EventType, category.BudgetBucket).
		Order("created_at ASC").
		Find(&exemplars).Error; err != nil {
		return nil, fmt.Errorf("failed to load exemplar partition: %w", err)
	}

	embeddings := make([]domain.ExemplarEmbedding, 0, len(exemplars))
	for _, ex := range exemplars {
		embeddings = append(embeddings, domain.ExemplarEmbedding{
			ID:        ex.ID,
			Vector:    ex.Embedding,
			CreatedAt: ex.CreatedAt,
		})
	}
	return embeddings, nil
}

// Append adds an exemplar to its category partition. The append is
// idempotent: an exemplar whose identity key or content hash already exists
// in the partition is not inserted again and the call reports
// ErrDuplicateCuration.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - exemplar: record to persist; ID and CreatedAt are filled in when empty.
// Returns:
//   - error: ErrDuplicateCuration (wrapped) on a repeat append, otherwise
//     non-nil only if persistence fails.
func (s *Store) Append(ctx context.Context, exemplar *domain.ExemplarImage) error {
	category := exemplar.Category()
	if err := category.Validate(); err != nil {
		return err
	}

	lock := s.partitionLock(category)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.existsLocked(ctx, category, exemplar.IdentityKey, exemplar.ContentHash)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s in %s", domain.ErrDuplicateCuration, exemplar.IdentityKey, category)
	}

	if exemplar.ID == "" {
		exemplar.ID = uuid.New().String()
	}
	if exemplar.CreatedAt.IsZero() {
		exemplar.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(exemplar).Error; err != nil {
		return fmt.Errorf("failed to append exemplar: %w", err)
	}
	return nil
}

// existsLocked checks for a duplicate by identity key or content hash within
// one partition. Caller holds the partition lock.
func (s *Store) existsLocked(ctx context.Context, category domain.Category, identityKey, contentHash string) (bool, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&domain.ExemplarImage{}).
		Where("event_type = ? AND budget_bucket = ?", category.EventType, category.BudgetBucket)
	if contentHash != "" {
		query = query.Where("identity_key = ? OR content_hash = ?", identityKey, contentHash)
	} else {
		query = query.Where("identity_key = ?", identityKey)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check exemplar existence: %w", err)
	}
	return count > 0, nil
}

// ExistsByIdentity checks whether an identity key is already curated into a
// partition.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: target partition.
//   - identityKey: canonical candidate identity.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (s *Store) ExistsByIdentity(ctx context.Context, category domain.Category, identityKey string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.ExemplarImage{}).
		Where("event_type = ? AND budget_bucket = ? AND identity_key = ?",
			category.EventType, category.BudgetBucket, identityKey).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check exemplar existence: %w", err)
	}
	return count > 0, nil
}

// CuratedKeys returns the identity keys already curated into a partition.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: target partition.
// Returns:
//   - map[string]bool: set of curated identity keys.
//   - error: non-nil if the query fails.
func (s *Store) CuratedKeys(ctx context.Context, category domain.Category) (map[string]bool, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&domain.ExemplarImage{}).
		Where("event_type = ? AND budget_bucket = ?", category.EventType, category.BudgetBucket).
		Pluck("identity_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list curated keys: %w", err)
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set, nil
}

// PartitionStats summarizes one category partition of the corpus.
type PartitionStats struct {
	Category  domain.Category `json:"category"`
	Total     int64           `json:"total"`
	Seed      int64           `json:"seed"`
	Curated   int64           `json:"curated"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// Stats returns per-partition corpus counts for every non-empty partition.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []PartitionStats: one entry per partition holding at least one exemplar.
//   - error: non-nil if the query fails.
func (s *Store) Stats(ctx context.Context) ([]PartitionStats, error) {
	type row struct {
		EventType    domain.EventType
		BudgetBucket domain.BudgetBucket
		Provenance   domain.Provenance
		Count        int64
		LastCreated  time.Time
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&domain.ExemplarImage{}).
		Select("event_type, budget_bucket, provenance, COUNT(*) AS count, MAX(created_at) AS last_created").
		Group("event_type, budget_bucket, provenance").
		Order("event_type, budget_bucket").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to compute corpus stats: %w", err)
	}

	byPartition := make(map[string]*PartitionStats)
	order := make([]string, 0)
	for _, r := range rows {
		cat := domain.Category{EventType: r.EventType, BudgetBucket: r.BudgetBucket}
		key := cat.String()
		stats, ok := byPartition[key]
		if !ok {
			stats = &PartitionStats{Category: cat}
			byPartition[key] = stats
			order = append(order, key)
		}
		stats.Total += r.Count
		switch r.Provenance {
		case domain.ProvenanceUserCurated:
			stats.Curated += r.Count
		default:
			stats.Seed += r.Count
		}
		if stats.UpdatedAt == nil || r.LastCreated.After(*stats.UpdatedAt) {
			last := r.LastCreated
			stats.UpdatedAt = &last
		}
	}

	out := make([]PartitionStats, 0, len(order))
	for _, key := range order {
		out = append(out, *byPartition[key])
	}
	return out, nil
}
