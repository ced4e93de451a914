package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Provenance records how an exemplar entered the corpus.
// Values include ProvenanceSeed and ProvenanceUserCurated.
type Provenance string

const (
	ProvenanceSeed        Provenance = "seed"
	ProvenanceUserCurated Provenance = "user_curated"
)

// FloatVector is a custom type for storing embedding vectors as JSON in the
// database.
type FloatVector []float32

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the vector.
//   - error: non-nil if marshaling fails.
func (v FloatVector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (v *FloatVector) Scan(value interface{}) error {
	if value == nil {
		*v = FloatVector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FloatVector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// ExemplarImage is a reference image with a precomputed embedding
// representing "good" output for one category. Immutable once created except
// for deletion by corpus maintenance.
//
// IdentityKey and ContentHash together form the persisted de-dup record: a
// candidate re-approved into the same partition is recognized and skipped.
type ExemplarImage struct {
	ID           string       `gorm:"type:text;primaryKey" json:"id"`
	EventType    EventType    `gorm:"type:text;not null;index:idx_exemplars_category;uniqueIndex:idx_exemplars_identity" json:"event_type"`
	BudgetBucket BudgetBucket `gorm:"type:text;not null;index:idx_exemplars_category;uniqueIndex:idx_exemplars_identity" json:"budget_bucket"`
	StorageKey   string       `gorm:"type:text;not null" json:"storage_key"`
	IdentityKey  string       `gorm:"type:text;not null;uniqueIndex:idx_exemplars_identity" json:"identity_key"`
	ContentHash  string       `gorm:"type:text;not null;index:idx_exemplars_hash" json:"content_hash"`
	Embedding    FloatVector  `gorm:"type:text;not null" json:"-"`
	Provenance   Provenance   `gorm:"type:text;not null;default:seed" json:"provenance"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName returns the database table name for ExemplarImage.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ExemplarImage) TableName() string {
	return "exemplar_images"
}

// Category returns the partition this exemplar belongs to.
func (e *ExemplarImage) Category() Category {
	return Category{EventType: e.EventType, BudgetBucket: e.BudgetBucket}
}

// ExemplarEmbedding is the slim projection of an exemplar used during
// ranking: id, vector, and the creation time used for tie-breaking.
type ExemplarEmbedding struct {
	ID        string
	Vector    []float32
	CreatedAt time.Time
}
