package storage

import (
	"fmt"

	"github.com/asha/decorscout/internal/config"
)

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: storage configuration selecting the provider and its settings.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the provider is unknown or the client cannot be created.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalStorage(&cfg.Local)
	case "s3":
		return NewS3Storage(&cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Provider)
	}
}
