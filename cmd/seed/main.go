// Command seed loads curated reference images from a local directory tree
// into the exemplar corpus. The tree is laid out as
// <seed-dir>/<event_type>/<budget_bucket>/*.jpg; each image is embedded,
// uploaded to object storage, and appended to its category partition.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/asha/decorscout/internal/config"
	"github.com/asha/decorscout/internal/corpus"
	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/embed"
	"github.com/asha/decorscout/internal/logger"
	"github.com/asha/decorscout/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "decorscout-seed",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	seedDir := flag.String("dir", "", "Seed image directory (overrides corpus.seed_dir)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	dir := cfg.Corpus.SeedDir
	if *seedDir != "" {
		dir = *seedDir
	}

	appLogger.WithField("dir", dir).Info("Starting corpus seeding")

	// Initialize database and corpus store
	db, err := corpus.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	store := corpus.NewStore(db)

	// Initialize object storage
	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize embedding backend
	clip := embed.NewClipEmbedder(&embed.ClipConfig{
		BaseURL:     cfg.Embedding.BaseURL,
		APIKey:      cfg.Embedding.APIKey,
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		MaxInFlight: cfg.Embedding.MaxInFlight,
	})
	embedder := embed.NewCachedEmbedder(clip, cfg.Embedding.CacheTTL)

	ctx := context.Background()

	seeded, skipped, failed := 0, 0, 0
	err = walkSeedTree(dir, func(category domain.Category, path string) {
		if err := seedOne(ctx, store, objectStorage, embedder, category, path); err != nil {
			if errors.Is(err, domain.ErrDuplicateCuration) {
				skipped++
				return
			}
			failed++
			appLogger.WithError(err).WithField("path", path).Error("Failed to seed image")
			return
		}
		seeded++
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Seed walk failed")
	}

	appLogger.WithFields(logger.Fields{
		"seeded":  seeded,
		"skipped": skipped,
		"failed":  failed,
	}).Info("Corpus seeding completed")

	if failed > 0 {
		os.Exit(1)
	}
}

// walkSeedTree visits every image under dir, mapping the first two path
// segments to a category. Unknown categories and non-image files are skipped
// with a warning.
func walkSeedTree(dir string, visit func(category domain.Category, path string)) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			logger.Warn("Skipping file outside <event>/<budget>/ layout: %s", rel)
			return nil
		}

		category := domain.Category{
			EventType:    domain.EventType(parts[0]),
			BudgetBucket: domain.BudgetBucket(parts[1]),
		}
		if err := category.Validate(); err != nil {
			logger.Warn("Skipping file under unknown category %s: %s", parts[0]+"/"+parts[1], rel)
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".jpg", ".jpeg", ".png", ".webp", ".gif":
			visit(category, path)
		default:
			logger.Warn("Skipping non-image file: %s", rel)
		}
		return nil
	})
}

// seedOne embeds one image, uploads it, and appends it as a seed exemplar.
func seedOne(
	ctx context.Context,
	store *corpus.Store,
	objects storage.ObjectStorage,
	embedder embed.Embedder,
	category domain.Category,
	path string,
) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	contentHash := embed.ContentHash(body)
	identityKey := "seed:" + contentHash

	vector, err := embedder.Embed(ctx, body)
	if err != nil {
		return fmt.Errorf("failed to embed image: %w", err)
	}

	storageKey := fmt.Sprintf("exemplars/%s/%s/%s%s",
		category.EventType, category.BudgetBucket, contentHash, filepath.Ext(path))
	contentType := http.DetectContentType(body)
	if err := objects.Upload(ctx, storageKey, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	return store.Append(ctx, &domain.ExemplarImage{
		EventType:    category.EventType,
		BudgetBucket: category.BudgetBucket,
		StorageKey:   storageKey,
		IdentityKey:  identityKey,
		ContentHash:  contentHash,
		Embedding:    vector,
		Provenance:   domain.ProvenanceSeed,
	})
}
