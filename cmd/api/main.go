package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asha/decorscout/internal/api"
	"github.com/asha/decorscout/internal/config"
	"github.com/asha/decorscout/internal/corpus"
	"github.com/asha/decorscout/internal/embed"
	"github.com/asha/decorscout/internal/engine"
	"github.com/asha/decorscout/internal/logger"
	"github.com/asha/decorscout/internal/prefilter"
	"github.com/asha/decorscout/internal/provider"
	"github.com/asha/decorscout/internal/provider/dataset"
	"github.com/asha/decorscout/internal/provider/googleimages"
	"github.com/asha/decorscout/internal/provider/pinterest"
	"github.com/asha/decorscout/internal/rank"
	"github.com/asha/decorscout/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog := logger.NewDefault()
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Initialize database and corpus store
	db, err := corpus.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}
	store := corpus.NewStore(db)

	// Initialize object storage for curated exemplar images
	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize candidate providers
	providers := buildProviders(cfg)
	if len(providers) == 0 {
		appLog.Fatal("No candidate providers enabled")
	}

	// Initialize embedding backend with content-hash caching
	clip := embed.NewClipEmbedder(&embed.ClipConfig{
		BaseURL:     cfg.Embedding.BaseURL,
		APIKey:      cfg.Embedding.APIKey,
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		MaxInFlight: cfg.Embedding.MaxInFlight,
	})
	embedder := embed.NewCachedEmbedder(clip, cfg.Embedding.CacheTTL)

	fetcher := embed.NewFetcher(&embed.FetcherConfig{
		Timeout:           cfg.Fetch.Timeout,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		MaxBytes:          cfg.Fetch.MaxBytes,
	})

	// Initialize the ranking engine
	weights := prefilter.DefaultWeights()
	weights.Floor = cfg.Rank.HeuristicFloor
	eng := engine.NewEngine(providers, fetcher, embedder, store, objectStorage, engine.Config{
		PerSourceLimit: cfg.Sources.PerSource,
		Workers:        cfg.Fetch.Workers,
		RequestTimeout: cfg.Fetch.RequestTimeout,
		SessionTTL:     cfg.Rank.SessionTTL,
		Weights:        weights,
		Diversity: rank.DiversityConfig{
			TopK:               cfg.Rank.TopK,
			DuplicateThreshold: cfg.Rank.DuplicateThreshold,
		},
	})

	// Setup router
	router := api.SetupRouter(eng, store, appLog, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLog.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	appLog.Info("Server exited")
}

// buildProviders assembles the enabled candidate sources in query order.
func buildProviders(cfg *config.Config) []provider.Adapter {
	providers := make([]provider.Adapter, 0, 3)
	if cfg.Sources.Pinterest.Enabled {
		providers = append(providers, pinterest.NewAdapter(&pinterest.Config{
			AccessToken: cfg.Sources.Pinterest.AccessToken,
			BaseURL:     cfg.Sources.Pinterest.BaseURL,
		}))
	}
	if cfg.Sources.GoogleImages.Enabled {
		providers = append(providers, googleimages.NewAdapter(&googleimages.Config{}))
	}
	if cfg.Sources.LocalDataset.Enabled {
		providers = append(providers, dataset.NewAdapter(cfg.Sources.LocalDataset.ManifestPath))
	}
	return providers
}
