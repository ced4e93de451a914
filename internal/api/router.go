package api

import (
	"github.com/gin-gonic/gin"

	"github.com/asha/decorscout/internal/api/handler"
	"github.com/asha/decorscout/internal/api/middleware"
	"github.com/asha/decorscout/internal/config"
	"github.com/asha/decorscout/internal/corpus"
	"github.com/asha/decorscout/internal/engine"
	"github.com/asha/decorscout/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	eng *engine.Engine,
	store *corpus.Store,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	rankHandler := handler.NewRankHandler(eng)
	corpusHandler := handler.NewCorpusHandler(store)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Ranking and curation
		v1.POST("/rank", rankHandler.Rank)
		v1.POST("/curate", rankHandler.Curate)

		// Category enumeration
		v1.GET("/categories", corpusHandler.GetCategories)

		// Corpus inspection
		v1.GET("/corpus/stats", corpusHandler.GetStats)
	}

	return r
}
