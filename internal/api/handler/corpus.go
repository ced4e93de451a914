package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asha/decorscout/internal/corpus"
	"github.com/asha/decorscout/internal/domain"
)

// CorpusHandler handles corpus inspection endpoints.
type CorpusHandler struct {
	store *corpus.Store
}

// NewCorpusHandler creates a new corpus handler.
// Parameters:
//   - store: exemplar corpus store.
// Returns:
//   - *CorpusHandler: initialized handler.
func NewCorpusHandler(store *corpus.Store) *CorpusHandler {
	return &CorpusHandler{store: store}
}

// GetCategories handles GET /api/v1/categories.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CorpusHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"event_types":    domain.EventTypes(),
		"budget_buckets": domain.BudgetBuckets(),
	})
}

// GetStats handles GET /api/v1/corpus/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CorpusHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get corpus stats: " + err.Error(),
		})
		return
	}

	var total int64
	for _, p := range stats {
		total += p.Total
	}
	c.JSON(http.StatusOK, gin.H{
		"partitions": stats,
		"total":      total,
	})
}
