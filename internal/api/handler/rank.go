package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/engine"
)

// RankHandler handles ranking and curation endpoints.
type RankHandler struct {
	engine *engine.Engine
}

// NewRankHandler creates a new rank handler.
// Parameters:
//   - eng: ranking engine.
// Returns:
//   - *RankHandler: initialized handler.
func NewRankHandler(eng *engine.Engine) *RankHandler {
	return &RankHandler{engine: eng}
}

// RankRequest is the body of POST /api/v1/rank.
type RankRequest struct {
	EventType    string `json:"event_type" binding:"required"`
	BudgetBucket string `json:"budget_bucket" binding:"required"`
	Theme        string `json:"theme"`
	// Sources restricts the query to the named providers; empty means all.
	Sources []string `json:"sources"`
}

// Rank handles POST /api/v1/rank.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RankHandler) Rank(c *gin.Context) {
	var req RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	category := domain.Category{
		EventType:    domain.EventType(req.EventType),
		BudgetBucket: domain.BudgetBucket(req.BudgetBucket),
	}

	result, err := h.engine.RankCandidates(c.Request.Context(), category, req.Theme, req.Sources)
	if err != nil {
		status, msg := rankErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CurateRequest is the body of POST /api/v1/curate.
type CurateRequest struct {
	EventType    string   `json:"event_type" binding:"required"`
	BudgetBucket string   `json:"budget_bucket" binding:"required"`
	IdentityKeys []string `json:"identity_keys" binding:"required"`
}

// Curate handles POST /api/v1/curate.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RankHandler) Curate(c *gin.Context) {
	var req CurateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	category := domain.Category{
		EventType:    domain.EventType(req.EventType),
		BudgetBucket: domain.BudgetBucket(req.BudgetBucket),
	}

	report, err := h.engine.CurateSelection(c.Request.Context(), category, req.IdentityKeys)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCategory) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Curation failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// rankErrorStatus maps pipeline errors onto HTTP statuses.
func rankErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCategory):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrEmptyCorpus):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "Ranking failed: " + err.Error()
	}
}
