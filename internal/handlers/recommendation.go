package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/services"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// RecommendationHandler serves C5's pipeline over HTTP, with the C7
// assignment gating whether RL reranking runs at all for a given user.
type RecommendationHandler struct {
	pipeline   *services.Pipeline
	assignment *services.ABAssignmentService
	logger     *logrus.Logger
}

func NewRecommendationHandler(pipeline *services.Pipeline, assignment *services.ABAssignmentService, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{pipeline: pipeline, assignment: assignment, logger: logger}
}

func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_USER_ID", "message": "user id must be a valid UUID"}})
		return
	}

	count := 10
	if countStr := c.Query("count"); countStr != "" {
		if parsed, err := strconv.Atoi(countStr); err == nil && parsed > 0 && parsed <= 100 {
			count = parsed
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	useRL, group, err := h.assignment.ShouldUseRL(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("ab assignment lookup failed, defaulting to similarity only")
		useRL = false
		group = nil
	}

	items, err := h.pipeline.Recommend(c.Request.Context(), userID, count, useRL, offset, group)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "RECOMMENDATION_FAILED", "message": "failed to generate recommendations"}})
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          userID,
		Recommendations: items,
		GeneratedAt:     time.Now().UTC(),
	})
}
