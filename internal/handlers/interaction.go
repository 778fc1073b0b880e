package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/services"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// InteractionHandler is the HTTP front door for C9: it binds and
// validates the incoming event, then hands it to IngestService.Record.
type InteractionHandler struct {
	ingest    *services.IngestService
	logger    *logrus.Logger
	validator *validator.Validate
}

func NewInteractionHandler(ingest *services.IngestService, logger *logrus.Logger) *InteractionHandler {
	return &InteractionHandler{ingest: ingest, logger: logger, validator: validator.New()}
}

func (h *InteractionHandler) Record(c *gin.Context) {
	var req models.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "invalid request body", "details": err.Error()}})
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	kind := models.InteractionKind(req.Kind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_KIND", "message": "unrecognized interaction kind"}})
		return
	}

	interaction := &models.Interaction{
		ID:        uuid.New(),
		UserID:    req.UserID,
		ItemID:    req.ItemID,
		Kind:      kind,
		Position:  req.Position,
		DurationS: req.DurationS,
		Timestamp: time.Now().UTC(),
		SessionID: req.SessionID,
	}

	reward, err := h.ingest.Record(c.Request.Context(), interaction)
	if err != nil {
		h.logger.WithError(err).WithField("item_id", req.ItemID).Error("failed to record interaction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INGEST_FAILED", "message": "failed to record interaction"}})
		return
	}

	c.JSON(http.StatusCreated, models.InteractionResponse{Reward: reward, Updated: true})
}
