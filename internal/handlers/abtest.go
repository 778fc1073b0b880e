package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/services"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/validation"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// ABTestHandler exposes C7/C8's lifecycle: start a rollout, inspect its
// live significance, and end it once a winner is declared.
type ABTestHandler struct {
	store        store.Store
	significance *services.ABSignificanceService
	schema       *validation.SchemaValidator
	logger       *logrus.Logger
	validator    *validator.Validate
	idGen        func() string
}

func NewABTestHandler(s store.Store, significance *services.ABSignificanceService, schema *validation.SchemaValidator, logger *logrus.Logger, idGen func() string) *ABTestHandler {
	return &ABTestHandler{store: s, significance: significance, schema: schema, logger: logger, validator: validator.New(), idGen: idGen}
}

func (h *ABTestHandler) Start(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "failed to read request body"}})
		return
	}

	if violations, err := h.schema.ValidateABStart(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "invalid request body"}})
		return
	} else if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "SCHEMA_VALIDATION_FAILED", "message": "request does not match schema", "details": violations}})
		return
	}

	var req models.ABStartRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "invalid request body"}})
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}
	if req.ControlPct == 0 {
		req.ControlPct = 50
	}

	end := time.Now().AddDate(0, 0, req.DurationDays)
	cfg := &models.ABTestConfig{
		TestID:     h.idGen(),
		Name:       req.TestName,
		Status:     models.ABStatusActive,
		ControlPct: req.ControlPct,
		Start:      time.Now().UTC(),
		End:        &end,
	}

	if err := h.store.ABCreateConfig(c.Request.Context(), cfg); err != nil {
		h.logger.WithError(err).Error("failed to create ab test config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "AB_START_FAILED", "message": "failed to start test"}})
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

func (h *ABTestHandler) Dashboard(c *gin.Context) {
	result, err := h.significance.EvaluateActive(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "DASHBOARD_FAILED", "message": "failed to evaluate active test"}})
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ABTestHandler) End(c *gin.Context) {
	testID := c.Param("testId")

	result, err := h.significance.EvaluateActive(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.WithError(err).WithField("test_id", testID).Error("failed to evaluate test before ending it")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "AB_END_FAILED", "message": "failed to evaluate test"}})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "AB_TEST_NOT_ACTIVE", "message": "no active test to end"}})
		return
	}

	var winner *models.ABGroup
	if result.TestID == testID {
		winner = result.Winner
	}

	if err := h.store.ABEndConfig(c.Request.Context(), testID, winner); err != nil {
		h.logger.WithError(err).WithField("test_id", testID).Error("failed to end ab test")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "AB_END_FAILED", "message": "failed to end test"}})
		return
	}

	c.JSON(http.StatusOK, result)
}
