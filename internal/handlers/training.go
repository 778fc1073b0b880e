package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/services"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// TrainingHandler triggers C6's batch retraining run on demand, in
// addition to whatever out-of-band scheduler invokes it periodically.
type TrainingHandler struct {
	trainer *services.Trainer
	cfg     config.TrainingConfig
	logger  *logrus.Logger
}

func NewTrainingHandler(trainer *services.Trainer, cfg config.TrainingConfig, logger *logrus.Logger) *TrainingHandler {
	return &TrainingHandler{trainer: trainer, cfg: cfg, logger: logger}
}

func (h *TrainingHandler) Train(c *gin.Context) {
	var req models.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = models.TrainRequest{}
	}
	if req.Days == 0 {
		req.Days = h.cfg.DefaultDays
	}

	summary, err := h.trainer.Train(c.Request.Context(), req.Days, req.LearningRate)
	if err != nil {
		h.logger.WithError(err).Error("training run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "TRAIN_FAILED", "message": err.Error()}})
		return
	}

	c.JSON(http.StatusOK, summary)
}
