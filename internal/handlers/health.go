package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// HealthHandler pings the two persistence dependencies directly rather
// than through the Store interface, since a degraded dependency should
// be visible even if the Store layer would otherwise mask it.
type HealthHandler struct {
	logger *logrus.Logger
	pg     *pgxpool.Pool
	redis  *redis.Client
}

func NewHealthHandler(logger *logrus.Logger, pg *pgxpool.Pool, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{logger: logger, pg: pg, redis: redisClient}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := gin.H{}

	if err := h.pg.Ping(ctx); err != nil {
		deps["postgres"] = "unhealthy"
		status = "unhealthy"
	} else {
		deps["postgres"] = "healthy"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		deps["redis"] = "unhealthy"
		status = "unhealthy"
	} else {
		deps["redis"] = "healthy"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC(),
	})
}
