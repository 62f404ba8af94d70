package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"go.uber.org/zap"
)

// Health reports the database and, when configured, Redis.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if sqlDB, err := h.forum.DB().DB(); err != nil {
		checks["database"] = "error"
		status = http.StatusServiceUnavailable
	} else if err := sqlDB.PingContext(ctx); err != nil {
		logger.Log.Warn("Database health check failed", zap.Error(err))
		checks["database"] = "error"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		checks["redis"] = "ok"
		// Redis only backs a cache, so a failure degrades but stays healthy.
		if err := h.redis.Ping(ctx); err != nil {
			logger.Log.Warn("Redis health check failed", zap.Error(err))
			checks["redis"] = "degraded"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"service":   "tinyforum",
		"checks":    checks,
	})
}
