package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// Check reports per-dependency health. A down dependency yields 503 so load
// balancers rotate the instance out.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	healthy := true

	if h.db != nil {
		status := "ok"
		if sqlDB, err := h.db.DB(); err != nil {
			status = "down"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			status = "down"
		}
		if status == "down" {
			healthy = false
		}
		deps["postgres"] = status
	}

	if h.redis != nil {
		status := "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status = "down"
			healthy = false
		}
		deps["redis"] = status
	}

	code := http.StatusOK
	status := "healthy"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}
	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}
