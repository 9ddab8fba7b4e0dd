package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"showvote/internal/cache"
	"showvote/internal/models"
)

// HealthHandler reports store and cache reachability
type HealthHandler struct {
	db    *models.Database
	cache cache.Cache
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *models.Database, c cache.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: c}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if err := h.db.Client.Ping(ctx, nil); err != nil {
		status["status"] = "degraded"
		status["mongo"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		status["mongo"] = "ok"
	}

	if err := h.cache.Health(ctx); err != nil {
		status["status"] = "degraded"
		status["cache"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		status["cache"] = "ok"
	}

	c.JSON(code, status)
}
