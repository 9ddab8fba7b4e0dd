package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"showvote/internal/ratelimit"
	"showvote/internal/services"
	"showvote/internal/sync"
)

// SyncHandler handles entity synchronization requests
type SyncHandler struct {
	coordinator *sync.Coordinator
	limiter     *ratelimit.Limiter
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(coordinator *sync.Coordinator, limiter *ratelimit.Limiter) *SyncHandler {
	return &SyncHandler{
		coordinator: coordinator,
		limiter:     limiter,
	}
}

// Sync handles POST /api/v1/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	if !h.limiter.Admit(h.callerKey(c)) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded, try again later"})
		return
	}

	var req sync.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.coordinator.Sync(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, req, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// callerKey rate-limits per identity when one exists, else per client IP
func (h *SyncHandler) callerKey(c *gin.Context) string {
	if identity, ok := IdentityFrom(c); ok {
		return identity.Value
	}
	return c.ClientIP()
}

func (h *SyncHandler) writeError(c *gin.Context, req sync.Request, err error) {
	switch {
	case errors.Is(err, sync.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found upstream"})
	default:
		slog.Error("Sync failed",
			"entityType", req.EntityType, "externalID", req.ExternalID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
	}
}
