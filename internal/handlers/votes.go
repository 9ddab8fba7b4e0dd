package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"showvote/internal/votes"
)

// VotesHandler handles vote ledger mutations
type VotesHandler struct {
	ledger *votes.Ledger
}

// NewVotesHandler creates a new votes handler
func NewVotesHandler(ledger *votes.Ledger) *VotesHandler {
	return &VotesHandler{ledger: ledger}
}

// VoteRequest is the body of POST /api/v1/votes
type VoteRequest struct {
	SongID string `json:"songId" binding:"required"`
	Action string `json:"action" binding:"required,oneof=increment decrement"`
}

// Vote handles POST /api/v1/votes
func (h *VotesHandler) Vote(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identity required"})
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	var result *votes.Result
	var err error
	switch req.Action {
	case "increment":
		result, err = h.ledger.Cast(c.Request.Context(), identity, req.SongID)
	case "decrement":
		result, err = h.ledger.Retract(c.Request.Context(), identity, req.SongID)
	}

	if err != nil {
		if errors.Is(err, votes.ErrSongNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Song not found"})
			return
		}
		// Ledger failures are never swallowed: silent vote loss is worse
		// than a visible error
		slog.Error("Vote mutation failed", "songID", req.SongID, "action", req.Action, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Vote failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
