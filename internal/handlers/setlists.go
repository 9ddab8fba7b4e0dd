package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"showvote/internal/models"
	"showvote/internal/realtime"
	"showvote/internal/repositories"
)

// SetlistsHandler serves setlist reads and the realtime subscription
// endpoint. Clients follow read-then-subscribe: GET the setlist for current
// counts, then open the live socket for subsequent changes. Events are
// never replayed.
type SetlistsHandler struct {
	setlists repositories.SetlistRepository
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewSetlistsHandler creates a new setlists handler
func NewSetlistsHandler(setlists repositories.SetlistRepository, hub *realtime.Hub) *SetlistsHandler {
	return &SetlistsHandler{
		setlists: setlists,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetlistResponse is the read half of read-then-subscribe
type SetlistResponse struct {
	Setlist *models.Setlist       `json:"setlist"`
	Songs   []*models.SetlistSong `json:"songs"`
}

// Get handles GET /api/v1/setlists/:id
func (h *SetlistsHandler) Get(c *gin.Context) {
	setlist, err := h.setlists.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("Failed to load setlist", "setlistID", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load setlist"})
		return
	}
	if setlist == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Setlist not found"})
		return
	}

	songs, err := h.setlists.ListSongs(c.Request.Context(), setlist.ID)
	if err != nil {
		slog.Error("Failed to load setlist songs", "setlistID", setlist.ID.Hex(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load setlist"})
		return
	}

	c.JSON(http.StatusOK, SetlistResponse{Setlist: setlist, Songs: songs})
}

// Live handles GET /api/v1/setlists/:id/live, upgrading to a websocket that
// streams vote-count change events for the setlist
func (h *SetlistsHandler) Live(c *gin.Context) {
	setlist, err := h.setlists.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("Failed to load setlist for subscription", "setlistID", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load setlist"})
		return
	}
	if setlist == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Setlist not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "setlistID", setlist.ID.Hex(), "error", err)
		return
	}

	sub := h.hub.Subscribe(setlist.ID.Hex())
	realtime.NewClient(conn, sub).Run()
}
