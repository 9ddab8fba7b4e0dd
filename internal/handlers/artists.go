package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"showvote/internal/models"
	"showvote/internal/repositories"
)

const upcomingShowsLimit = 20

// ArtistsHandler serves artist reads
type ArtistsHandler struct {
	artists repositories.ArtistRepository
	shows   repositories.ShowRepository
}

// NewArtistsHandler creates a new artists handler
func NewArtistsHandler(artists repositories.ArtistRepository, shows repositories.ShowRepository) *ArtistsHandler {
	return &ArtistsHandler{artists: artists, shows: shows}
}

// ArtistShowsResponse lists an artist's upcoming shows
type ArtistShowsResponse struct {
	Artist *models.Artist `json:"artist"`
	Shows  []*models.Show `json:"shows"`
}

// UpcomingShows handles GET /api/v1/artists/:id/shows
func (h *ArtistsHandler) UpcomingShows(c *gin.Context) {
	artist, err := h.artists.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("Failed to load artist", "artistID", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load artist"})
		return
	}
	if artist == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
		return
	}

	shows, err := h.shows.ListUpcomingByArtist(c.Request.Context(), artist.ID, upcomingShowsLimit)
	if err != nil {
		slog.Error("Failed to list upcoming shows", "artistID", artist.ID.Hex(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load shows"})
		return
	}

	c.JSON(http.StatusOK, ArtistShowsResponse{Artist: artist, Shows: shows})
}
