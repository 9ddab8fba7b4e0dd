package testutil

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"showvote/internal/models"
)

// ArtistBuilder provides a fluent interface for creating test artists
type ArtistBuilder struct {
	artist *models.Artist
}

// NewArtistBuilder creates an artist builder with default values
func NewArtistBuilder() *ArtistBuilder {
	artist := models.NewArtist("Test Artist")
	artist.ID = primitive.NewObjectID()
	artist.SpotifyID = "spotify-artist-1"
	return &ArtistBuilder{artist: artist}
}

// WithID sets the artist ID
func (b *ArtistBuilder) WithID(id primitive.ObjectID) *ArtistBuilder {
	b.artist.ID = id
	return b
}

// WithName sets the artist name
func (b *ArtistBuilder) WithName(name string) *ArtistBuilder {
	b.artist.Name = name
	return b
}

// WithSpotifyID sets the artist's external catalog id
func (b *ArtistBuilder) WithSpotifyID(id string) *ArtistBuilder {
	b.artist.SpotifyID = id
	return b
}

// WithLastSyncedAt sets the artist's last sync timestamp
func (b *ArtistBuilder) WithLastSyncedAt(t time.Time) *ArtistBuilder {
	b.artist.LastSyncedAt = t
	return b
}

// WithCatalogTracks sets the cached catalog
func (b *ArtistBuilder) WithCatalogTracks(tracks ...models.CatalogTrack) *ArtistBuilder {
	b.artist.CatalogTracks = tracks
	return b
}

// Build returns the constructed artist
func (b *ArtistBuilder) Build() *models.Artist {
	return b.artist
}

// CatalogTracks builds n distinct catalog entries
func CatalogTracks(n int) []models.CatalogTrack {
	tracks := make([]models.CatalogTrack, n)
	for i := range tracks {
		tracks[i] = models.CatalogTrack{
			ExternalID: "track-" + string(rune('a'+i)),
			Title:      "Track " + string(rune('A'+i)),
			DurationMs: 180000 + i*1000,
		}
	}
	return tracks
}

// SetlistFixture wires a show, its setlist, and one votable song with
// consistent cross-references
type SetlistFixture struct {
	Show    *models.Show
	Setlist *models.Setlist
	Song    *models.SetlistSong
}

// NewSetlistFixture creates a linked show, setlist, and song
func NewSetlistFixture() *SetlistFixture {
	artistID := primitive.NewObjectID()
	venueID := primitive.NewObjectID()

	show := models.NewShow(artistID, venueID, time.Now().Add(30*24*time.Hour))
	show.ID = primitive.NewObjectID()

	setlist := models.NewSetlist(show.ID, artistID)
	setlist.ID = primitive.NewObjectID()

	song := models.NewSetlistSong(setlist.ID, "Opening Number", 1)
	song.ID = primitive.NewObjectID()

	return &SetlistFixture{Show: show, Setlist: setlist, Song: song}
}
