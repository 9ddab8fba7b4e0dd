package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Artist represents a performer whose shows and catalog are synced from
// external providers
type Artist struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// External identifiers, one per provider
	SpotifyID      string `bson:"spotify_id,omitempty" json:"spotify_id,omitempty"`
	TicketmasterID string `bson:"ticketmaster_id,omitempty" json:"ticketmaster_id,omitempty"`

	Name       string   `bson:"name" json:"name"`
	Popularity int      `bson:"popularity,omitempty" json:"popularity,omitempty"`
	Genres     []string `bson:"genres,omitempty" json:"genres,omitempty"`
	ImageURL   string   `bson:"image_url,omitempty" json:"image_url,omitempty"`

	// CatalogTracks caches the artist's top tracks so setlist seeding does
	// not have to block on a provider fetch
	CatalogTracks []CatalogTrack `bson:"catalog_tracks,omitempty" json:"catalog_tracks,omitempty"`

	LastSyncedAt time.Time `bson:"last_synced_at" json:"last_synced_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// CatalogTrack is a cached entry from an artist's provider catalog
type CatalogTrack struct {
	ExternalID string `bson:"external_id" json:"external_id"`
	Title      string `bson:"title" json:"title"`
	DurationMs int    `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	PreviewURL string `bson:"preview_url,omitempty" json:"preview_url,omitempty"`
	ImageURL   string `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// NewArtist creates a new Artist placeholder for the given name
func NewArtist(name string) *Artist {
	now := time.Now()
	return &Artist{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsStale reports whether the artist's last sync is older than the threshold
func (a *Artist) IsStale(threshold time.Duration) bool {
	return time.Since(a.LastSyncedAt) > threshold
}
