package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Setlist is the votable song list for a show. Exactly one setlist exists
// per show, enforced by a unique index on show_id.
type Setlist struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	ShowID   primitive.ObjectID `bson:"show_id" json:"show_id"`
	ArtistID primitive.ObjectID `bson:"artist_id" json:"artist_id"`

	// ExternalID is an optional setlist-archive identifier used for
	// idempotent re-ingestion of historical setlists
	ExternalID string `bson:"external_id,omitempty" json:"external_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewSetlist creates a new Setlist for a show
func NewSetlist(showID, artistID primitive.ObjectID) *Setlist {
	now := time.Now()
	return &Setlist{
		ShowID:    showID,
		ArtistID:  artistID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetlistSong is one votable entry on a setlist. VoteCount is a denormalized
// counter over the vote ledger; it is only ever updated in the same
// transaction as the ledger row it reflects.
type SetlistSong struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	SetlistID primitive.ObjectID `bson:"setlist_id" json:"setlist_id"`

	Title    string `bson:"title" json:"title"`
	Position int    `bson:"position" json:"position"`

	VoteCount int `bson:"vote_count" json:"vote_count"`

	// Optional track metadata from the artist's catalog
	TrackID    string `bson:"track_id,omitempty" json:"track_id,omitempty"`
	DurationMs int    `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	PreviewURL string `bson:"preview_url,omitempty" json:"preview_url,omitempty"`
	ImageURL   string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewSetlistSong creates a setlist entry at the given position with a zero
// vote count
func NewSetlistSong(setlistID primitive.ObjectID, title string, position int) *SetlistSong {
	return &SetlistSong{
		SetlistID: setlistID,
		Title:     title,
		Position:  position,
		VoteCount: 0,
		CreatedAt: time.Now(),
	}
}
