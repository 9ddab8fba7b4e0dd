package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Show represents a single concert: one artist at one venue on one date.
// The (artist_id, venue_id, date) tuple is unique in the store.
type Show struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	TicketmasterID string `bson:"ticketmaster_id,omitempty" json:"ticketmaster_id,omitempty"`

	ArtistID primitive.ObjectID `bson:"artist_id" json:"artist_id"`
	VenueID  primitive.ObjectID `bson:"venue_id" json:"venue_id"`

	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	Date      time.Time `bson:"date" json:"date"`
	TicketURL string    `bson:"ticket_url,omitempty" json:"ticket_url,omitempty"`
	ImageURL  string    `bson:"image_url,omitempty" json:"image_url,omitempty"`

	LastSyncedAt time.Time `bson:"last_synced_at" json:"last_synced_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// NewShow creates a new Show linking an artist and a venue on a date
func NewShow(artistID, venueID primitive.ObjectID, date time.Time) *Show {
	now := time.Now()
	return &Show{
		ArtistID:  artistID,
		VenueID:   venueID,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
