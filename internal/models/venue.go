package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Venue represents a concert venue. Venues change rarely, so they carry a
// much longer staleness window than artists.
type Venue struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	TicketmasterID string `bson:"ticketmaster_id,omitempty" json:"ticketmaster_id,omitempty"`

	Name    string `bson:"name" json:"name"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`

	LastSyncedAt time.Time `bson:"last_synced_at" json:"last_synced_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// NewVenue creates a new Venue placeholder for the given name
func NewVenue(name string) *Venue {
	now := time.Now()
	return &Venue{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsStale reports whether the venue's last sync is older than the threshold
func (v *Venue) IsStale(threshold time.Duration) bool {
	return time.Since(v.LastSyncedAt) > threshold
}
