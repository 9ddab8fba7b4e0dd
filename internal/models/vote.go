package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vote is one row in the vote ledger: a single identity's vote for a single
// song. The (identity, song_id) pair is unique in the store, which is the
// central invariant of the ledger. ShowID is denormalized onto the row so
// the anonymous per-show cap can be counted without joins.
type Vote struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Identity is an authenticated user id or an anonymous session
	// fingerprint, prefixed with its kind ("user:" / "anon:")
	Identity  string `bson:"identity" json:"identity"`
	Anonymous bool   `bson:"anonymous" json:"anonymous"`

	SongID primitive.ObjectID `bson:"song_id" json:"song_id"`
	ShowID primitive.ObjectID `bson:"show_id" json:"show_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// NewVote creates a ledger row for an identity's vote on a song
func NewVote(identity string, anonymous bool, songID, showID primitive.ObjectID) *Vote {
	return &Vote{
		Identity:  identity,
		Anonymous: anonymous,
		SongID:    songID,
		ShowID:    showID,
		CreatedAt: time.Now(),
	}
}
