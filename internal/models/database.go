package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the entity store
const (
	CollectionArtists      = "artists"
	CollectionVenues       = "venues"
	CollectionShows        = "shows"
	CollectionSetlists     = "setlists"
	CollectionSetlistSongs = "setlist_songs"
	CollectionVotes        = "votes"
	CollectionSyncStates   = "sync_states"
	CollectionCacheEntries = "cache_entries"
)

// Database represents the database connection
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewDatabase creates a new database connection
func NewDatabase(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	// Set client options
	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(20).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)

	return &Database{
		Client: client,
		DB:     db,
	}, nil
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// CreateIndexes creates the indexes that back the store's uniqueness
// invariants. The unique indexes are load-bearing: duplicate votes, duplicate
// setlists per show, and duplicate (artist, venue, date) shows are all
// rejected here rather than by application-side checks.
func (d *Database) CreateIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	uniqueSparse := options.Index().SetUnique(true).SetSparse(true)

	indexSets := map[string][]mongo.IndexModel{
		CollectionArtists: {
			{Keys: bson.D{{Key: "spotify_id", Value: 1}}, Options: uniqueSparse},
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "last_synced_at", Value: 1}}},
		},
		CollectionVenues: {
			{Keys: bson.D{{Key: "ticketmaster_id", Value: 1}}, Options: uniqueSparse},
			{Keys: bson.D{{Key: "last_synced_at", Value: 1}}},
		},
		CollectionShows: {
			{Keys: bson.D{{Key: "ticketmaster_id", Value: 1}}, Options: uniqueSparse},
			{Keys: bson.D{{Key: "artist_id", Value: 1}, {Key: "venue_id", Value: 1}, {Key: "date", Value: 1}}, Options: unique},
		},
		CollectionSetlists: {
			{Keys: bson.D{{Key: "show_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: uniqueSparse},
		},
		CollectionSetlistSongs: {
			{Keys: bson.D{{Key: "setlist_id", Value: 1}, {Key: "position", Value: 1}}, Options: unique},
		},
		CollectionVotes: {
			{Keys: bson.D{{Key: "identity", Value: 1}, {Key: "song_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "identity", Value: 1}, {Key: "show_id", Value: 1}}},
			{Keys: bson.D{{Key: "song_id", Value: 1}}},
		},
		CollectionSyncStates: {
			{Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "retry_after", Value: 1}}},
		},
		CollectionCacheEntries: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique},
			// TTL index: mongo removes expired entries on its own
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}

	for name, indexes := range indexSets {
		if _, err := d.DB.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return err
		}
	}

	return nil
}
