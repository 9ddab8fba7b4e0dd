package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"showvote/internal/models"
)

// SetlistRepository defines the interface for setlist and setlist-song data
// operations
type SetlistRepository interface {
	FindByID(ctx context.Context, id string) (*models.Setlist, error)
	FindByShowID(ctx context.Context, showID primitive.ObjectID) (*models.Setlist, error)

	// Create inserts a setlist; a duplicate show_id returns the existing
	// row and created=false, so racing creators converge on one setlist
	Create(ctx context.Context, setlist *models.Setlist) (created bool, err error)

	// InsertSongs populates a setlist. A duplicate (setlist_id, position)
	// key means a concurrent seeder got there first and is not an error.
	InsertSongs(ctx context.Context, songs []*models.SetlistSong) error

	ListSongs(ctx context.Context, setlistID primitive.ObjectID) ([]*models.SetlistSong, error)
	FindSongByID(ctx context.Context, songID string) (*models.SetlistSong, error)
	CountSongs(ctx context.Context, setlistID primitive.ObjectID) (int64, error)

	// RecountSong derives the counter from the vote ledger, repairing any
	// drift between the denormalized count and the rows it summarizes
	RecountSong(ctx context.Context, songID primitive.ObjectID) (int, error)
}

// mongoSetlistRepository implements SetlistRepository using MongoDB
type mongoSetlistRepository struct {
	setlists *mongo.Collection
	songs    *mongo.Collection
	votes    *mongo.Collection
}

// NewMongoSetlistRepository creates a new MongoDB-backed setlist repository
func NewMongoSetlistRepository(db *models.Database) SetlistRepository {
	return &mongoSetlistRepository{
		setlists: db.DB.Collection(models.CollectionSetlists),
		songs:    db.DB.Collection(models.CollectionSetlistSongs),
		votes:    db.DB.Collection(models.CollectionVotes),
	}
}

func (r *mongoSetlistRepository) FindByID(ctx context.Context, id string) (*models.Setlist, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object ID: %w", err)
	}

	var setlist models.Setlist
	err = r.setlists.FindOne(ctx, bson.M{"_id": objectID}).Decode(&setlist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find setlist by ID: %w", err)
	}

	return &setlist, nil
}

func (r *mongoSetlistRepository) FindByShowID(ctx context.Context, showID primitive.ObjectID) (*models.Setlist, error) {
	var setlist models.Setlist
	err := r.setlists.FindOne(ctx, bson.M{"show_id": showID}).Decode(&setlist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find setlist by show ID: %w", err)
	}

	return &setlist, nil
}

func (r *mongoSetlistRepository) Create(ctx context.Context, setlist *models.Setlist) (bool, error) {
	result, err := r.setlists.InsertOne(ctx, setlist)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := r.FindByShowID(ctx, setlist.ShowID)
			if findErr != nil {
				return false, findErr
			}
			if existing == nil {
				return false, fmt.Errorf("setlist creation conflict for show %s but no row found", setlist.ShowID.Hex())
			}
			*setlist = *existing
			return false, nil
		}
		return false, fmt.Errorf("failed to insert setlist: %w", err)
	}

	setlist.ID = result.InsertedID.(primitive.ObjectID)
	return true, nil
}

func (r *mongoSetlistRepository) InsertSongs(ctx context.Context, songs []*models.SetlistSong) error {
	if len(songs) == 0 {
		return nil
	}

	docs := make([]interface{}, len(songs))
	for i, song := range songs {
		if song.CreatedAt.IsZero() {
			song.CreatedAt = time.Now()
		}
		docs[i] = song
	}

	result, err := r.songs.InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// A concurrent seeder already populated this setlist; the
			// unique (setlist_id, position) index keeps the songs singular
			return nil
		}
		return fmt.Errorf("failed to insert setlist songs: %w", err)
	}

	for i, id := range result.InsertedIDs {
		songs[i].ID = id.(primitive.ObjectID)
	}

	return nil
}

func (r *mongoSetlistRepository) ListSongs(ctx context.Context, setlistID primitive.ObjectID) ([]*models.SetlistSong, error) {
	opts := options.Find().SetSort(bson.M{"position": 1})

	cursor, err := r.songs.Find(ctx, bson.M{"setlist_id": setlistID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list setlist songs: %w", err)
	}
	defer cursor.Close(ctx)

	var songs []*models.SetlistSong
	if err := cursor.All(ctx, &songs); err != nil {
		return nil, fmt.Errorf("failed to decode setlist songs: %w", err)
	}

	return songs, nil
}

func (r *mongoSetlistRepository) FindSongByID(ctx context.Context, songID string) (*models.SetlistSong, error) {
	objectID, err := primitive.ObjectIDFromHex(songID)
	if err != nil {
		return nil, fmt.Errorf("invalid object ID: %w", err)
	}

	var song models.SetlistSong
	err = r.songs.FindOne(ctx, bson.M{"_id": objectID}).Decode(&song)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find setlist song: %w", err)
	}

	return &song, nil
}

func (r *mongoSetlistRepository) CountSongs(ctx context.Context, setlistID primitive.ObjectID) (int64, error) {
	count, err := r.songs.CountDocuments(ctx, bson.M{"setlist_id": setlistID})
	if err != nil {
		return 0, fmt.Errorf("failed to count setlist songs: %w", err)
	}
	return count, nil
}

func (r *mongoSetlistRepository) RecountSong(ctx context.Context, songID primitive.ObjectID) (int, error) {
	count, err := r.votes.CountDocuments(ctx, bson.M{"song_id": songID})
	if err != nil {
		return 0, fmt.Errorf("failed to count votes for song: %w", err)
	}

	result, err := r.songs.UpdateOne(ctx,
		bson.M{"_id": songID},
		bson.M{"$set": bson.M{"vote_count": count}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to store recounted votes: %w", err)
	}
	if result.MatchedCount == 0 {
		return 0, ErrSongNotFound
	}

	slog.Info("Recounted song votes from ledger", "songID", songID.Hex(), "count", count)
	return int(count), nil
}
