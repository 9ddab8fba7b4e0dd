package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"showvote/internal/models"
)

// ArtistProviderUpdate carries the provider fields merged into an existing
// artist row. The merge is field-level so locally computed state is never
// clobbered by a refresh.
type ArtistProviderUpdate struct {
	// SpotifyID attaches the external id to rows that were reserved by
	// name before the provider resolved them
	SpotifyID     string
	Name          string
	Popularity    int
	Genres        []string
	ImageURL      string
	CatalogTracks []models.CatalogTrack
}

// ArtistRepository defines the interface for artist data operations
type ArtistRepository interface {
	FindByID(ctx context.Context, id string) (*models.Artist, error)
	FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Artist, error)
	FindByName(ctx context.Context, name string) (*models.Artist, error)

	// EnsurePlaceholder reserves an internal identity for an external id
	// before any provider data exists for it
	EnsurePlaceholder(ctx context.Context, spotifyID, name string) (*models.Artist, error)

	// MergeProviderData applies fresh provider fields and stamps last_synced_at
	MergeProviderData(ctx context.Context, id primitive.ObjectID, update ArtistProviderUpdate) (*models.Artist, error)

	// SetCatalogTracks refreshes only the cached catalog
	SetCatalogTracks(ctx context.Context, id primitive.ObjectID, tracks []models.CatalogTrack) error

	ListStale(ctx context.Context, olderThan time.Time, limit int64) ([]*models.Artist, error)
	Count(ctx context.Context) (int64, error)
}

// mongoArtistRepository implements ArtistRepository using MongoDB
type mongoArtistRepository struct {
	collection *mongo.Collection
}

// NewMongoArtistRepository creates a new MongoDB-backed artist repository
func NewMongoArtistRepository(db *models.Database) ArtistRepository {
	return &mongoArtistRepository{
		collection: db.DB.Collection(models.CollectionArtists),
	}
}

func (r *mongoArtistRepository) FindByID(ctx context.Context, id string) (*models.Artist, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object ID: %w", err)
	}

	var artist models.Artist
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&artist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find artist by ID: %w", err)
	}

	return &artist, nil
}

func (r *mongoArtistRepository) FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Artist, error) {
	var artist models.Artist
	err := r.collection.FindOne(ctx, bson.M{"spotify_id": spotifyID}).Decode(&artist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find artist by spotify ID: %w", err)
	}

	return &artist, nil
}

func (r *mongoArtistRepository) FindByName(ctx context.Context, name string) (*models.Artist, error) {
	var artist models.Artist
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&artist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find artist by name: %w", err)
	}

	return &artist, nil
}

// EnsurePlaceholder upserts a minimal row keyed by spotify_id, or by name
// when no external id is known yet. Concurrent callers land on the same row;
// the unique index breaks ties.
func (r *mongoArtistRepository) EnsurePlaceholder(ctx context.Context, spotifyID, name string) (*models.Artist, error) {
	now := time.Now()
	insert := bson.M{
		"name":       name,
		"created_at": now,
		"updated_at": now,
	}

	var filter bson.M
	if spotifyID != "" {
		filter = bson.M{"spotify_id": spotifyID}
		insert["spotify_id"] = spotifyID
	} else {
		filter = bson.M{"name": name}
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var artist models.Artist
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": insert}, opts).Decode(&artist)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure artist placeholder: %w", err)
	}

	return &artist, nil
}

func (r *mongoArtistRepository) MergeProviderData(ctx context.Context, id primitive.ObjectID, update ArtistProviderUpdate) (*models.Artist, error) {
	now := time.Now()
	set := bson.M{
		"popularity":     update.Popularity,
		"image_url":      update.ImageURL,
		"last_synced_at": now,
		"updated_at":     now,
	}
	if update.SpotifyID != "" {
		set["spotify_id"] = update.SpotifyID
	}
	if update.Name != "" {
		set["name"] = update.Name
	}
	if update.Genres != nil {
		set["genres"] = update.Genres
	}
	if update.CatalogTracks != nil {
		set["catalog_tracks"] = update.CatalogTracks
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var artist models.Artist
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&artist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("artist %s not found for merge", id.Hex())
		}
		return nil, fmt.Errorf("failed to merge artist data: %w", err)
	}

	return &artist, nil
}

func (r *mongoArtistRepository) SetCatalogTracks(ctx context.Context, id primitive.ObjectID, tracks []models.CatalogTrack) error {
	update := bson.M{"$set": bson.M{
		"catalog_tracks": tracks,
		"updated_at":     time.Now(),
	}}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set catalog tracks: %w", err)
	}
	return nil
}

func (r *mongoArtistRepository) ListStale(ctx context.Context, olderThan time.Time, limit int64) ([]*models.Artist, error) {
	filter := bson.M{"last_synced_at": bson.M{"$lt": olderThan}}
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"last_synced_at": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale artists: %w", err)
	}
	defer cursor.Close(ctx)

	var artists []*models.Artist
	if err := cursor.All(ctx, &artists); err != nil {
		return nil, fmt.Errorf("failed to decode stale artists: %w", err)
	}

	return artists, nil
}

func (r *mongoArtistRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return count, nil
}
