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

// VenueProviderUpdate carries provider fields merged into a venue row
type VenueProviderUpdate struct {
	Name    string
	City    string
	State   string
	Country string
}

// VenueRepository defines the interface for venue data operations
type VenueRepository interface {
	FindByID(ctx context.Context, id string) (*models.Venue, error)
	FindByTicketmasterID(ctx context.Context, ticketmasterID string) (*models.Venue, error)

	EnsurePlaceholder(ctx context.Context, ticketmasterID, name string) (*models.Venue, error)
	MergeProviderData(ctx context.Context, id primitive.ObjectID, update VenueProviderUpdate) (*models.Venue, error)

	ListStale(ctx context.Context, olderThan time.Time, limit int64) ([]*models.Venue, error)
	Count(ctx context.Context) (int64, error)
}

// mongoVenueRepository implements VenueRepository using MongoDB
type mongoVenueRepository struct {
	collection *mongo.Collection
}

// NewMongoVenueRepository creates a new MongoDB-backed venue repository
func NewMongoVenueRepository(db *models.Database) VenueRepository {
	return &mongoVenueRepository{
		collection: db.DB.Collection(models.CollectionVenues),
	}
}

func (r *mongoVenueRepository) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object ID: %w", err)
	}

	var venue models.Venue
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&venue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find venue by ID: %w", err)
	}

	return &venue, nil
}

func (r *mongoVenueRepository) FindByTicketmasterID(ctx context.Context, ticketmasterID string) (*models.Venue, error) {
	var venue models.Venue
	err := r.collection.FindOne(ctx, bson.M{"ticketmaster_id": ticketmasterID}).Decode(&venue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find venue by ticketmaster ID: %w", err)
	}

	return &venue, nil
}

// EnsurePlaceholder upserts a minimal row keyed by ticketmaster_id, or by
// name when the provider gave no venue id
func (r *mongoVenueRepository) EnsurePlaceholder(ctx context.Context, ticketmasterID, name string) (*models.Venue, error) {
	now := time.Now()
	insert := bson.M{
		"name":       name,
		"created_at": now,
		"updated_at": now,
	}

	var filter bson.M
	if ticketmasterID != "" {
		filter = bson.M{"ticketmaster_id": ticketmasterID}
		insert["ticketmaster_id"] = ticketmasterID
	} else {
		filter = bson.M{"name": name}
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var venue models.Venue
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": insert}, opts).Decode(&venue)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure venue placeholder: %w", err)
	}

	return &venue, nil
}

func (r *mongoVenueRepository) MergeProviderData(ctx context.Context, id primitive.ObjectID, update VenueProviderUpdate) (*models.Venue, error) {
	now := time.Now()
	set := bson.M{
		"city":           update.City,
		"state":          update.State,
		"country":        update.Country,
		"last_synced_at": now,
		"updated_at":     now,
	}
	if update.Name != "" {
		set["name"] = update.Name
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var venue models.Venue
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&venue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("venue %s not found for merge", id.Hex())
		}
		return nil, fmt.Errorf("failed to merge venue data: %w", err)
	}

	return &venue, nil
}

func (r *mongoVenueRepository) ListStale(ctx context.Context, olderThan time.Time, limit int64) ([]*models.Venue, error) {
	filter := bson.M{"last_synced_at": bson.M{"$lt": olderThan}}
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"last_synced_at": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale venues: %w", err)
	}
	defer cursor.Close(ctx)

	var venues []*models.Venue
	if err := cursor.All(ctx, &venues); err != nil {
		return nil, fmt.Errorf("failed to decode stale venues: %w", err)
	}

	return venues, nil
}

func (r *mongoVenueRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}
	return count, nil
}
