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

// ShowProviderUpdate carries provider fields merged into a show row
type ShowProviderUpdate struct {
	Name      string
	Date      time.Time
	TicketURL string
	ImageURL  string
}

// ShowRepository defines the interface for show data operations
type ShowRepository interface {
	FindByID(ctx context.Context, id string) (*models.Show, error)
	FindByTicketmasterID(ctx context.Context, ticketmasterID string) (*models.Show, error)

	// EnsureShow upserts the row for (ticketmasterID) and enforces the
	// one-show-per-(artist, venue, date) invariant; a duplicate-key race
	// resolves to the existing row
	EnsureShow(ctx context.Context, ticketmasterID string, artistID, venueID primitive.ObjectID, date time.Time) (*models.Show, error)

	MergeProviderData(ctx context.Context, id primitive.ObjectID, update ShowProviderUpdate) (*models.Show, error)

	ListUpcomingByArtist(ctx context.Context, artistID primitive.ObjectID, limit int64) ([]*models.Show, error)
	Count(ctx context.Context) (int64, error)
}

// mongoShowRepository implements ShowRepository using MongoDB
type mongoShowRepository struct {
	collection *mongo.Collection
}

// NewMongoShowRepository creates a new MongoDB-backed show repository
func NewMongoShowRepository(db *models.Database) ShowRepository {
	return &mongoShowRepository{
		collection: db.DB.Collection(models.CollectionShows),
	}
}

func (r *mongoShowRepository) FindByID(ctx context.Context, id string) (*models.Show, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object ID: %w", err)
	}

	var show models.Show
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&show)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find show by ID: %w", err)
	}

	return &show, nil
}

func (r *mongoShowRepository) FindByTicketmasterID(ctx context.Context, ticketmasterID string) (*models.Show, error) {
	var show models.Show
	err := r.collection.FindOne(ctx, bson.M{"ticketmaster_id": ticketmasterID}).Decode(&show)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find show by ticketmaster ID: %w", err)
	}

	return &show, nil
}

func (r *mongoShowRepository) EnsureShow(ctx context.Context, ticketmasterID string, artistID, venueID primitive.ObjectID, date time.Time) (*models.Show, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"ticketmaster_id": ticketmasterID,
			"artist_id":       artistID,
			"venue_id":        venueID,
			"date":            date,
			"created_at":      now,
			"updated_at":      now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var show models.Show
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"ticketmaster_id": ticketmasterID}, update, opts).Decode(&show)
	if err != nil {
		// A concurrent insert for the same (artist, venue, date) tuple
		// under a different external id trips the unique index; the
		// existing row wins
		if mongo.IsDuplicateKeyError(err) {
			return r.findByTuple(ctx, artistID, venueID, date)
		}
		return nil, fmt.Errorf("failed to ensure show: %w", err)
	}

	return &show, nil
}

func (r *mongoShowRepository) findByTuple(ctx context.Context, artistID, venueID primitive.ObjectID, date time.Time) (*models.Show, error) {
	filter := bson.M{"artist_id": artistID, "venue_id": venueID, "date": date}

	var show models.Show
	if err := r.collection.FindOne(ctx, filter).Decode(&show); err != nil {
		return nil, fmt.Errorf("failed to resolve show conflict: %w", err)
	}
	return &show, nil
}

func (r *mongoShowRepository) MergeProviderData(ctx context.Context, id primitive.ObjectID, update ShowProviderUpdate) (*models.Show, error) {
	now := time.Now()
	set := bson.M{
		"ticket_url":     update.TicketURL,
		"image_url":      update.ImageURL,
		"last_synced_at": now,
		"updated_at":     now,
	}
	if update.Name != "" {
		set["name"] = update.Name
	}
	if !update.Date.IsZero() {
		set["date"] = update.Date
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var show models.Show
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&show)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("show %s not found for merge", id.Hex())
		}
		return nil, fmt.Errorf("failed to merge show data: %w", err)
	}

	return &show, nil
}

func (r *mongoShowRepository) ListUpcomingByArtist(ctx context.Context, artistID primitive.ObjectID, limit int64) ([]*models.Show, error) {
	filter := bson.M{
		"artist_id": artistID,
		"date":      bson.M{"$gte": time.Now()},
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"date": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming shows: %w", err)
	}
	defer cursor.Close(ctx)

	var shows []*models.Show
	if err := cursor.All(ctx, &shows); err != nil {
		return nil, fmt.Errorf("failed to decode upcoming shows: %w", err)
	}

	return shows, nil
}

func (r *mongoShowRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count shows: %w", err)
	}
	return count, nil
}
