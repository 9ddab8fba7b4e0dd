package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"showvote/internal/models"
)

// SyncStateRepository records sync attempts per entity for observability and
// drives the transient-failure retry sweeper
type SyncStateRepository interface {
	Find(ctx context.Context, entityType models.EntityType, entityID string) (*models.SyncState, error)

	MarkInProgress(ctx context.Context, entityType models.EntityType, entityID string) error
	MarkCompleted(ctx context.Context, entityType models.EntityType, entityID string) error
	MarkFailed(ctx context.Context, entityType models.EntityType, entityID string, cause error, retryAfter time.Time) error

	// ListRetryable returns failed entries whose retry-after has passed
	ListRetryable(ctx context.Context, now time.Time, limit int64) ([]*models.SyncState, error)
}

// mongoSyncStateRepository implements SyncStateRepository using MongoDB
type mongoSyncStateRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncStateRepository creates a new MongoDB-backed sync state repository
func NewMongoSyncStateRepository(db *models.Database) SyncStateRepository {
	return &mongoSyncStateRepository{
		collection: db.DB.Collection(models.CollectionSyncStates),
	}
}

func (r *mongoSyncStateRepository) Find(ctx context.Context, entityType models.EntityType, entityID string) (*models.SyncState, error) {
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}

	var state models.SyncState
	err := r.collection.FindOne(ctx, filter).Decode(&state)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sync state: %w", err)
	}

	return &state, nil
}

func (r *mongoSyncStateRepository) MarkInProgress(ctx context.Context, entityType models.EntityType, entityID string) error {
	return r.upsert(ctx, entityType, entityID, bson.M{
		"status":          models.SyncStatusInProgress,
		"last_attempt_at": time.Now(),
		"last_error":      "",
	})
}

func (r *mongoSyncStateRepository) MarkCompleted(ctx context.Context, entityType models.EntityType, entityID string) error {
	return r.upsert(ctx, entityType, entityID, bson.M{
		"status":          models.SyncStatusCompleted,
		"last_attempt_at": time.Now(),
		"last_error":      "",
		"retry_after":     time.Time{},
	})
}

func (r *mongoSyncStateRepository) MarkFailed(ctx context.Context, entityType models.EntityType, entityID string, cause error, retryAfter time.Time) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	return r.upsert(ctx, entityType, entityID, bson.M{
		"status":          models.SyncStatusFailed,
		"last_attempt_at": time.Now(),
		"last_error":      message,
		"retry_after":     retryAfter,
	})
}

func (r *mongoSyncStateRepository) upsert(ctx context.Context, entityType models.EntityType, entityID string, fields bson.M) error {
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	update := bson.M{
		"$set": fields,
		"$setOnInsert": bson.M{
			"entity_type": entityType,
			"entity_id":   entityID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert sync state: %w", err)
	}
	return nil
}

func (r *mongoSyncStateRepository) ListRetryable(ctx context.Context, now time.Time, limit int64) ([]*models.SyncState, error) {
	filter := bson.M{
		"status":      models.SyncStatusFailed,
		"retry_after": bson.M{"$gt": time.Time{}, "$lte": now},
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"retry_after": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable sync states: %w", err)
	}
	defer cursor.Close(ctx)

	var states []*models.SyncState
	if err := cursor.All(ctx, &states); err != nil {
		return nil, fmt.Errorf("failed to decode sync states: %w", err)
	}

	return states, nil
}
