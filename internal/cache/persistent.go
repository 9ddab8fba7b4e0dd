package cache

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CacheEntry is a durable cache row. Expired entries are cleaned up by the
// TTL index on expires_at; reads additionally filter on expiry so an entry
// is never served in the window before mongo's sweep runs.
type CacheEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Key       string             `bson:"key"`
	Payload   []byte             `bson:"payload"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// PersistentCache implements Cache on a mongo collection. It is the only
// cache that survives a process restart and backs provider payloads whose
// recomputation is expensive.
type PersistentCache struct {
	collection *mongo.Collection
}

// NewPersistentCache creates a mongo-backed cache over the given collection
func NewPersistentCache(collection *mongo.Collection) *PersistentCache {
	return &PersistentCache{collection: collection}
}

func (c *PersistentCache) Get(ctx context.Context, key string) ([]byte, error) {
	filter := bson.M{
		"key":        key,
		"expires_at": bson.M{"$gt": time.Now()},
	}

	var entry CacheEntry
	err := c.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, &CacheError{Operation: "get", Key: key, Err: err}
	}

	return entry.Payload, nil
}

func (c *PersistentCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"payload":    value,
			"expires_at": now.Add(expiration),
		},
		"$setOnInsert": bson.M{
			"key":        key,
			"created_at": now,
		},
	}

	_, err := c.collection.UpdateOne(ctx, bson.M{"key": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return &CacheError{Operation: "set", Key: key, Err: err}
	}
	return nil
}

func (c *PersistentCache) Delete(ctx context.Context, key string) error {
	if _, err := c.collection.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return &CacheError{Operation: "delete", Key: key, Err: err}
	}
	return nil
}

func (c *PersistentCache) Exists(ctx context.Context, key string) (bool, error) {
	filter := bson.M{
		"key":        key,
		"expires_at": bson.M{"$gt": time.Now()},
	}

	count, err := c.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, &CacheError{Operation: "exists", Key: key, Err: err}
	}
	return count > 0, nil
}

func (c *PersistentCache) Close() error {
	return nil
}

func (c *PersistentCache) Health(ctx context.Context) error {
	return c.collection.Database().Client().Ping(ctx, nil)
}
