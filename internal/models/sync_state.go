package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncStatus is the lifecycle state of a sync attempt
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

// EntityType identifies which kind of entity a sync operates on
type EntityType string

const (
	EntityTypeArtist EntityType = "artist"
	EntityTypeVenue  EntityType = "venue"
	EntityTypeShow   EntityType = "show"
)

// SyncState records the outcome of the most recent sync attempt for an
// entity. Rows are retained for observability and drive the retry sweeper.
type SyncState struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	EntityType EntityType `bson:"entity_type" json:"entity_type"`
	EntityID   string     `bson:"entity_id" json:"entity_id"`

	Status        SyncStatus `bson:"status" json:"status"`
	LastAttemptAt time.Time  `bson:"last_attempt_at" json:"last_attempt_at"`
	RetryAfter    time.Time  `bson:"retry_after,omitempty" json:"retry_after,omitempty"`
	LastError     string     `bson:"last_error,omitempty" json:"last_error,omitempty"`
}

// NewSyncState creates a pending sync state for an entity
func NewSyncState(entityType EntityType, entityID string) *SyncState {
	return &SyncState{
		EntityType:    entityType,
		EntityID:      entityID,
		Status:        SyncStatusPending,
		LastAttemptAt: time.Now(),
	}
}
