package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"showvote/internal/models"
	"showvote/internal/testutil"
)

func TestQueue_EnqueueRejectsWhenFull(t *testing.T) {
	queue := NewQueue(&testutil.MockSyncStateRepository{}, 1, 2)

	assert.True(t, queue.Enqueue(Request{EntityType: models.EntityTypeArtist, ExternalID: "a"}))
	assert.True(t, queue.Enqueue(Request{EntityType: models.EntityTypeArtist, ExternalID: "b"}))
	assert.False(t, queue.Enqueue(Request{EntityType: models.EntityTypeArtist, ExternalID: "c"}))
}

func TestQueue_SweepReEnqueuesRetryableFailures(t *testing.T) {
	states := &testutil.MockSyncStateRepository{}
	queue := NewQueue(states, 1, 8)

	states.On("ListRetryable", mock.Anything, mock.Anything, int64(sweepBatchSize)).
		Return([]*models.SyncState{
			{EntityType: models.EntityTypeVenue, EntityID: "tm-v1", Status: models.SyncStatusFailed},
			{EntityType: models.EntityTypeArtist, EntityID: "name:Test Artist", Status: models.SyncStatusFailed},
		}, nil)

	queue.sweep(context.Background())

	require.Len(t, queue.tasks, 2)

	first := <-queue.tasks
	assert.Equal(t, models.EntityTypeVenue, first.EntityType)
	assert.Equal(t, "tm-v1", first.ExternalID)

	second := <-queue.tasks
	assert.Equal(t, models.EntityTypeArtist, second.EntityType)
	assert.Equal(t, "Test Artist", second.Name)
	assert.Empty(t, second.ExternalID)
}

func TestQueue_WorkersDrainTasks(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	fresh := testutil.NewArtistBuilder().WithSpotifyID("sp-1").WithLastSyncedAt(time.Now()).Build()
	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(fresh, nil)

	done := make(chan struct{})
	m.artists.On("FindBySpotifyID", mock.Anything, "sp-2").
		Run(func(mock.Arguments) { close(done) }).Return(fresh, nil)

	queue := NewQueue(m.states, 2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx, coordinator)

	require.True(t, queue.Enqueue(Request{EntityType: models.EntityTypeArtist, ExternalID: "sp-1"}))
	require.True(t, queue.Enqueue(Request{EntityType: models.EntityTypeArtist, ExternalID: "sp-2"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not process queued sync")
	}

	cancel()
	queue.Wait()
}
