package sync

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"showvote/internal/repositories"
)

const sweepBatchSize = 50

// Queue runs deferred and retried sync work on a bounded channel with a
// fixed worker pool. A full queue rejects new work instead of blocking the
// caller; rejected work is picked up later by the sweeper via SyncState.
type Queue struct {
	syncStates repositories.SyncStateRepository
	tasks      chan Request
	workers    int
	wg         sync.WaitGroup
}

// NewQueue creates a queue with the given worker count and capacity
func NewQueue(syncStates repositories.SyncStateRepository, workers, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		syncStates: syncStates,
		tasks:      make(chan Request, capacity),
		workers:    workers,
	}
}

// Enqueue offers a request to the queue without blocking. Returns false when
// the queue is full.
func (q *Queue) Enqueue(req Request) bool {
	select {
	case q.tasks <- req:
		return true
	default:
		slog.Warn("Sync queue full, rejecting deferred work",
			"entityType", req.EntityType, "externalID", req.ExternalID)
		return false
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled; Wait blocks until they exit.
func (q *Queue) Start(ctx context.Context, coordinator *Coordinator) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.work(ctx, coordinator)
		}()
	}
}

func (q *Queue) work(ctx context.Context, coordinator *Coordinator) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-q.tasks:
			result, err := coordinator.Sync(ctx, req)
			if err != nil {
				slog.Warn("Background sync failed",
					"entityType", req.EntityType, "externalID", req.ExternalID, "error", err)
				continue
			}
			slog.Info("Background sync finished",
				"entityType", req.EntityType, "externalID", req.ExternalID, "status", result.Status)
		}
	}
}

// StartSweeper periodically re-enqueues transient failures whose retry-after
// has passed
func (q *Queue) StartSweeper(ctx context.Context, interval time.Duration) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.sweep(ctx)
			}
		}
	}()
}

func (q *Queue) sweep(ctx context.Context) {
	states, err := q.syncStates.ListRetryable(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		slog.Error("Retry sweep failed", "error", err)
		return
	}

	for _, state := range states {
		req := Request{EntityType: state.EntityType}
		if name, ok := strings.CutPrefix(state.EntityID, "name:"); ok {
			req.Name = name
		} else {
			req.ExternalID = state.EntityID
		}

		if q.Enqueue(req) {
			slog.Info("Re-enqueued failed sync",
				"entityType", state.EntityType, "entityID", state.EntityID)
		}
	}
}

// Wait blocks until all workers and the sweeper have stopped
func (q *Queue) Wait() {
	q.wg.Wait()
}
