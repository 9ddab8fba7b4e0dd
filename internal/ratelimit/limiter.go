// Package ratelimit implements sliding-window request admission control
// keyed by caller identity. The window state is process-local by design:
// losing it on restart only relaxes limits temporarily.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most `limit` requests per `window` for each caller key.
// Expired windows are evicted lazily on access and by a periodic sweep.
type Limiter struct {
	window time.Duration
	limit  int

	mu      sync.Mutex
	windows map[string][]time.Time

	now func() time.Time
}

// New creates a sliding-window limiter with the given window and threshold
func New(window time.Duration, limit int) *Limiter {
	return &Limiter{
		window:  window,
		limit:   limit,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Admit records a request for key and reports whether it is allowed.
// A denied request is not recorded against the window.
func (l *Limiter) Admit(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.windows[key]

	// Drop timestamps that slid out of the window
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false
	}

	l.windows[key] = append(kept, now)
	return true
}

// Remaining reports how many requests key may still make in the current
// window, without recording anything.
func (l *Limiter) Remaining(key string) int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	active := 0
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			active++
		}
	}

	if active >= l.limit {
		return 0
	}
	return l.limit - active
}

// sweep removes keys whose entire window has expired
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.windows {
		expired := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				expired = false
				break
			}
		}
		if expired {
			delete(l.windows, key)
		}
	}
}

// StartSweeper periodically evicts fully expired windows until ctx is done
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}
