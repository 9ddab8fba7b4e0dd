package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdmitUpToLimit(t *testing.T) {
	l := New(time.Minute, 3)

	assert.True(t, l.Admit("1.2.3.4"))
	assert.True(t, l.Admit("1.2.3.4"))
	assert.True(t, l.Admit("1.2.3.4"))
	assert.False(t, l.Admit("1.2.3.4"), "4th request inside the window must be denied")
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Minute, 1)

	assert.True(t, l.Admit("caller-a"))
	assert.False(t, l.Admit("caller-a"))
	assert.True(t, l.Admit("caller-b"))
}

func TestWindowSlides(t *testing.T) {
	l := New(10*time.Second, 2)

	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Admit("k"))

	now = now.Add(6 * time.Second)
	assert.True(t, l.Admit("k"))
	assert.False(t, l.Admit("k"))

	// First stamp slides out at t+10s; one slot opens up
	now = now.Add(5 * time.Second)
	assert.True(t, l.Admit("k"))
	assert.False(t, l.Admit("k"))
}

func TestDeniedRequestNotRecorded(t *testing.T) {
	l := New(10*time.Second, 1)

	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Admit("k"))

	// Hammering while denied must not extend the lockout
	for i := 0; i < 5; i++ {
		assert.False(t, l.Admit("k"))
	}

	now = now.Add(11 * time.Second)
	assert.True(t, l.Admit("k"))
}

func TestRemaining(t *testing.T) {
	l := New(time.Minute, 3)

	assert.Equal(t, 3, l.Remaining("k"))
	l.Admit("k")
	l.Admit("k")
	assert.Equal(t, 1, l.Remaining("k"))
	l.Admit("k")
	assert.Equal(t, 0, l.Remaining("k"))
}

func TestSweepEvictsExpiredWindows(t *testing.T) {
	l := New(10*time.Second, 2)

	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	l.Admit("old")
	now = now.Add(8 * time.Second)
	l.Admit("fresh")

	now = now.Add(3 * time.Second)
	l.sweep()

	l.mu.Lock()
	_, oldPresent := l.windows["old"]
	_, freshPresent := l.windows["fresh"]
	l.mu.Unlock()

	assert.False(t, oldPresent, "fully expired window should be evicted")
	assert.True(t, freshPresent, "window with live stamps should survive the sweep")
}
