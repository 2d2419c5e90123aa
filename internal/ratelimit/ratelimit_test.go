package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withClock(l *Limiter) func(time.Duration) {
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.mu.Lock()
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	l.mu.Unlock()
	return func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestLimiterWindow(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Close()
	advance := withClock(l)

	assert.True(t, l.Allow("p1"))
	assert.False(t, l.Blocked("p1"))
	assert.True(t, l.Allow("p1"))
	assert.True(t, l.Blocked("p1"))
	assert.False(t, l.Allow("p1"))
	assert.True(t, l.Allow("p2"), "ключи не влияют друг на друга")

	advance(61 * time.Second)
	assert.False(t, l.Blocked("p1"))
	assert.True(t, l.Allow("p1"))
	assert.Equal(t, time.Minute, l.Window())
}

func TestSweepDropsStaleKeys(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Close()
	advance := withClock(l)

	l.Allow("a")
	l.Allow("b")
	advance(30 * time.Second)
	l.Allow("c")
	assert.Equal(t, 3, l.keys())

	advance(45 * time.Second)
	l.sweep()
	assert.Equal(t, 1, l.keys())
	assert.True(t, l.Blocked("c"))
}

func TestCloseIsIdempotent(t *testing.T) {
	l := New(1, time.Minute)
	l.Close()
	assert.NotPanics(t, l.Close)
}
