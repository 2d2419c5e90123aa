// Package ratelimit — ratelimit.go ограничитель частоты по ключу со скользящим окном.
// Используется и HTTP-слоем (лимит запросов игрока), и админкой (блокировка IP).
package ratelimit

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// Limiter ограничивает количество событий на ключ (id игрока, IP) за окно.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Window возвращает длину окна.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Allow засчитывает событие для key и сообщает, укладывается ли оно в лимит.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.requests[key], now.Add(-l.window))

	if len(recent) >= l.limit {
		l.requests[key] = recent
		return false
	}

	l.requests[key] = append(recent, now)
	return true
}

// Blocked сообщает, исчерпан ли лимит для key, не засчитывая новое событие.
func (l *Limiter) Blocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.requests[key], l.now().Add(-l.window))
	if len(recent) == 0 {
		delete(l.requests, key)
		return false
	}
	l.requests[key] = recent
	return len(recent) >= l.limit
}

func (l *Limiter) keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, times := range l.requests {
		if recent := prune(times, cutoff); len(recent) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = recent
		}
	}
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}
