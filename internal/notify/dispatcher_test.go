package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (r *recorder) Notify(ctx context.Context, ev Event) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcherDelivers(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 8, time.Second)
	d.Start()

	assert.True(t, d.Publish(KindHighValueDrop, "one"))
	assert.True(t, d.Publish(KindGiveawayResolve, "two"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Stop(ctx)

	require.Equal(t, 2, rec.count())
	assert.Equal(t, "one", rec.events[0].Text)
	assert.NotEmpty(t, rec.events[0].ID)
	assert.NotEqual(t, rec.events[0].ID, rec.events[1].ID)
}

func TestDispatcherPublishNeverBlocks(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	d := NewDispatcher(rec, 2, time.Second)
	d.Start()

	accepted := 0
	start := time.Now()
	for i := 0; i < 10; i++ {
		if d.Publish(KindHighValueDrop, "x") {
			accepted++
		}
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	// воркер может держать одно событие, ещё два — в очереди
	assert.LessOrEqual(t, accepted, 3)
	assert.GreaterOrEqual(t, accepted, 2)

	close(rec.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Stop(ctx)
	assert.Equal(t, accepted, rec.count())
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	rec := &recorder{err: errors.New("telegram down")}
	d := NewDispatcher(rec, 4, 100*time.Millisecond)
	d.Start()

	assert.True(t, d.Publish(KindHighValueDrop, "x"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)
	assert.Equal(t, 1, rec.count())
}

func TestPublishAfterStop(t *testing.T) {
	d := NewDispatcher(LogNotifier{}, 1, time.Second)
	d.Start()
	d.Stop(context.Background())

	assert.False(t, d.Publish(KindHighValueDrop, "late"))
}

func TestNewTelegramRejectsMalformedToken(t *testing.T) {
	_, err := NewTelegram("not-a-token", 1)
	assert.Error(t, err)
}
