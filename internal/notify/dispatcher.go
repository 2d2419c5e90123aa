package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
)

// Dispatcher — ограниченная очередь событий и один воркер доставки.
// Publish никогда не блокирует: при переполнении событие отбрасывается с предупреждением.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration

	mu     sync.RWMutex
	queue  chan Event
	closed bool

	wg sync.WaitGroup
}

// NewDispatcher создаёт диспетчер с очередью на size событий.
func NewDispatcher(n Notifier, size int, timeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		notifier: n,
		timeout:  timeout,
		queue:    make(chan Event, size),
	}
}

// Start запускает воркер доставки.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	log.Info("Диспетчер уведомлений запущен")
}

// Publish ставит событие в очередь. Возвращает false, если событие отброшено.
func (d *Dispatcher) Publish(kind, text string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	ev := NewEvent(kind, text)
	select {
	case d.queue <- ev:
		return true
	default:
		log.WithFields(log.Fields{"event_id": ev.ID, "kind": kind}).Warn("Очередь уведомлений переполнена, событие отброшено")
		return false
	}
}

// Stop закрывает очередь и ждёт доставки оставшихся событий, но не дольше ctx.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Диспетчер уведомлений остановлен")
	case <-ctx.Done():
		log.Warn("Диспетчер уведомлений остановлен, часть событий не доставлена")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"event_id": ev.ID, "panic": fmt.Sprintf("%v", r)}).Error("Паника при отправке уведомления")
		}
	}()

	if err := d.notifier.Notify(ctx, ev); err != nil {
		log.WithError(fmt.Errorf("%w: %w", common.ErrNotificationFailed, err)).
			WithFields(log.Fields{"event_id": ev.ID, "kind": ev.Kind}).
			Warn("Уведомление не доставлено")
	}
}
