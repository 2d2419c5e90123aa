// Package notify отправляет уведомления во внешний канал (Telegram) после фиксации транзакций.
// Уведомления — побочный эффект: их сбой логируется и никогда не откатывает основную операцию.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Виды событий.
const (
	KindHighValueDrop   = "high_value_drop"
	KindGiveawayResolve = "giveaway_resolved"
)

// Event — одно уведомление.
type Event struct {
	ID   string
	Kind string
	Text string
	At   time.Time
}

// NewEvent создаёт событие с уникальным id.
func NewEvent(kind, text string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Text: text, At: time.Now()}
}

// Notifier доставляет событие во внешний канал.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Publisher — то, что нужно сервисам: поставить событие в очередь, не блокируясь.
type Publisher interface {
	Publish(kind, text string) bool
}

// Nop — Publisher, который ничего не делает.
type Nop struct{}

func (Nop) Publish(string, string) bool { return false }

// Telegram отправляет события в чат через Bot API.
type Telegram struct {
	bot    *telego.Bot
	chatID int64
}

// NewTelegram создаёт уведомитель. Токен проверяется только по формату, сеть не трогаем.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, ev Event) error {
	msg := tu.Message(tu.ID(t.chatID), ev.Text)
	if _, err := t.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// LogNotifier пишет события в лог. Используется, когда Telegram не настроен.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	log.WithFields(log.Fields{"event_id": ev.ID, "kind": ev.Kind}).Info(ev.Text)
	return nil
}
