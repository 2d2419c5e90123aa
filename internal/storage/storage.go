// Package storage — storage.go задаёт контракт хранилища леджера.
// Реализации: storage/postgres (основная) и storage/sqlite (одиночный инстанс, тесты).
//
// Все изменения идут через InTx. Блокировки строк (LockPlayer, LockGiveaway, LockItem)
// сериализуют конкурентные операции над одним игроком или розыгрышем,
// не мешая операциям над другими.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound — запись не найдена. Сервисы переводят её в доменную ошибку.
var ErrNotFound = errors.New("запись не найдена")

// Reader — чтение без побочных эффектов.
type Reader interface {
	GetPlayer(ctx context.Context, id string) (*Player, error)
	// ListEntries возвращает записи игрока от новых к старым.
	ListEntries(ctx context.Context, playerID string, page Page) ([]LedgerEntry, error)
	// ChainEntries возвращает всю цепочку игрока от старых к новым.
	ChainEntries(ctx context.Context, playerID string) ([]LedgerEntry, error)
	ListItems(ctx context.Context, playerID string) ([]OwnedItem, error)

	GetGiveaway(ctx context.Context, id int64) (*Giveaway, error)
	// ListGiveaways возвращает розыгрыши с данным статусом (пустой — все), новые первыми.
	ListGiveaways(ctx context.Context, status string) ([]Giveaway, error)
	CountEntrants(ctx context.Context, giveawayID int64) (int, error)
	ListWinners(ctx context.Context, giveawayID int64) ([]Winner, error)
	// DueGiveaways — активные розыгрыши, у которых ends_at <= now.
	DueGiveaways(ctx context.Context, now time.Time) ([]Giveaway, error)
	// PendingPayouts — невыплаченные денежные призы завершённых розыгрышей.
	PendingPayouts(ctx context.Context, limit int) ([]Payout, error)

	Ping(ctx context.Context) error
}

// Tx — операции внутри одной транзакции.
type Tx interface {
	// LockPlayer блокирует строку игрока до конца транзакции, создавая её при первом обращении.
	LockPlayer(ctx context.Context, id string) (p *Player, created bool, err error)
	SetBalance(ctx context.Context, id string, balance, lifetimeEarned int64) error
	// AppendEntry добавляет запись леджера и заполняет e.ID и e.CreatedAt.
	AppendEntry(ctx context.Context, e *LedgerEntry) error
	AddCounters(ctx context.Context, id string, c Counters) error
	SetTier(ctx context.Context, id string, tier Tier) error
	SetRating(ctx context.Context, id string, rating int64) error
	// ChainEntries — то же, что Reader.ChainEntries, но внутри транзакции.
	ChainEntries(ctx context.Context, playerID string) ([]LedgerEntry, error)

	// InsertItem добавляет предмет и заполняет it.ID и it.CreatedAt.
	InsertItem(ctx context.Context, it *OwnedItem) error
	LockItem(ctx context.Context, playerID string, itemID int64) (*OwnedItem, error)
	UpdateItemFlags(ctx context.Context, it *OwnedItem) error
	// UnequipWeapon снимает экипировку стороны со всех предметов оружия игрока, кроме exceptID.
	UnequipWeapon(ctx context.Context, playerID, weapon string, side Side, exceptID int64) error
	DeleteItem(ctx context.Context, playerID string, itemID int64) error

	// InsertGiveaway добавляет розыгрыш и заполняет g.ID и g.CreatedAt.
	InsertGiveaway(ctx context.Context, g *Giveaway) error
	LockGiveaway(ctx context.Context, id int64) (*Giveaway, error)
	// InsertEntrant возвращает false, если игрок уже участвует.
	InsertEntrant(ctx context.Context, giveawayID int64, playerID string, at time.Time) (bool, error)
	// ListEntrants возвращает участников, отсортированных по player id.
	ListEntrants(ctx context.Context, giveawayID int64) ([]Entrant, error)
	// RankPlayers — лидерборд: metric DESC, затем id ASC, с учётом порогов.
	RankPlayers(ctx context.Context, q RankQuery) ([]Player, error)
	InsertWinners(ctx context.Context, winners []Winner) error
	EndGiveaway(ctx context.Context, id int64, at time.Time) error
	// ClaimPayout переводит выплату disbursed=false → true. false — уже выплачено.
	ClaimPayout(ctx context.Context, giveawayID int64, playerID string, at time.Time) (bool, error)
}

// Store — хранилище леджера.
type Store interface {
	Reader
	// InTx выполняет fn в транзакции: commit при nil, rollback при ошибке или панике.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// MetricValue возвращает значение метрики лидерборда для игрока.
func MetricValue(p *Player, metric string) int64 {
	switch metric {
	case MetricRating:
		return p.Rating
	case MetricKills:
		return p.Kills
	default:
		return p.LifetimeEarned
	}
}

// ValidMetric сообщает, поддерживается ли метрика лидерборда.
func ValidMetric(metric string) bool {
	switch metric {
	case MetricLifetimeEarned, MetricRating, MetricKills:
		return true
	}
	return false
}

// metricColumns — белый список колонок для ORDER BY.
var metricColumns = map[string]string{
	MetricLifetimeEarned: "lifetime_earned",
	MetricRating:         "rating",
	MetricKills:          "kills",
}

// MetricColumn возвращает имя колонки метрики. Используется бэкендами при построении запроса.
func MetricColumn(metric string) (string, bool) {
	c, ok := metricColumns[metric]
	return c, ok
}
