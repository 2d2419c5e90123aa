// Package storage — models.go описывает сущности, которые хранит леджер:
// игроков, записи леджера, предметы инвентаря и розыгрыши.
package storage

import (
	"fmt"
	"strings"
	"time"

	"serotonyl.ru/souls/internal/catalog"
)

// Tier — уровень привилегии игрока. Влияет на множитель заработка и скидку на кейсы.
type Tier int

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
)

var tierNames = [...]string{"none", "bronze", "silver", "gold"}

func (t Tier) Valid() bool { return t >= TierNone && t <= TierGold }

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier разбирает название уровня. Пустая строка — TierNone.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TierNone, nil
	}
	for i, name := range tierNames {
		if s == name {
			return Tier(i), nil
		}
	}
	return TierNone, fmt.Errorf("неизвестный уровень %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("некорректный уровень %d", int(t))
	}
	return []byte(tierNames[t]), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Player — игрок. Баланс меняет только economy.Service.
type Player struct {
	ID              string    `json:"id"`
	Balance         int64     `json:"balance"`
	LifetimeEarned  int64     `json:"lifetime_earned"`
	Tier            Tier      `json:"tier"`
	Rating          int64     `json:"rating"`
	CasesOpened     int64     `json:"cases_opened"`
	Kills           int64     `json:"kills"`
	PlaytimeMinutes int64     `json:"playtime_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Counters — приращения производных счётчиков игрока.
type Counters struct {
	Kills           int64
	PlaytimeMinutes int64
	CasesOpened     int64
}

// LedgerEntry — неизменяемая запись леджера.
// ID — монотонная последовательность хранилища, задаёт порядок записей игрока.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	PlayerID     string    `json:"player_id"`
	Amount       int64     `json:"amount"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// Side — сторона в игре, для которой экипирован предмет.
type Side string

const (
	SideT  Side = "t"
	SideCT Side = "ct"
)

// ParseSide разбирает сторону (t / ct).
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideT:
		return SideT, nil
	case SideCT:
		return SideCT, nil
	}
	return "", fmt.Errorf("неизвестная сторона %q", s)
}

// OwnedItem — предмет в инвентаре. Принадлежит ровно одному игроку и никогда не меняет владельца.
type OwnedItem struct {
	ID            int64          `json:"id"`
	PlayerID      string         `json:"player_id"`
	PoolID        string         `json:"pool_id,omitempty"` // пусто для выдачи админом
	CatalogItemID string         `json:"catalog_item_id"`
	Name          string         `json:"name"`
	Weapon        string         `json:"weapon"`
	Wear          catalog.Wear   `json:"wear"`
	Float         float64        `json:"float"`
	Rarity        catalog.Rarity `json:"rarity"`
	Value         int64          `json:"value"`
	EquippedT     bool           `json:"equipped_t"`
	EquippedCT    bool           `json:"equipped_ct"`
	Favorite      bool           `json:"favorite"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Equipped сообщает, экипирован ли предмет на стороне.
func (i *OwnedItem) Equipped(side Side) bool {
	if side == SideCT {
		return i.EquippedCT
	}
	return i.EquippedT
}

// SetEquipped выставляет флаг экипировки для стороны.
func (i *OwnedItem) SetEquipped(side Side, v bool) {
	if side == SideCT {
		i.EquippedCT = v
	} else {
		i.EquippedT = v
	}
}

// Параметры розыгрыша.
const (
	PrizeCurrency = "currency"
	PrizeText     = "text"

	ModeRandom      = "random"
	ModeLeaderboard = "leaderboard"

	MetricLifetimeEarned = "lifetime_earned"
	MetricRating         = "rating"
	MetricKills          = "kills"

	StatusActive = "active"
	StatusEnded  = "ended"
)

// Eligibility — пороги участия в розыгрыше.
type Eligibility struct {
	MinBalance int64 `json:"min_balance"`
	MinRating  int64 `json:"min_rating"`
	MinTier    Tier  `json:"min_tier"`
}

// Allows проверяет игрока по порогам.
func (e Eligibility) Allows(p *Player) bool {
	return p.Balance >= e.MinBalance && p.Rating >= e.MinRating && p.Tier >= e.MinTier
}

// Giveaway — розыгрыш. Статус переходит только active → ended.
type Giveaway struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	PrizeKind    string      `json:"prize_kind"`
	PrizeAmount  int64       `json:"prize_amount,omitempty"`
	PrizeText    string      `json:"prize_text,omitempty"`
	Mode         string      `json:"mode"`
	Metric       string      `json:"metric,omitempty"`
	WinnersCount int         `json:"winners_count"`
	Eligibility  Eligibility `json:"eligibility"`
	EndsAt       time.Time   `json:"ends_at"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	EndedAt      *time.Time  `json:"ended_at,omitempty"`
}

// Entrant — заявка игрока на участие в розыгрыше (только режим random).
type Entrant struct {
	GiveawayID int64     `json:"giveaway_id"`
	PlayerID   string    `json:"player_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Winner — победитель розыгрыша. Disbursed выставляется ровно один раз.
type Winner struct {
	GiveawayID  int64      `json:"giveaway_id"`
	PlayerID    string     `json:"player_id"`
	Rank        int        `json:"rank"`
	Disbursed   bool       `json:"disbursed"`
	DisbursedAt *time.Time `json:"disbursed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Payout — невыплаченный денежный приз.
type Payout struct {
	GiveawayID int64
	PlayerID   string
	Amount     int64
	Title      string
}

// Page — пагинация.
type Page struct {
	Limit  int
	Offset int
}

// RankQuery — запрос лидерборда.
type RankQuery struct {
	Metric      string
	Eligibility Eligibility
	Limit       int
}
