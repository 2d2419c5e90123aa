// Package economy управляет валютой «души».
// models.go описывает категории записей леджера и ответы API.
package economy

import "serotonyl.ru/souls/internal/storage"

// Категории записей леджера. Категория объясняет, почему изменился баланс.
const (
	CategoryRewardDraw    = "reward_draw"    // Открытие кейса
	CategoryKillAward     = "kill_award"     // Начисление за убийства
	CategoryPlaytimeAward = "playtime_award" // Начисление за время в игре
	CategoryGiveawayPrize = "giveaway_prize" // Денежный приз розыгрыша
	CategoryAdminGrant    = "admin_grant"    // Выдача админом
	CategoryAdminTake     = "admin_take"     // Изъятие админом
	CategoryWelcome       = "welcome"        // Стартовый баланс нового игрока
)

// defaultHistoryLimit — размер страницы истории, если клиент его не указал.
const defaultHistoryLimit = 20

// BalanceView — ответ на запрос баланса.
type BalanceView struct {
	PlayerID       string `json:"player_id"`
	Balance        int64  `json:"balance"`
	LifetimeEarned int64  `json:"lifetime_earned"`
	Display        string `json:"display"` // "1 250 душ"
}

// History — страница истории операций (новые первыми).
type History struct {
	Entries []storage.LedgerEntry `json:"entries"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// Audit — результат проверки цепочки леджера игрока.
type Audit struct {
	PlayerID string `json:"player_id"`
	Balance  int64  `json:"balance"`
	Entries  int    `json:"entries"`
	OK       bool   `json:"ok"`
	Problem  string `json:"problem,omitempty"`
}
