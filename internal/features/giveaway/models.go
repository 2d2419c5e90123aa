// Package giveaway проводит розыгрыши: приём заявок, выбор победителей
// (случайно среди участников или по лидерборду) и выплату денежных призов.
package giveaway

import (
	"time"

	"serotonyl.ru/souls/internal/storage"
)

const (
	// maxWinners — верхняя граница числа победителей одного розыгрыша.
	maxWinners = 100
	// payoutBatch — сколько невыплаченных призов обрабатывает один проход ретрая.
	payoutBatch = 200
	// payoutWorkers — сколько выплат ретрая идёт параллельно.
	payoutWorkers = 4
)

// CreateInput — параметры нового розыгрыша.
type CreateInput struct {
	Title       string       `json:"title"`
	PrizeAmount int64        `json:"prize_amount"`
	PrizeText   string       `json:"prize_text"`
	Mode        string       `json:"mode"`
	Metric      string       `json:"metric"`
	Winners     int          `json:"winners"`
	MinBalance  int64        `json:"min_balance"`
	MinRating   int64        `json:"min_rating"`
	MinTier     storage.Tier `json:"min_tier"`
	EndsAt      time.Time    `json:"ends_at"`
}

// Result — итог подведения розыгрыша.
type Result struct {
	Giveaway *storage.Giveaway `json:"giveaway"`
	Winners  []storage.Winner  `json:"winners"`
}

// Status — состояние розыгрыша для клиента.
type Status struct {
	Giveaway *storage.Giveaway `json:"giveaway"`
	Entrants int               `json:"entrants"`
	Winners  []storage.Winner  `json:"winners"`
}
