// Package players управляет профилем игрока: уровень привилегии, рейтинг,
// производные множитель заработка и скидка на кейсы.
package players

import "serotonyl.ru/souls/internal/storage"

// multipliers — множитель заработка по уровню: none, bronze, silver, gold.
var multipliers = [...]int64{1, 2, 3, 5}

// Multiplier возвращает множитель заработка для уровня.
func Multiplier(t storage.Tier) int64 {
	if !t.Valid() {
		return 1
	}
	return multipliers[t]
}

// Profile — профиль игрока для клиента.
type Profile struct {
	*storage.Player
	Multiplier     int64  `json:"multiplier"`
	CaseDiscount   int    `json:"case_discount"` // в процентах
	BalanceDisplay string `json:"balance_display"`
}
