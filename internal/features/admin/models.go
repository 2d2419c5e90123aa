// Package admin — операции администратора: проверка ключа X-Admin-Key,
// выдача и изъятие душ, аудит леджера игрока.
// models.go описывает параметры хеша ключа и запросы.
package admin

// Params — параметры Argon2id.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams — параметры для боевого ключа (64 MB, 3 итерации).
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

type grantRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}
