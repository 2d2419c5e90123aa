package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/ratelimit"
)

// Limit — fiber-обработчик, ограничивающий запросы игрока через l.
// Ставится после PlayerContext; без игрока ключом служит IP.
func Limit(l *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := PlayerID(c)
		if key == "" {
			key = c.IP()
		}
		if !l.Allow(key) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(l.Window().Seconds())))
			return common.ErrRateLimited
		}
		return c.Next()
	}
}
