package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Recover перехватывает панику в обработчике и превращает её в 500.
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component":  "panic_recovery",
					"request_id": RequestID(c),
					"path":       c.Path(),
					"panic":      fmt.Sprintf("%v", r),
					"stack":      string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				err = fiber.NewError(fiber.StatusInternalServerError, "внутренняя ошибка")
			}
		}()
		return c.Next()
	}
}
