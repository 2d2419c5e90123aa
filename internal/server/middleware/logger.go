// Package middleware содержит промежуточные обработчики HTTP: логирование запросов,
// восстановление после паники, аутентификацию вызывающих и rate-limiting.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Ключи c.Locals.
const (
	RequestIDKey = "request_id"
	PlayerIDKey  = "player_id"
)

// HeaderRequestID — заголовок с идентификатором запроса (принимаем от шлюза или генерируем).
const HeaderRequestID = "X-Request-ID"

// RequestLogger присваивает запросу id и логирует его после обработки.
// Записывает: request_id, метод, путь, статус, длительность, игрока.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(HeaderRequestID)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}
		c.Locals(RequestIDKey, reqID)
		c.Set(HeaderRequestID, reqID)

		err := c.Next()
		if err != nil {
			// Ответ формирует ErrorHandler; вызываем его сейчас, чтобы залогировать итоговый статус.
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := log.Fields{
			"request_id": reqID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency":    time.Since(start).String(),
		}
		if pid := PlayerID(c); pid != "" {
			fields["player_id"] = pid
		}
		entry := log.WithFields(fields)
		switch status := c.Response().StatusCode(); {
		case status >= 500:
			entry.Error("HTTP-запрос")
		case status >= 400:
			entry.Warn("HTTP-запрос")
		default:
			entry.Debug("HTTP-запрос")
		}
		return nil
	}
}

// RequestID возвращает id текущего запроса.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}
