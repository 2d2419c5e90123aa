package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
)

// Заголовки аутентификации.
const (
	HeaderPlayerID = "X-Player-ID"
	HeaderAdminKey = "X-Admin-Key"
)

// BearerToken проверяет "Authorization: Bearer <token>".
// caller используется только в логах (gateway, game_server).
func BearerToken(expected, caller string) fiber.Handler {
	want := []byte(expected)
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if authHeader == "" || !ok {
			log.WithFields(log.Fields{"caller": caller, "path": c.Path()}).Warn("Нет токена авторизации")
			return common.ErrUnauthorized
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			log.WithFields(log.Fields{"caller": caller, "path": c.Path()}).Warn("Неверный токен авторизации")
			return common.ErrUnauthorized
		}
		return c.Next()
	}
}

// PlayerContext кладёт в c.Locals проверенный шлюзом id игрока из X-Player-ID.
func PlayerContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.NormalizePlayerID(c.Get(HeaderPlayerID))
		if err != nil {
			return err
		}
		c.Locals(PlayerIDKey, id)
		return c.Next()
	}
}

// PlayerID возвращает id игрока, установленный PlayerContext.
func PlayerID(c *fiber.Ctx) string {
	id, _ := c.Locals(PlayerIDKey).(string)
	return id
}

// AdminKey пропускает запрос, только если authorize принимает X-Admin-Key.
// authorize получает IP клиента для учёта неудачных попыток.
func AdminKey(authorize func(key, ip string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderAdminKey)
		if key == "" {
			log.WithFields(log.Fields{"path": c.Path(), "ip": c.IP()}).Warn("Админ-запрос без ключа")
			return common.ErrUnauthorized
		}
		if err := authorize(key, c.IP()); err != nil {
			log.WithFields(log.Fields{"path": c.Path(), "ip": c.IP()}).Warn("Отклонён админ-запрос")
			return err
		}
		return c.Next()
	}
}
