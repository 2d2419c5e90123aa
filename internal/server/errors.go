// Package server — errors.go: перевод доменных ошибок в HTTP-ответы.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/server/middleware"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings переводит доменные ошибки в HTTP-статусы. Первое совпадение побеждает.
var errorMappings = []errorMapping{
	{common.ErrInsufficientFunds, fiber.StatusPaymentRequired, "insufficient_funds"},
	{common.ErrInvalidAmount, fiber.StatusBadRequest, "invalid_amount"},
	{common.ErrInvalidPlayerID, fiber.StatusBadRequest, "invalid_player_id"},
	{common.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input"},
	{common.ErrInvalidGiveaway, fiber.StatusBadRequest, "invalid_giveaway"},
	{common.ErrPlayerNotFound, fiber.StatusNotFound, "player_not_found"},
	{common.ErrPoolNotFound, fiber.StatusNotFound, "pool_not_found"},
	{common.ErrCatalogItemNotFound, fiber.StatusNotFound, "catalog_item_not_found"},
	{common.ErrItemNotFound, fiber.StatusNotFound, "item_not_found"},
	{common.ErrGiveawayNotFound, fiber.StatusNotFound, "giveaway_not_found"},
	{common.ErrAlreadyEnded, fiber.StatusConflict, "already_ended"},
	{common.ErrNoEntries, fiber.StatusConflict, "no_entries"},
	{common.ErrAlreadyJoined, fiber.StatusConflict, "already_joined"},
	{common.ErrGiveawayClosed, fiber.StatusConflict, "giveaway_closed"},
	{common.ErrNotJoinable, fiber.StatusConflict, "not_joinable"},
	{common.ErrNotEligible, fiber.StatusConflict, "not_eligible"},
	{common.ErrUnauthorized, fiber.StatusUnauthorized, "unauthorized"},
	{common.ErrRateLimited, fiber.StatusTooManyRequests, "rate_limited"},
	{common.ErrFeatureDisabled, fiber.StatusForbidden, "feature_disabled"},
	{common.ErrStorageUnavailable, fiber.StatusServiceUnavailable, "storage_unavailable"},
}

// ErrorHandler — единая точка превращения ошибок обработчиков в JSON-ответ.
// Неизвестные ошибки отдаются как 500 без подробностей, подробности уходят в лог.
func ErrorHandler(c *fiber.Ctx, err error) error {
	resp := ErrorResponse{RequestID: middleware.RequestID(c)}
	status := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status, resp.Code, resp.Error = fe.Code, "http_error", fe.Message
	default:
		for _, m := range errorMappings {
			if errors.Is(err, m.err) {
				status, resp.Code, resp.Error = m.status, m.code, err.Error()
				break
			}
		}
	}

	if resp.Code == "" {
		log.WithError(err).WithFields(log.Fields{
			"request_id": resp.RequestID,
			"path":       c.Path(),
		}).Error("Необработанная ошибка")
		resp.Code, resp.Error = "internal", "внутренняя ошибка"
	}

	return c.Status(status).JSON(resp)
}
