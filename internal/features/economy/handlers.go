// Package economy — handlers.go: HTTP-маршруты баланса и истории операций.
//
//	GET /api/v1/me/balance
//	GET /api/v1/me/ledger?limit=&offset=
package economy

import (
	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/souls/internal/server/middleware"
	"serotonyl.ru/souls/internal/storage"
)

// Handler обрабатывает запросы экономики.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты на группу /me.
func (h *Handler) Register(me fiber.Router) {
	me.Get("/balance", h.HandleBalance)
	me.Get("/ledger", h.HandleLedger)
}

func (h *Handler) HandleBalance(c *fiber.Ctx) error {
	view, err := h.service.Balance(c.UserContext(), middleware.PlayerID(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) HandleLedger(c *fiber.Ctx) error {
	page := storage.Page{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	history, err := h.service.History(c.UserContext(), middleware.PlayerID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(history)
}
