// Package cases — handlers.go: витрина и открытие кейсов.
//
//	GET  /api/v1/cases
//	GET  /api/v1/cases/:pool
//	POST /api/v1/me/cases/:pool/open
package cases

import (
	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/souls/internal/server/middleware"
)

// Handler обрабатывает запросы кейсов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает витрину на группу /cases, а открытие на группу /me.
// limit ограничивает частоту открытий на игрока.
func (h *Handler) Register(cases, me fiber.Router, limit fiber.Handler) {
	cases.Get("/", h.HandleList)
	cases.Get("/:pool", h.HandlePool)
	me.Post("/cases/:pool/open", limit, h.HandleOpen)
}

func (h *Handler) HandleList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"pools": h.service.Pools()})
}

func (h *Handler) HandlePool(c *fiber.Ctx) error {
	view, err := h.service.Pool(c.Params("pool"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) HandleOpen(c *fiber.Ctx) error {
	res, err := h.service.Open(c.UserContext(), middleware.PlayerID(c), c.Params("pool"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
