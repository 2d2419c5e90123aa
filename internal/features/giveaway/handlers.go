// Package giveaway — handlers.go:
//
//	GET  /api/v1/giveaways?status=
//	GET  /api/v1/giveaways/:id
//	POST /api/v1/giveaways/:id/join
//	POST /api/v1/admin/giveaways
//	POST /api/v1/admin/giveaways/:id/resolve
package giveaway

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/server/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает публичные маршруты на /giveaways (запись требует playerCtx)
// и админские на /admin/giveaways.
func (h *Handler) Register(giveaways fiber.Router, playerCtx fiber.Handler, admin fiber.Router) {
	giveaways.Get("/", h.HandleList)
	giveaways.Get("/:id", h.HandleStatus)
	giveaways.Post("/:id/join", playerCtx, h.HandleJoin)

	admin.Post("/", h.HandleCreate)
	admin.Post("/:id/resolve", h.HandleResolve)
}

func (h *Handler) HandleList(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"giveaways": list})
}

func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	id, err := giveawayParam(c)
	if err != nil {
		return err
	}
	st, err := h.service.Status(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handler) HandleJoin(c *fiber.Ctx) error {
	id, err := giveawayParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Join(c.UserContext(), id, middleware.PlayerID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"joined": true, "giveaway_id": id})
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var in CreateInput
	if err := c.BodyParser(&in); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	g, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	id, err := giveawayParam(c)
	if err != nil {
		return err
	}
	res, err := h.service.Resolve(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func giveawayParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: некорректный id розыгрыша", common.ErrInvalidInput)
	}
	return int64(id), nil
}
