// Package inventory — handlers.go:
//
//	GET    /api/v1/me/items
//	POST   /api/v1/me/items/:id/equip    {side}
//	POST   /api/v1/me/items/:id/unequip  {side}
//	POST   /api/v1/me/items/:id/favorite
//	DELETE /api/v1/me/items/:id
//	POST   /api/v1/admin/players/:id/items {template_id}
//	GET    /api/v1/admin/catalog?q=&limit=
package inventory

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/server/middleware"
	"serotonyl.ru/souls/internal/storage"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(me, adminPlayers, adminCatalog fiber.Router) {
	items := me.Group("/items")
	items.Get("/", h.HandleList)
	items.Post("/:id/equip", h.HandleEquip)
	items.Post("/:id/unequip", h.HandleUnequip)
	items.Post("/:id/favorite", h.HandleFavorite)
	items.Delete("/:id", h.HandleDelete)

	adminPlayers.Post("/:id/items", h.HandleGrant)
	adminCatalog.Get("/", h.HandleSearch)
}

// HandleSearch помогает админу найти template_id для выдачи по части названия.
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	return c.JSON(h.service.Search(c.Query("q"), c.QueryInt("limit", searchLimit)))
}

func (h *Handler) HandleList(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), middleware.PlayerID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

type sideRequest struct {
	Side string `json:"side"`
}

func (h *Handler) HandleEquip(c *fiber.Ctx) error {
	itemID, side, err := itemAndSide(c)
	if err != nil {
		return err
	}
	it, err := h.service.Equip(c.UserContext(), middleware.PlayerID(c), itemID, side)
	if err != nil {
		return err
	}
	return c.JSON(it)
}

func (h *Handler) HandleUnequip(c *fiber.Ctx) error {
	itemID, side, err := itemAndSide(c)
	if err != nil {
		return err
	}
	it, err := h.service.Unequip(c.UserContext(), middleware.PlayerID(c), itemID, side)
	if err != nil {
		return err
	}
	return c.JSON(it)
}

func (h *Handler) HandleFavorite(c *fiber.Ctx) error {
	itemID, err := itemParam(c)
	if err != nil {
		return err
	}
	it, err := h.service.ToggleFavorite(c.UserContext(), middleware.PlayerID(c), itemID)
	if err != nil {
		return err
	}
	return c.JSON(it)
}

func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	itemID, err := itemParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), middleware.PlayerID(c), itemID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type grantRequest struct {
	TemplateID string `json:"template_id"`
}

func (h *Handler) HandleGrant(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	it, err := h.service.Grant(c.UserContext(), c.Params("id"), req.TemplateID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(it)
}

func itemParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: некорректный id предмета", common.ErrInvalidInput)
	}
	return int64(id), nil
}

func itemAndSide(c *fiber.Ctx) (int64, storage.Side, error) {
	itemID, err := itemParam(c)
	if err != nil {
		return 0, "", err
	}
	var req sideRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, "", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	side, err := storage.ParseSide(req.Side)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return itemID, side, nil
}
