// Package players — handlers.go:
//
//	GET  /api/v1/me
//	POST /api/v1/admin/players/:id/tier
package players

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

// Register вешает профиль на /me и смену уровня на /admin/players.
func (h *Handler) Register(me, adminPlayers fiber.Router) {
	me.Get("/", h.HandleProfile)
	adminPlayers.Post("/:id/tier", h.HandleSetTier)
}

func (h *Handler) HandleProfile(c *fiber.Ctx) error {
	p, err := h.service.Profile(c.UserContext(), middleware.PlayerID(c))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

type tierRequest struct {
	Tier string `json:"tier"`
}

func (h *Handler) HandleSetTier(c *fiber.Ctx) error {
	var req tierRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	tier, err := storage.ParseTier(req.Tier)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	p, err := h.service.SetTier(c.UserContext(), c.Params("id"), tier)
	if err != nil {
		return err
	}
	return c.JSON(p)
}
