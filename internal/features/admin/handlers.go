// Package admin — handlers.go:
//
//	POST /api/v1/admin/players/:id/grant {amount, description}
//	GET  /api/v1/admin/players/:id/audit
package admin

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/souls/internal/common"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты на группу /admin/players.
func (h *Handler) Register(adminPlayers fiber.Router) {
	adminPlayers.Post("/:id/grant", h.HandleGrant)
	adminPlayers.Get("/:id/audit", h.HandleAudit)
}

func (h *Handler) HandleGrant(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	entry, err := h.service.Grant(c.UserContext(), c.Params("id"), req.Amount, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(entry)
}

func (h *Handler) HandleAudit(c *fiber.Ctx) error {
	audit, err := h.service.Audit(c.UserContext(), c.Params("id"))
	if errors.Is(err, common.ErrLedgerCorrupt) && audit != nil {
		return c.Status(fiber.StatusConflict).JSON(audit)
	}
	if err != nil {
		return err
	}
	return c.JSON(audit)
}
