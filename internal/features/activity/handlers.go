// Package activity — handlers.go: отчёты игровых серверов.
//
//	POST /api/v1/server/activity {player_id, kills, minutes}
//	POST /api/v1/server/rating   {player_id, rating}
package activity

import (
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

// Register вешает маршруты на группу /server (токен игрового сервера).
func (h *Handler) Register(server fiber.Router) {
	server.Post("/activity", h.HandleActivity)
	server.Post("/rating", h.HandleRating)
}

type activityRequest struct {
	PlayerID string `json:"player_id"`
	Kills    int64  `json:"kills"`
	Minutes  int64  `json:"minutes"`
}

func (h *Handler) HandleActivity(c *fiber.Ctx) error {
	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	rep, err := h.service.Report(c.UserContext(), req.PlayerID, req.Kills, req.Minutes)
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

type ratingRequest struct {
	PlayerID string `json:"player_id"`
	Rating   int64  `json:"rating"`
}

func (h *Handler) HandleRating(c *fiber.Ctx) error {
	var req ratingRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	p, err := h.service.ReportRating(c.UserContext(), req.PlayerID, req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"player_id": p.ID, "rating": p.Rating})
}
