// Package server собирает HTTP API на fiber: маршруты, аутентификацию вызывающих
// и обработку ошибок. Бизнес-логики здесь нет, только маршрутизация.
package server

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/activity"
	"serotonyl.ru/souls/internal/features/admin"
	"serotonyl.ru/souls/internal/features/cases"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/features/giveaway"
	"serotonyl.ru/souls/internal/features/inventory"
	"serotonyl.ru/souls/internal/features/players"
	"serotonyl.ru/souls/internal/ratelimit"
	"serotonyl.ru/souls/internal/server/middleware"
)

// Handlers — обработчики всех фич.
type Handlers struct {
	Economy   *economy.Handler
	Players   *players.Handler
	Cases     *cases.Handler
	Inventory *inventory.Handler
	Activity  *activity.Handler
	Giveaway  *giveaway.Handler
	Admin     *admin.Handler
}

// Pinger проверяет доступность хранилища для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server — HTTP-сервер API.
type Server struct {
	app     *fiber.App
	cfg     *config.Config
	limiter *ratelimit.Limiter
}

// New создаёт сервер и регистрирует маршруты.
// authorizeAdmin проверяет X-Admin-Key (admin.Service.Authorize).
func New(cfg *config.Config, db Pinger, h Handlers, authorizeAdmin func(key, ip string) error) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "souls",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		BodyLimit:             64 * 1024,
	})
	app.Use(middleware.RequestLogger(), middleware.Recover())

	s := &Server{
		app:     app,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow),
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	gateway := middleware.BearerToken(cfg.GatewayToken, "gateway")
	gameServer := middleware.BearerToken(cfg.GameServerToken, "game_server")
	playerCtx := middleware.PlayerContext()

	v1 := app.Group("/api/v1")
	me := v1.Group("/me", gateway, playerCtx)
	caseShop := v1.Group("/cases", gateway)
	giveaways := v1.Group("/giveaways", gateway)
	srv := v1.Group("/server", gameServer)
	adm := v1.Group("/admin", middleware.AdminKey(authorizeAdmin))
	admPlayers := adm.Group("/players")
	admGiveaways := adm.Group("/giveaways")
	admCatalog := adm.Group("/catalog")

	h.Players.Register(me, admPlayers)
	h.Economy.Register(me)
	h.Inventory.Register(me, admPlayers, admCatalog)
	h.Cases.Register(caseShop, me, middleware.Limit(s.limiter))
	h.Giveaway.Register(giveaways, playerCtx, admGiveaways)
	h.Activity.Register(srv)
	h.Admin.Register(admPlayers)

	return s
}

// App возвращает fiber-приложение (для тестов через app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen блокирует до остановки сервера.
func (s *Server) Listen() error {
	log.WithField("addr", s.cfg.HTTPAddr).Info("HTTP-сервер запущен")
	return s.app.Listen(s.cfg.HTTPAddr)
}

// Shutdown дожидается завершения текущих запросов, но не дольше ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Close()
	return s.app.ShutdownWithContext(ctx)
}
