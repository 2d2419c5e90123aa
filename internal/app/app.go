// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: открывает хранилище, загружает каталог, создаёт сервисы,
// обработчики, планировщик и HTTP-сервер.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/activity"
	"serotonyl.ru/souls/internal/features/admin"
	"serotonyl.ru/souls/internal/features/cases"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/features/giveaway"
	"serotonyl.ru/souls/internal/features/inventory"
	"serotonyl.ru/souls/internal/features/players"
	"serotonyl.ru/souls/internal/jobs"
	"serotonyl.ru/souls/internal/notify"
	"serotonyl.ru/souls/internal/random"
	"serotonyl.ru/souls/internal/server"
	"serotonyl.ru/souls/internal/storage"
	"serotonyl.ru/souls/internal/storage/postgres"
	"serotonyl.ru/souls/internal/storage/sqlite"
)

// App содержит все компоненты приложения.
type App struct {
	Store      storage.Store
	Server     *server.Server
	Scheduler  *jobs.Scheduler
	Dispatcher *notify.Dispatcher
	Admin      *admin.Service
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Хранилище ===
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к хранилищу: %w", err)
	}

	a, err := build(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, store storage.Store) (*App, error) {
	// === 2. Каталог кейсов ===
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	// === 3. Уведомления ===
	notifier, err := newNotifier(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyQueueSize, cfg.NotifyTimeout)

	highValue, err := cases.NewHighValue(cfg.NotifyMinRarity, cfg.NotifyItemNames)
	if err != nil {
		return nil, err
	}

	// === 4. Сервисы ===
	economyService := economy.NewService(store, cfg)
	playerService := players.NewService(store, economyService, cfg)
	caseService := cases.NewService(store, economyService, cat, cfg, dispatcher, highValue, random.Secure())
	inventoryService := inventory.NewService(store, economyService, cat, random.Secure())
	activityService := activity.NewService(store, economyService, playerService, cfg)
	giveawayService := giveaway.NewService(store, economyService, cfg, dispatcher, random.Secure())
	adminService, err := admin.NewService(economyService, cfg)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_KEY_HASH: %w", err)
	}

	// === 5. Фоновые задачи ===
	scheduler, err := jobs.NewScheduler(giveawayService, cfg)
	if err != nil {
		adminService.Close()
		return nil, fmt.Errorf("ошибка планировщика: %w", err)
	}

	// === 6. HTTP ===
	srv := server.New(cfg, store, server.Handlers{
		Economy:   economy.NewHandler(economyService),
		Players:   players.NewHandler(playerService),
		Cases:     cases.NewHandler(caseService),
		Inventory: inventory.NewHandler(inventoryService),
		Activity:  activity.NewHandler(activityService),
		Giveaway:  giveaway.NewHandler(giveawayService),
		Admin:     admin.NewHandler(adminService),
	}, adminService.Authorize)

	log.WithFields(log.Fields{
		"driver": cfg.DBDriver,
		"pools":  len(cat.Pools()),
	}).Info("Все компоненты инициализированы")

	return &App{
		Store:      store,
		Server:     srv,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Admin:      adminService,
	}, nil
}

// Start запускает фоновые компоненты. Server.Listen вызывается отдельно, он блокирует.
func (a *App) Start() {
	a.Dispatcher.Start()
	a.Scheduler.Start()
}

// Shutdown останавливает компоненты в обратном порядке: сначала перестаём принимать
// запросы, затем дожидаемся фоновых задач и очереди уведомлений, закрываем хранилище.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	a.Scheduler.Stop(ctx)
	a.Dispatcher.Stop(ctx)
	a.Admin.Close()
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("хранилище: %w", err))
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return postgres.Open(ctx, cfg)
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Static, error) {
	if cfg.CatalogPath == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("встроенный каталог: %w", err)
		}
		return cat, nil
	}
	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("каталог %s: %w", cfg.CatalogPath, err)
	}
	log.WithField("path", cfg.CatalogPath).Info("Каталог кейсов загружен из файла")
	return cat, nil
}

func newNotifier(cfg *config.Config) (notify.Notifier, error) {
	if cfg.NotifyTelegramToken == "" {
		log.Info("NOTIFY_TELEGRAM_TOKEN не задан, уведомления пишутся в лог")
		return notify.LogNotifier{}, nil
	}
	tg, err := notify.NewTelegram(cfg.NotifyTelegramToken, cfg.NotifyTelegramChatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-уведомлений: %w", err)
	}
	return tg, nil
}
