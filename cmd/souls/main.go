// Package main — точка входа сервиса экономики.
// Загружает конфигурацию, инициализирует приложение и запускает HTTP-сервер.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/app"
	"serotonyl.ru/souls/internal/config"
)

// shutdownTimeout — сколько ждём завершения запросов, задач и очереди уведомлений.
const shutdownTimeout = 15 * time.Second

func main() {
	// .env необязателен: в Docker переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Не удалось прочитать .env")
	}

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}
	setupLogging(cfg)

	log.WithField("env", cfg.AppEnv).Info("=== Сервис душ запускается ===")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем приложение (хранилище, каталог, сервисы, маршруты)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	application.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Listen()
	}()

	log.Info("=== Сервис готов к работе ===")

	// Ждём сигнала остановки (Ctrl+C, docker stop) или падения сервера
	select {
	case <-ctx.Done():
		log.Info("Получен сигнал остановки, останавливаемся...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP-сервер завершился с ошибкой")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Ошибки при остановке")
	}

	log.Info("=== Сервис остановлен ===")
}

// setupLogging настраивает формат и уровень логов.
func setupLogging(cfg *config.Config) {
	if cfg.AppLogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err != nil {
		log.WithField("level", cfg.AppLogLevel).Warn("Неизвестный APP_LOG_LEVEL, используем info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
