// Package admin — service.go: аутентификация по ключу и денежные операции админа.
package admin

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/ratelimit"
	"serotonyl.ru/souls/internal/storage"
)

// Service — админ-операции.
type Service struct {
	economy *economy.Service
	hash    *encodedHash

	// lockout считает неудачные попытки по IP (как в старой панели: 3 в час).
	lockout *ratelimit.Limiter

	// accepted — sha256 ключей, уже прошедших Argon2id. Экономит 64 MB на каждый запрос.
	accepted *lru.Cache
}

// acceptedCacheSize — верный ключ обычно один, больше записей не нужно.
const acceptedCacheSize = 16

// NewService разбирает ADMIN_KEY_HASH. Некорректный хеш — ошибка запуска.
func NewService(economyService *economy.Service, cfg *config.Config) (*Service, error) {
	h, err := parseHash(cfg.AdminKeyHash)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_KEY_HASH: %w", err)
	}
	accepted, err := lru.New(acceptedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("кеш ключей: %w", err)
	}
	return &Service{
		economy:  economyService,
		hash:     h,
		lockout:  ratelimit.New(cfg.AdminMaxAttempts, cfg.AdminLockout),
		accepted: accepted,
	}, nil
}

// Close останавливает фоновую очистку счётчика попыток.
func (s *Service) Close() {
	s.lockout.Close()
}

// Verify проверяет ключ по хешу Argon2id.
func (s *Service) Verify(key string) bool {
	digest := sha256.Sum256([]byte(key))

	if s.accepted.Contains(digest) {
		return true
	}
	if !s.hash.matches(key) {
		return false
	}
	s.accepted.Add(digest, struct{}{})
	return true
}

// Authorize проверяет ключ с учётом блокировки IP после серии неудач.
func (s *Service) Authorize(key, ip string) error {
	if s.lockout.Blocked(ip) {
		return fmt.Errorf("%w: слишком много неудачных попыток", common.ErrRateLimited)
	}
	if s.Verify(key) {
		return nil
	}
	s.lockout.Allow(ip)
	log.WithField("ip", ip).Warn("Неверный админский ключ")
	return common.ErrUnauthorized
}

// Grant выдаёт (amount > 0) или изымает (amount < 0) души.
func (s *Service) Grant(ctx context.Context, playerID string, amount int64, description string) (*storage.LedgerEntry, error) {
	category := economy.CategoryAdminGrant
	if amount < 0 {
		category = economy.CategoryAdminTake
	}
	description = strings.TrimSpace(description)
	if description == "" {
		if amount < 0 {
			description = "Изъятие администратором"
		} else {
			description = "Выдача администратором"
		}
	}

	entry, err := s.economy.ApplyDelta(ctx, playerID, amount, category, description)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"player_id": entry.PlayerID,
		"amount":    common.FormatSoulsAmount(amount),
		"balance":   entry.BalanceAfter,
	}).Warn("Баланс изменён администратором")
	return entry, nil
}

// Audit сверяет цепочку леджера игрока.
func (s *Service) Audit(ctx context.Context, playerID string) (*economy.Audit, error) {
	return s.economy.Verify(ctx, playerID)
}
