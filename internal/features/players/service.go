// Package players — service.go: профиль, уровень и рейтинг игрока.
// Баланс здесь не меняется никогда: только через economy.
package players

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/storage"
)

// Service управляет игроками.
type Service struct {
	store   storage.Store
	economy *economy.Service
	cfg     *config.Config
}

// NewService создаёт сервис игроков.
func NewService(store storage.Store, economyService *economy.Service, cfg *config.Config) *Service {
	return &Service{store: store, economy: economyService, cfg: cfg}
}

// Profile возвращает профиль, создавая игрока при первом обращении.
func (s *Service) Profile(ctx context.Context, playerID string) (*Profile, error) {
	p, err := s.economy.Ensure(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return s.profile(p), nil
}

func (s *Service) profile(p *storage.Player) *Profile {
	discount := 0
	if p.Tier > storage.TierNone && p.Tier.Valid() {
		discount = s.cfg.Discounts()[p.Tier-1]
	}
	return &Profile{
		Player:         p,
		Multiplier:     Multiplier(p.Tier),
		CaseDiscount:   discount,
		BalanceDisplay: common.FormatBalance(p.Balance),
	}
}

// SetTier меняет уровень привилегии (админ).
func (s *Service) SetTier(ctx context.Context, playerID string, tier storage.Tier) (*Profile, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: уровень %d", common.ErrInvalidInput, int(tier))
	}

	var p *storage.Player
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if p, err = s.economy.LockPlayer(ctx, tx, playerID); err != nil {
			return err
		}
		if err := tx.SetTier(ctx, p.ID, tier); err != nil {
			return fmt.Errorf("ошибка смены уровня: %w", err)
		}
		p.Tier = tier
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"player_id": p.ID, "tier": tier.String()}).Info("Уровень игрока изменён")
	return s.profile(p), nil
}

// SetRating сохраняет рейтинг игрока, присланный игровым сервером.
func (s *Service) SetRating(ctx context.Context, playerID string, rating int64) (*storage.Player, error) {
	if rating < 0 {
		return nil, fmt.Errorf("%w: рейтинг не может быть отрицательным", common.ErrInvalidAmount)
	}

	var p *storage.Player
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if p, err = s.economy.LockPlayer(ctx, tx, playerID); err != nil {
			return err
		}
		if err := tx.SetRating(ctx, p.ID, rating); err != nil {
			return fmt.Errorf("ошибка обновления рейтинга: %w", err)
		}
		p.Rating = rating
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"player_id": p.ID, "rating": rating}).Debug("Рейтинг обновлён")
	return p, nil
}
