// Package activity превращает статистику с игровых серверов в души.
//
// Игровой сервер — доверенный вызывающий: его токен и есть граница доверия,
// поэтому повторные отчёты не отслеживаются и цифры не перепроверяются.
package activity

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/features/players"
	"serotonyl.ru/souls/internal/storage"
)

// Report — итог начисления за отчёт.
type Report struct {
	PlayerID      string `json:"player_id"`
	KillSouls     int64  `json:"kill_souls"`
	PlaytimeSouls int64  `json:"playtime_souls"`
	Earned        int64  `json:"earned"`
	Balance       int64  `json:"balance"`
	Multiplier    int64  `json:"multiplier"`
}

// Service начисляет души за активность.
type Service struct {
	store   storage.Store
	economy *economy.Service
	players *players.Service
	cfg     *config.Config
}

func NewService(store storage.Store, economyService *economy.Service, playerService *players.Service, cfg *config.Config) *Service {
	return &Service{store: store, economy: economyService, players: playerService, cfg: cfg}
}

// Report начисляет души за убийства и минуты игры с учётом множителя уровня.
// Каждая ненулевая часть пишется отдельной записью леджера; счётчики
// обновляются в той же транзакции.
func (s *Service) Report(ctx context.Context, playerID string, kills, minutes int64) (*Report, error) {
	if kills < 0 || minutes < 0 {
		return nil, fmt.Errorf("%w: kills и minutes не могут быть отрицательными", common.ErrInvalidAmount)
	}

	var rep *Report
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		p, err := s.economy.LockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}

		mult := players.Multiplier(p.Tier)
		killSouls, ok1 := mul(kills, s.cfg.AccrualPerKill, mult)
		playSouls, ok2 := mul(minutes, s.cfg.AccrualPerMinute, mult)
		if !ok1 || !ok2 {
			return fmt.Errorf("%w: переполнение начисления", common.ErrInvalidAmount)
		}

		if killSouls > 0 {
			desc := fmt.Sprintf("Убийства: %d × %d", kills, mult)
			if _, err := s.economy.ApplyDeltaTx(ctx, tx, p, killSouls, economy.CategoryKillAward, desc); err != nil {
				return err
			}
		}
		if playSouls > 0 {
			desc := fmt.Sprintf("Время в игре: %d мин × %d", minutes, mult)
			if _, err := s.economy.ApplyDeltaTx(ctx, tx, p, playSouls, economy.CategoryPlaytimeAward, desc); err != nil {
				return err
			}
		}
		if kills > 0 || minutes > 0 {
			if err := tx.AddCounters(ctx, p.ID, storage.Counters{Kills: kills, PlaytimeMinutes: minutes}); err != nil {
				return fmt.Errorf("ошибка обновления счётчиков: %w", err)
			}
		}

		rep = &Report{
			PlayerID:      p.ID,
			KillSouls:     killSouls,
			PlaytimeSouls: playSouls,
			Earned:        killSouls + playSouls,
			Balance:       p.Balance,
			Multiplier:    mult,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player_id":  rep.PlayerID,
		"kills":      kills,
		"minutes":    minutes,
		"earned":     rep.Earned,
		"multiplier": rep.Multiplier,
	}).Debug("Начислены души за активность")
	return rep, nil
}

// ReportRating сохраняет рейтинг игрока для лидербордов.
func (s *Service) ReportRating(ctx context.Context, playerID string, rating int64) (*storage.Player, error) {
	return s.players.SetRating(ctx, playerID, rating)
}

// mul перемножает неотрицательные множители с проверкой переполнения.
func mul(a, b, c int64) (int64, bool) {
	if a == 0 || b == 0 || c == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	ab := a * b
	if ab > math.MaxInt64/c {
		return 0, false
	}
	return ab * c, true
}
