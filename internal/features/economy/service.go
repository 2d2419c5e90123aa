// Package economy — service.go содержит атомарный примитив изменения баланса.
// Любое движение душ проходит через ApplyDeltaTx: он единственный пишет баланс
// и добавляет запись леджера с итоговым балансом. Сериализация по игроку —
// блокировка строки в хранилище, а не мьютекс в процессе.
package economy

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/storage"
)

// Service управляет балансами игроков.
type Service struct {
	store storage.Store
	cfg   *config.Config
}

// NewService создаёт сервис экономики.
func NewService(store storage.Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// LockPlayer блокирует игрока в транзакции tx, создавая его при первом обращении.
// Только здесь создаются игроки: новому игроку начисляется стартовый баланс
// отдельной записью welcome, чтобы цепочка леджера начиналась с нуля.
func (s *Service) LockPlayer(ctx context.Context, tx storage.Tx, playerID string) (*storage.Player, error) {
	id, err := common.NormalizePlayerID(playerID)
	if err != nil {
		return nil, err
	}

	p, created, err := tx.LockPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки игрока: %w", err)
	}

	if created {
		log.WithField("player_id", id).Info("Новый игрок")
		if start := s.cfg.EconomyStartingBalance; start > 0 {
			if _, err := s.ApplyDeltaTx(ctx, tx, p, start, CategoryWelcome, "Стартовый баланс"); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// ApplyDeltaTx применяет amount к игроку p внутри транзакции tx.
// p должен быть получен через LockPlayer в этой же транзакции; его поля обновляются.
//
// Возвращает:
//   - ErrInvalidAmount, если amount == 0 или баланс переполнится
//   - ErrInsufficientFunds, если списание уводит баланс в минус (ничего не меняется)
func (s *Service) ApplyDeltaTx(ctx context.Context, tx storage.Tx, p *storage.Player, amount int64, category, description string) (*storage.LedgerEntry, error) {
	if amount == 0 {
		return nil, common.ErrInvalidAmount
	}
	if category == "" {
		return nil, fmt.Errorf("%w: не указана категория", common.ErrInvalidAmount)
	}
	if amount < 0 && p.Balance < -amount {
		return nil, fmt.Errorf("%w: нужно %d, есть %d", common.ErrInsufficientFunds, -amount, p.Balance)
	}
	if amount > 0 && (p.Balance > math.MaxInt64-amount || p.LifetimeEarned > math.MaxInt64-amount) {
		return nil, fmt.Errorf("%w: переполнение баланса", common.ErrInvalidAmount)
	}

	newBalance := p.Balance + amount
	lifetime := p.LifetimeEarned
	if amount > 0 {
		lifetime += amount
	}

	if err := tx.SetBalance(ctx, p.ID, newBalance, lifetime); err != nil {
		return nil, fmt.Errorf("ошибка обновления баланса: %w", err)
	}

	entry := &storage.LedgerEntry{
		PlayerID:     p.ID,
		Amount:       amount,
		Category:     category,
		Description:  description,
		BalanceAfter: newBalance,
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("ошибка записи в леджер: %w", err)
	}

	p.Balance = newBalance
	p.LifetimeEarned = lifetime
	return entry, nil
}

// ApplyDelta — то же, что ApplyDeltaTx, в собственной транзакции.
func (s *Service) ApplyDelta(ctx context.Context, playerID string, amount int64, category, description string) (*storage.LedgerEntry, error) {
	if amount == 0 {
		return nil, common.ErrInvalidAmount
	}

	var entry *storage.LedgerEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		p, err := s.LockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		entry, err = s.ApplyDeltaTx(ctx, tx, p, amount, category, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player_id":     entry.PlayerID,
		"amount":        amount,
		"category":      category,
		"balance_after": entry.BalanceAfter,
	}).Info("Баланс изменён")
	return entry, nil
}

// Ensure возвращает игрока, создавая его при первом обращении.
func (s *Service) Ensure(ctx context.Context, playerID string) (*storage.Player, error) {
	var p *storage.Player
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = s.LockPlayer(ctx, tx, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Player читает игрока без побочных эффектов.
func (s *Service) Player(ctx context.Context, playerID string) (*storage.Player, error) {
	p, err := s.store.GetPlayer(ctx, playerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игрока: %w", err)
	}
	return p, nil
}

// Balance возвращает текущий баланс. Новый игрок создаётся при первом обращении.
func (s *Service) Balance(ctx context.Context, playerID string) (*BalanceView, error) {
	p, err := s.Ensure(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &BalanceView{
		PlayerID:       p.ID,
		Balance:        p.Balance,
		LifetimeEarned: p.LifetimeEarned,
		Display:        common.FormatBalance(p.Balance),
	}, nil
}

// History возвращает страницу истории операций. Limit ограничен ECONOMY_HISTORY_PAGE_MAX.
func (s *Service) History(ctx context.Context, playerID string, page storage.Page) (*History, error) {
	playerID, err := common.NormalizePlayerID(playerID)
	if err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = defaultHistoryLimit
	}
	if page.Limit > s.cfg.EconomyHistoryPageMax {
		page.Limit = s.cfg.EconomyHistoryPageMax
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	entries, err := s.store.ListEntries(ctx, playerID, page)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	if entries == nil {
		entries = []storage.LedgerEntry{}
	}
	return &History{Entries: entries, Limit: page.Limit, Offset: page.Offset}, nil
}

// Verify проверяет цепочку леджера игрока: balance_after каждой записи равен
// balance_after предыдущей плюс amount, а последняя запись совпадает с балансом.
func (s *Service) Verify(ctx context.Context, playerID string) (*Audit, error) {
	playerID, err := common.NormalizePlayerID(playerID)
	if err != nil {
		return nil, err
	}
	// Игрок должен существовать: проверка не должна создавать игроков.
	if _, err := s.Player(ctx, playerID); err != nil {
		return nil, err
	}

	audit := &Audit{PlayerID: playerID}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		p, _, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		entries, err := tx.ChainEntries(ctx, playerID)
		if err != nil {
			return err
		}
		audit.Balance = p.Balance
		audit.Entries = len(entries)
		return VerifyChain(entries, p.Balance)
	})
	switch {
	case errors.Is(err, common.ErrLedgerCorrupt):
		audit.Problem = err.Error()
		log.WithFields(log.Fields{"player_id": playerID, "problem": audit.Problem}).Error("Леджер повреждён")
		return audit, err
	case err != nil:
		return nil, err
	}
	audit.OK = true
	return audit, nil
}

// VerifyChain проверяет цепочку записей (от старых к новым) против текущего баланса.
func VerifyChain(entries []storage.LedgerEntry, balance int64) error {
	var prev int64
	for _, e := range entries {
		if e.BalanceAfter != prev+e.Amount {
			return fmt.Errorf("%w: запись %d: %d + %d != %d",
				common.ErrLedgerCorrupt, e.ID, prev, e.Amount, e.BalanceAfter)
		}
		prev = e.BalanceAfter
	}
	if prev != balance {
		return fmt.Errorf("%w: последняя запись %d, баланс %d", common.ErrLedgerCorrupt, prev, balance)
	}
	return nil
}
