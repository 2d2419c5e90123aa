// Package cases — service.go: открытие кейса от розыгрыша до уведомления.
//
// Розыгрыш делается до транзакции и не зависит от клиента. Транзакция
// списывает стоимость, кладёт предмет в инвентарь и увеличивает счётчик кейсов:
// либо всё, либо ничего. Уведомление уходит только после коммита.
package cases

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/notify"
	"serotonyl.ru/souls/internal/storage"
)

// Service открывает кейсы.
type Service struct {
	store     storage.Store
	economy   *economy.Service
	catalog   catalog.Catalog
	cfg       *config.Config
	publisher notify.Publisher
	highValue HighValue

	// rng защищён мьютексом: детерминированный генератор в тестах не потокобезопасен.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewService создаёт сервис кейсов. publisher может быть nil.
func NewService(
	store storage.Store,
	economyService *economy.Service,
	cat catalog.Catalog,
	cfg *config.Config,
	publisher notify.Publisher,
	highValue HighValue,
	rng *rand.Rand,
) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Service{
		store:     store,
		economy:   economyService,
		catalog:   cat,
		cfg:       cfg,
		publisher: publisher,
		highValue: highValue,
		rng:       rng,
	}
}

// Pools возвращает витрину всех кейсов.
func (s *Service) Pools() []PoolView {
	pools := s.catalog.Pools()
	out := make([]PoolView, 0, len(pools))
	for _, p := range pools {
		out = append(out, newPoolView(p))
	}
	return out
}

// Pool возвращает витрину одного кейса.
func (s *Service) Pool(poolID string) (*PoolView, error) {
	p, ok := s.catalog.Pool(poolID)
	if !ok {
		return nil, common.ErrPoolNotFound
	}
	view := newPoolView(p)
	return &view, nil
}

// Open открывает кейс poolID для игрока.
//
// Возвращает:
//   - ErrFeatureDisabled, если кейсы выключены
//   - ErrPoolNotFound, если кейса нет в каталоге
//   - ErrInsufficientFunds, если не хватает душ (ничего не меняется)
func (s *Service) Open(ctx context.Context, playerID, poolID string) (*OpenResult, error) {
	if !s.cfg.FeatureCasesEnabled {
		return nil, common.ErrFeatureDisabled
	}
	pool, ok := s.catalog.Pool(poolID)
	if !ok {
		return nil, common.ErrPoolNotFound
	}

	drawn := s.draw(pool)

	var res *OpenResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		p, err := s.economy.LockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}

		cost := DiscountedCost(pool.Cost, p.Tier, s.cfg.Discounts())
		desc := fmt.Sprintf("Открытие кейса «%s»", pool.Name)
		if _, err := s.economy.ApplyDeltaTx(ctx, tx, p, -cost, economy.CategoryRewardDraw, desc); err != nil {
			return err
		}

		item := drawn.Item(p.ID, pool.ID)
		if err := tx.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("ошибка выдачи предмета: %w", err)
		}
		if err := tx.AddCounters(ctx, p.ID, storage.Counters{CasesOpened: 1}); err != nil {
			return fmt.Errorf("ошибка обновления счётчиков: %w", err)
		}

		res = &OpenResult{Item: item, Balance: p.Balance, Cost: cost}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player_id": res.Item.PlayerID,
		"pool_id":   pool.ID,
		"item":      res.Item.CatalogItemID,
		"float":     res.Item.Float,
		"rarity":    res.Item.Rarity.String(),
		"cost":      res.Cost,
	}).Info("Кейс открыт")

	if s.highValue.Match(res.Item) {
		s.publisher.Publish(notify.KindHighValueDrop, dropMessage(pool, res.Item))
	}
	return res, nil
}

func (s *Service) draw(pool *catalog.Pool) Drawn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Draw(s.rng, pool)
}

func dropMessage(pool *catalog.Pool, it *storage.OwnedItem) string {
	return fmt.Sprintf("🔥 Игрок %s открыл «%s» и выбил %s (%s, %.4f), стоимость %s",
		it.PlayerID, pool.Name, it.Name, it.Wear.String(), it.Float,
		common.FormatBalance(it.Value))
}
