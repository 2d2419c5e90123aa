// Package inventory управляет предметами игрока: экипировка по сторонам,
// избранное, удаление и прямая выдача админом. Предметы не меняют владельца.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/features/cases"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/storage"
)

// Service управляет инвентарём.
type Service struct {
	store   storage.Store
	economy *economy.Service
	catalog catalog.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(store storage.Store, economyService *economy.Service, cat catalog.Catalog, rng *rand.Rand) *Service {
	return &Service{store: store, economy: economyService, catalog: cat, rng: rng}
}

// searchLimit — сколько шаблонов отдаёт поиск по каталогу по умолчанию.
const searchLimit = 20

// Search ищет шаблоны каталога по названию. Никогда не возвращает nil.
func (s *Service) Search(query string, limit int) []*catalog.Template {
	if limit <= 0 || limit > 100 {
		limit = searchLimit
	}
	found := catalog.Search(s.catalog, query, limit)
	if found == nil {
		found = []*catalog.Template{}
	}
	return found
}

// List возвращает предметы игрока, новые первыми.
func (s *Service) List(ctx context.Context, playerID string) ([]storage.OwnedItem, error) {
	id, err := common.NormalizePlayerID(playerID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения инвентаря: %w", err)
	}
	if items == nil {
		items = []storage.OwnedItem{}
	}
	return items, nil
}

// Equip экипирует предмет на стороне side и снимает с этой стороны
// остальные предметы того же оружия. Другая сторона не меняется.
func (s *Service) Equip(ctx context.Context, playerID string, itemID int64, side storage.Side) (*storage.OwnedItem, error) {
	return s.update(ctx, playerID, itemID, func(ctx context.Context, tx storage.Tx, it *storage.OwnedItem) error {
		if err := tx.UnequipWeapon(ctx, it.PlayerID, it.Weapon, side, it.ID); err != nil {
			return err
		}
		it.SetEquipped(side, true)
		return nil
	})
}

// Unequip снимает предмет со стороны side.
func (s *Service) Unequip(ctx context.Context, playerID string, itemID int64, side storage.Side) (*storage.OwnedItem, error) {
	return s.update(ctx, playerID, itemID, func(_ context.Context, _ storage.Tx, it *storage.OwnedItem) error {
		it.SetEquipped(side, false)
		return nil
	})
}

// ToggleFavorite переключает отметку «избранное».
func (s *Service) ToggleFavorite(ctx context.Context, playerID string, itemID int64) (*storage.OwnedItem, error) {
	return s.update(ctx, playerID, itemID, func(_ context.Context, _ storage.Tx, it *storage.OwnedItem) error {
		it.Favorite = !it.Favorite
		return nil
	})
}

// update блокирует игрока и его предмет, применяет fn и сохраняет флаги.
// Блокировка игрока сериализует экипировку разных предметов одного оружия.
func (s *Service) update(ctx context.Context, playerID string, itemID int64,
	fn func(ctx context.Context, tx storage.Tx, it *storage.OwnedItem) error,
) (*storage.OwnedItem, error) {
	var item *storage.OwnedItem
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		it, err := s.lockItem(ctx, tx, playerID, itemID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, it); err != nil {
			return fmt.Errorf("ошибка изменения предмета: %w", err)
		}
		if err := tx.UpdateItemFlags(ctx, it); err != nil {
			return fmt.Errorf("ошибка сохранения предмета: %w", err)
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete удаляет предмет по явному действию игрока.
func (s *Service) Delete(ctx context.Context, playerID string, itemID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		it, err := s.lockItem(ctx, tx, playerID, itemID)
		if err != nil {
			return err
		}
		return tx.DeleteItem(ctx, it.PlayerID, it.ID)
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"player_id": playerID, "item_id": itemID}).Info("Предмет удалён игроком")
	return nil
}

func (s *Service) lockItem(ctx context.Context, tx storage.Tx, playerID string, itemID int64) (*storage.OwnedItem, error) {
	p, err := s.economy.LockPlayer(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}
	it, err := tx.LockItem(ctx, p.ID, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения предмета: %w", err)
	}
	return it, nil
}

// Grant выдаёт игроку предмет каталога без списания душ (админ).
// Float разыгрывается так же, как при открытии кейса.
func (s *Service) Grant(ctx context.Context, playerID, templateID string) (*storage.OwnedItem, error) {
	tpl, ok := s.catalog.Template(templateID)
	if !ok {
		return nil, common.ErrCatalogItemNotFound
	}

	s.mu.Lock()
	drawn := cases.DrawTemplate(s.rng, tpl)
	s.mu.Unlock()

	var item *storage.OwnedItem
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		p, err := s.economy.LockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		item = drawn.Item(p.ID, "")
		if err := tx.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("ошибка выдачи предмета: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player_id": item.PlayerID,
		"item":      item.CatalogItemID,
		"float":     item.Float,
	}).Info("Предмет выдан админом")
	return item, nil
}
