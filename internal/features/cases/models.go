// Package cases реализует открытие кейсов: розыгрыш предмета, списание стоимости
// и выдачу предмета в инвентарь одной транзакцией.
// models.go описывает результаты и представления каталога.
package cases

import (
	"fmt"
	"strings"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/storage"
)

// OpenResult — итог открытия кейса.
type OpenResult struct {
	Item    *storage.OwnedItem `json:"item"`
	Balance int64              `json:"balance"`
	Cost    int64              `json:"cost"`
}

// ItemView — шаблон предмета в витрине кейса вместе с шансом выпадения.
type ItemView struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Weapon   string         `json:"weapon"`
	Rarity   catalog.Rarity `json:"rarity"`
	FloatMin float64        `json:"float_min"`
	FloatMax float64        `json:"float_max"`
	Price    int64          `json:"price"`
	Chance   float64        `json:"chance"` // в процентах
}

// PoolView — кейс в витрине.
// ExpectedValue — средняя цена выпадающего предмета, RTP — она же в процентах от стоимости.
type PoolView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Cost          int64      `json:"cost"`
	ExpectedValue float64    `json:"expected_value"`
	RTP           float64    `json:"rtp"`
	Items         []ItemView `json:"items"`
}

// newPoolView сворачивает повторы шаблонов в один элемент с шансом.
func newPoolView(p *catalog.Pool) PoolView {
	view := PoolView{ID: p.ID, Name: p.Name, Cost: p.Cost}
	index := make(map[string]int, len(p.Templates))
	counts := make([]int, 0, len(p.Templates))

	for _, t := range p.Templates {
		if i, ok := index[t.ID]; ok {
			counts[i]++
			continue
		}
		index[t.ID] = len(view.Items)
		counts = append(counts, 1)
		view.Items = append(view.Items, ItemView{
			ID:       t.ID,
			Name:     t.Name,
			Weapon:   t.Weapon,
			Rarity:   t.Rarity,
			FloatMin: t.FloatMin,
			FloatMax: t.FloatMax,
			Price:    t.Price,
		})
	}

	total := float64(len(p.Templates))
	for i := range view.Items {
		view.Items[i].Chance = float64(counts[i]) * 100 / total
		view.ExpectedValue += float64(counts[i]) * float64(view.Items[i].Price) / total
	}
	if p.Cost > 0 {
		view.RTP = view.ExpectedValue * 100 / float64(p.Cost)
	}
	return view
}

// HighValue решает, достоин ли выпавший предмет уведомления в канал.
type HighValue struct {
	MinRarity catalog.Rarity
	names     map[string]struct{}
}

// NewHighValue разбирает минимальную редкость и список имён (сравнение без учёта регистра).
func NewHighValue(minRarity string, names []string) (HighValue, error) {
	r, err := catalog.ParseRarity(minRarity)
	if err != nil {
		return HighValue{}, fmt.Errorf("NOTIFY_MIN_RARITY: %w", err)
	}
	h := HighValue{MinRarity: r, names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		h.names[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return h, nil
}

// Match сообщает, нужно ли уведомлять о предмете.
func (h HighValue) Match(it *storage.OwnedItem) bool {
	if it.Rarity >= h.MinRarity {
		return true
	}
	if _, ok := h.names[strings.ToLower(it.Name)]; ok {
		return true
	}
	_, ok := h.names[strings.ToLower(it.CatalogItemID)]
	return ok
}
