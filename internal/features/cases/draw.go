package cases

import (
	"math/rand/v2"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/storage"
)

// Drawn — результат розыгрыша до записи в хранилище.
type Drawn struct {
	Template *catalog.Template
	Float    float64
	Wear     catalog.Wear
}

// Draw выбирает шаблон равновероятно по списку кейса (вес задаётся повторами)
// и float равномерно в диапазоне шаблона. Редкость берётся из шаблона, не из float.
func Draw(r *rand.Rand, pool *catalog.Pool) Drawn {
	return DrawTemplate(r, &pool.Templates[r.IntN(len(pool.Templates))])
}

// DrawTemplate разыгрывает только float для уже выбранного шаблона.
func DrawTemplate(r *rand.Rand, t *catalog.Template) Drawn {
	f := t.FloatMin
	if t.FloatMax > t.FloatMin {
		f = t.FloatMin + r.Float64()*(t.FloatMax-t.FloatMin)
	}
	return Drawn{Template: t, Float: f, Wear: catalog.WearForFloat(f)}
}

// Item превращает результат розыгрыша в предмет инвентаря игрока.
func (d Drawn) Item(playerID, poolID string) *storage.OwnedItem {
	return &storage.OwnedItem{
		PlayerID:      playerID,
		PoolID:        poolID,
		CatalogItemID: d.Template.ID,
		Name:          d.Template.Name,
		Weapon:        d.Template.Weapon,
		Wear:          d.Wear,
		Float:         d.Float,
		Rarity:        d.Template.Rarity,
		Value:         d.Template.Value(d.Wear),
	}
}

// DiscountedCost — стоимость кейса с учётом скидки уровня.
// discounts — проценты для bronze, silver, gold. Округление в пользу игрока не делаем:
// cost - cost*pct/100 с целочисленным делением, при pct < 100 результат не меньше 1.
func DiscountedCost(cost int64, tier storage.Tier, discounts [3]int) int64 {
	if tier <= storage.TierNone || !tier.Valid() {
		return cost
	}
	pct := int64(discounts[tier-1])
	if pct <= 0 {
		return cost
	}
	return cost - cost*pct/100
}
