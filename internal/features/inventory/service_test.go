package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/random"
	"serotonyl.ru/souls/internal/storage"
	"serotonyl.ru/souls/internal/storage/storagetest"
)

func newService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := storagetest.New(t)
	cfg := &config.Config{EconomyHistoryPageMax: 50}
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewService(store, economy.NewService(store, cfg), cat, random.Seeded(3, 4)), store
}

func grant(t *testing.T, svc *Service, playerID, templateID string) *storage.OwnedItem {
	t.Helper()
	it, err := svc.Grant(context.Background(), playerID, templateID)
	require.NoError(t, err)
	return it
}

func TestGrantCreatesItemWithoutCharge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	it := grant(t, svc, "p", "awp-dragon-lore")
	assert.NotZero(t, it.ID)
	assert.Empty(t, it.PoolID)
	assert.Equal(t, "AWP", it.Weapon)

	tpl, ok := svc.catalog.Template("awp-dragon-lore")
	require.True(t, ok)
	assert.True(t, tpl.Contains(it.Float))
	assert.Equal(t, catalog.WearForFloat(it.Float), it.Wear)

	chain, err := store.ChainEntries(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, chain, "выдача предмета не трогает баланс")

	_, err = svc.Grant(ctx, "p", "no-such-skin")
	assert.ErrorIs(t, err, common.ErrCatalogItemNotFound)
}

func TestEquipIsExclusivePerWeaponAndSide(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	first := grant(t, svc, "p", "awp-asiimov")
	second := grant(t, svc, "p", "awp-dragon-lore")
	glock := grant(t, svc, "p", "glock-18-winterized")

	_, err := svc.Equip(ctx, "p", first.ID, storage.SideT)
	require.NoError(t, err)
	_, err = svc.Equip(ctx, "p", first.ID, storage.SideCT)
	require.NoError(t, err)
	_, err = svc.Equip(ctx, "p", glock.ID, storage.SideT)
	require.NoError(t, err)

	// второй AWP на T снимает первый только с T
	it, err := svc.Equip(ctx, "p", second.ID, storage.SideT)
	require.NoError(t, err)
	assert.True(t, it.EquippedT)
	assert.False(t, it.EquippedCT)

	items, err := store.ListItems(ctx, "p")
	require.NoError(t, err)
	byID := map[int64]storage.OwnedItem{}
	for _, i := range items {
		byID[i.ID] = i
	}
	assert.False(t, byID[first.ID].EquippedT)
	assert.True(t, byID[first.ID].EquippedCT)
	assert.True(t, byID[second.ID].EquippedT)
	assert.True(t, byID[glock.ID].EquippedT, "другое оружие не трогаем")
}

func TestUnequipAndFavorite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)
	it := grant(t, svc, "p", "m4a4-poly-mag")

	_, err := svc.Equip(ctx, "p", it.ID, storage.SideCT)
	require.NoError(t, err)
	got, err := svc.Unequip(ctx, "p", it.ID, storage.SideCT)
	require.NoError(t, err)
	assert.False(t, got.EquippedCT)

	got, err = svc.ToggleFavorite(ctx, "p", it.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite)
	got, err = svc.ToggleFavorite(ctx, "p", it.ID)
	require.NoError(t, err)
	assert.False(t, got.Favorite)
}

func TestItemsBelongToOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)
	it := grant(t, svc, "owner", "m4a4-poly-mag")

	_, err := svc.Equip(ctx, "thief", it.ID, storage.SideT)
	assert.ErrorIs(t, err, common.ErrItemNotFound)
	err = svc.Delete(ctx, "thief", it.ID)
	assert.ErrorIs(t, err, common.ErrItemNotFound)

	items, err := store.ListItems(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].EquippedT)
}

func TestDeleteAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)

	items, err := svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	a := grant(t, svc, "p", "glock-18-winterized")
	b := grant(t, svc, "p", "m4a4-poly-mag")

	require.NoError(t, svc.Delete(ctx, "p", a.ID))
	err = svc.Delete(ctx, "p", a.ID)
	assert.ErrorIs(t, err, common.ErrItemNotFound)

	items, err = svc.List(ctx, "p")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestSearchCatalog(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	found := svc.Search("poly mag", 0)
	require.NotEmpty(t, found)
	assert.Equal(t, "m4a4-poly-mag", found[0].ID)

	none := svc.Search("", 5)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
