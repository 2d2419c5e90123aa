// Package storagetest — contract.go: общий набор проверок storage.Store.
// Его прогоняют и SQLite, и PostgreSQL, чтобы реализации вели себя одинаково.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/storage"
)

// Opener открывает пустое хранилище, изолированное от других подтестов.
type Opener func(t *testing.T) storage.Store

// RunContract прогоняет проверки контракта storage.Store на хранилищах из open.
func RunContract(t *testing.T, open Opener) {
	tests := []struct {
		name string
		run  func(t *testing.T, store storage.Store)
	}{
		{"LockPlayerCreatesOnce", lockPlayerCreatesOnce},
		{"InTxRollsBackOnError", inTxRollsBackOnError},
		{"InTxRollsBackOnPanic", inTxRollsBackOnPanic},
		{"SchemaRejectsNegativeBalanceAndZeroAmount", schemaRejectsInvalidRows},
		{"EntriesOrdering", entriesOrdering},
		{"ItemsEquipAndDelete", itemsEquipAndDelete},
		{"GiveawayLifecycle", giveawayLifecycle},
		{"RankPlayers", rankPlayers},
		{"ConcurrentIncrementsSerialize", concurrentIncrementsSerialize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.run(t, open(t))
		})
	}
}

func lockPlayerCreatesOnce(t *testing.T, store storage.Store) {
	ctx := context.Background()

	var first, second bool
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, created, err := tx.LockPlayer(ctx, "steam:1")
		first = created
		return err
	}))
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, created, err := tx.LockPlayer(ctx, "steam:1")
		second = created
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	_, err := store.GetPlayer(ctx, "steam:2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func inTxRollsBackOnError(t *testing.T, store storage.Store) {
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, _, err := tx.LockPlayer(ctx, "p"); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, "p", 100, 100); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetPlayer(ctx, "p")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func inTxRollsBackOnPanic(t *testing.T, store storage.Store) {
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, _, _ = tx.LockPlayer(ctx, "p")
			panic("boom")
		})
	})

	_, err := store.GetPlayer(ctx, "p")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func schemaRejectsInvalidRows(t *testing.T, store storage.Store) {
	ctx := context.Background()

	err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, _, err := tx.LockPlayer(ctx, "p"); err != nil {
			return err
		}
		return tx.SetBalance(ctx, "p", -1, 0)
	})
	assert.Error(t, err)

	err = store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, _, err := tx.LockPlayer(ctx, "p"); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &storage.LedgerEntry{PlayerID: "p", Amount: 0, Category: "x"})
	})
	assert.Error(t, err)
}

func entriesOrdering(t *testing.T, store storage.Store) {
	ctx := context.Background()

	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, _, err := tx.LockPlayer(ctx, "p"); err != nil {
			return err
		}
		for i := int64(1); i <= 5; i++ {
			e := &storage.LedgerEntry{PlayerID: "p", Amount: i, Category: "c", BalanceAfter: i * (i + 1) / 2}
			if err := tx.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	chain, err := store.ChainEntries(ctx, "p")
	require.NoError(t, err)
	require.Len(t, chain, 5)
	assert.Equal(t, int64(1), chain[0].Amount)

	page, err := store.ListEntries(ctx, "p", storage.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].Amount)
	assert.Equal(t, int64(3), page[1].Amount)
}

func itemsEquipAndDelete(t *testing.T, store storage.Store) {
	ctx := context.Background()

	var a, b storage.OwnedItem
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, _, err := tx.LockPlayer(ctx, "p"); err != nil {
			return err
		}
		a = storage.OwnedItem{PlayerID: "p", CatalogItemID: "a", Name: "AK-47 | A", Weapon: "AK-47",
			Wear: catalog.FieldTested, Float: 0.2, Rarity: catalog.Covert, Value: 10, EquippedT: true}
		b = storage.OwnedItem{PlayerID: "p", CatalogItemID: "b", Name: "AK-47 | B", Weapon: "AK-47",
			Wear: catalog.FactoryNew, Float: 0.01, Rarity: catalog.MilSpec, Value: 5}
		if err := tx.InsertItem(ctx, &a); err != nil {
			return err
		}
		return tx.InsertItem(ctx, &b)
	}))
	require.NotZero(t, a.ID)

	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.UnequipWeapon(ctx, "p", "AK-47", storage.SideT, b.ID); err != nil {
			return err
		}
		it, err := tx.LockItem(ctx, "p", b.ID)
		if err != nil {
			return err
		}
		it.EquippedT = true
		return tx.UpdateItemFlags(ctx, it)
	}))

	items, err := store.ListItems(ctx, "p")
	require.NoError(t, err)
	require.Len(t, items, 2)
	byID := map[int64]storage.OwnedItem{}
	for _, it := range items {
		byID[it.ID] = it
	}
	assert.False(t, byID[a.ID].EquippedT)
	assert.True(t, byID[b.ID].EquippedT)
	assert.Equal(t, catalog.Covert, byID[a.ID].Rarity)
	assert.Equal(t, catalog.FieldTested, byID[a.ID].Wear)

	// чужой игрок не может удалить предмет
	err = store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteItem(ctx, "other", a.ID)
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func giveawayLifecycle(t *testing.T, store storage.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	g := &storage.Giveaway{
		Title: "Weekly", PrizeKind: storage.PrizeCurrency, PrizeAmount: 100,
		Mode: storage.ModeRandom, WinnersCount: 2, EndsAt: now.Add(-time.Minute), Status: storage.StatusActive,
	}
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertGiveaway(ctx, g); err != nil {
			return err
		}
		for _, id := range []string{"b", "a", "c"} {
			if _, _, err := tx.LockPlayer(ctx, id); err != nil {
				return err
			}
			if ok, err := tx.InsertEntrant(ctx, g.ID, id, now); err != nil || !ok {
				return errors.Join(err, errors.New("entrant not inserted"))
			}
		}
		ok, err := tx.InsertEntrant(ctx, g.ID, "a", now)
		if err != nil {
			return err
		}
		assert.False(t, ok)
		entrants, err := tx.ListEntrants(ctx, g.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "a", entrants[0].PlayerID)
		return nil
	}))

	due, err := store.DueGiveaways(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)

	n, err := store.CountEntrants(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertWinners(ctx, []storage.Winner{
			{GiveawayID: g.ID, PlayerID: "c", Rank: 1, CreatedAt: now},
			{GiveawayID: g.ID, PlayerID: "a", Rank: 2, CreatedAt: now},
		}); err != nil {
			return err
		}
		return tx.EndGiveaway(ctx, g.ID, now)
	}))

	err = store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.EndGiveaway(ctx, g.ID, now)
	})
	assert.ErrorIs(t, err, common.ErrAlreadyEnded)

	pending, err := store.PendingPayouts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c", pending[0].PlayerID)
	assert.Equal(t, int64(100), pending[0].Amount)

	var claimed, again bool
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		claimed, err = tx.ClaimPayout(ctx, g.ID, "c", now)
		if err != nil {
			return err
		}
		again, err = tx.ClaimPayout(ctx, g.ID, "c", now)
		return err
	}))
	assert.True(t, claimed)
	assert.False(t, again)

	winners, err := store.ListWinners(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.True(t, winners[0].Disbursed)
	require.NotNil(t, winners[0].DisbursedAt)
	assert.False(t, winners[1].Disbursed)

	ended, err := store.GetGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)

	active, err := store.ListGiveaways(ctx, storage.StatusActive)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := store.ListGiveaways(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func rankPlayers(t *testing.T, store storage.Store) {
	ctx := context.Background()

	ratings := map[string]int64{"e": 50, "a": 90, "d": 90, "b": 10, "c": 70}
	var ranked []storage.Player
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for id, r := range ratings {
			if _, _, err := tx.LockPlayer(ctx, id); err != nil {
				return err
			}
			if err := tx.SetRating(ctx, id, r); err != nil {
				return err
			}
		}
		var err error
		ranked, err = tx.RankPlayers(ctx, storage.RankQuery{
			Metric:      storage.MetricRating,
			Eligibility: storage.Eligibility{MinRating: 20},
			Limit:       3,
		})
		return err
	}))

	ids := make([]string, 0, len(ranked))
	for _, p := range ranked {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "d", "c"}, ids)
}

// concurrentIncrementsSerialize проверяет, что LockPlayer сериализует
// read-modify-write над одним игроком: ни одно начисление не теряется.
func concurrentIncrementsSerialize(t *testing.T, store storage.Store) {
	ctx := context.Background()
	const workers = 20

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			return store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				p, _, err := tx.LockPlayer(ctx, "p")
				if err != nil {
					return err
				}
				balance := p.Balance + 1
				if err := tx.SetBalance(ctx, p.ID, balance, p.LifetimeEarned+1); err != nil {
					return err
				}
				return tx.AppendEntry(ctx, &storage.LedgerEntry{
					PlayerID: p.ID, Amount: 1, Category: "c", BalanceAfter: balance,
				})
			})
		})
	}
	require.NoError(t, g.Wait())

	p, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), p.Balance)

	chain, err := store.ChainEntries(ctx, "p")
	require.NoError(t, err)
	require.Len(t, chain, workers)
	for i, e := range chain {
		assert.Equal(t, int64(i+1), e.BalanceAfter)
	}
}
