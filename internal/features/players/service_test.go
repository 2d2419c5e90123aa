package players

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/storage"
	"serotonyl.ru/souls/internal/storage/storagetest"
)

func newService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := storagetest.New(t)
	cfg := &config.Config{
		EconomyStartingBalance: 100,
		EconomyHistoryPageMax:  50,
		CaseDiscountBronze:     5,
		CaseDiscountSilver:     10,
		CaseDiscountGold:       15,
	}
	return NewService(store, economy.NewService(store, cfg), cfg), store
}

func TestProfileCreatesPlayerOnFirstContact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	prof, err := svc.Profile(ctx, "  steam:42 ")
	require.NoError(t, err)
	assert.Equal(t, "steam:42", prof.ID)
	assert.Equal(t, int64(100), prof.Balance)
	assert.Equal(t, int64(1), prof.Multiplier)
	assert.Zero(t, prof.CaseDiscount)

	// повторный профиль не начисляет стартовый баланс ещё раз
	_, err = svc.Profile(ctx, "steam:42")
	require.NoError(t, err)
	chain, err := store.ChainEntries(ctx, "steam:42")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, economy.CategoryWelcome, chain[0].Category)
}

func TestProfileRejectsEmptyID(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	_, err := svc.Profile(context.Background(), "   ")
	assert.ErrorIs(t, err, common.ErrInvalidPlayerID)
}

func TestSetTier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	prof, err := svc.SetTier(ctx, "p", storage.TierSilver)
	require.NoError(t, err)
	assert.Equal(t, storage.TierSilver, prof.Tier)
	assert.Equal(t, int64(3), prof.Multiplier)
	assert.Equal(t, 10, prof.CaseDiscount)

	p, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, storage.TierSilver, p.Tier)

	_, err = svc.SetTier(ctx, "p", storage.Tier(9))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSetRating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t)

	_, err := svc.SetRating(ctx, "p", 1850)
	require.NoError(t, err)
	p, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(1850), p.Rating)

	_, err = svc.SetRating(ctx, "p", -1)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestMultiplier(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(1), Multiplier(storage.TierNone))
	assert.Equal(t, int64(2), Multiplier(storage.TierBronze))
	assert.Equal(t, int64(3), Multiplier(storage.TierSilver))
	assert.Equal(t, int64(5), Multiplier(storage.TierGold))
	assert.Equal(t, int64(1), Multiplier(storage.Tier(-1)))
}
