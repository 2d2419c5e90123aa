package economy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/storage"
	"serotonyl.ru/souls/internal/storage/storagetest"
)

func newService(t *testing.T, startingBalance int64) (*Service, storage.Store) {
	t.Helper()
	store := storagetest.New(t)
	cfg := &config.Config{EconomyStartingBalance: startingBalance, EconomyHistoryPageMax: 50}
	return NewService(store, cfg), store
}

func requireConsistent(t *testing.T, store storage.Store, playerID string) {
	t.Helper()
	ctx := context.Background()
	p, err := store.GetPlayer(ctx, playerID)
	require.NoError(t, err)
	chain, err := store.ChainEntries(ctx, playerID)
	require.NoError(t, err)
	require.NoError(t, VerifyChain(chain, p.Balance))
}

func TestApplyDeltaCreditAndDebit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t, 0)

	e, err := svc.ApplyDelta(ctx, "steam:1", 300, CategoryAdminGrant, "подарок")
	require.NoError(t, err)
	assert.Equal(t, int64(300), e.BalanceAfter)

	e, err = svc.ApplyDelta(ctx, "steam:1", -120, CategoryRewardDraw, "кейс")
	require.NoError(t, err)
	assert.Equal(t, int64(180), e.BalanceAfter)

	p, err := store.GetPlayer(ctx, "steam:1")
	require.NoError(t, err)
	assert.Equal(t, int64(180), p.Balance)
	assert.Equal(t, int64(300), p.LifetimeEarned, "списания не уменьшают lifetime")

	requireConsistent(t, store, "steam:1")
}

func TestApplyDeltaRejectsOverdraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t, 0)

	_, err := svc.ApplyDelta(ctx, "p", 50, CategoryAdminGrant, "")
	require.NoError(t, err)

	_, err = svc.ApplyDelta(ctx, "p", -51, CategoryAdminTake, "")
	require.ErrorIs(t, err, common.ErrInsufficientFunds)

	p, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Balance)

	chain, err := store.ChainEntries(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, chain, 1, "неудачное списание не оставляет записей")
}

func TestApplyDeltaNeverGoesNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t, 0)

	deltas := []int64{10, -5, -6, 3, -8, -1, 20, -19, -2, 7}
	var want int64
	for _, d := range deltas {
		_, err := svc.ApplyDelta(ctx, "p", d, CategoryAdminGrant, "")
		if want+d < 0 {
			require.ErrorIs(t, err, common.ErrInsufficientFunds)
			continue
		}
		require.NoError(t, err)
		want += d
	}

	p, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, want, p.Balance)
	requireConsistent(t, store, "p")
}

func TestApplyDeltaZeroAmount(t *testing.T) {
	t.Parallel()
	svc, store := newService(t, 0)

	_, err := svc.ApplyDelta(context.Background(), "p", 0, CategoryAdminGrant, "")
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = store.GetPlayer(context.Background(), "p")
	assert.ErrorIs(t, err, storage.ErrNotFound, "невалидная сумма не создаёт игрока")
}

func TestApplyDeltaInvalidPlayerID(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, 0)

	_, err := svc.ApplyDelta(context.Background(), "   ", 10, CategoryAdminGrant, "")
	assert.ErrorIs(t, err, common.ErrInvalidPlayerID)
}

func TestConcurrentDeltasDoNotLoseUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t, 0)

	const start, n = 100, 40
	_, err := svc.ApplyDelta(ctx, "p", start, CategoryAdminGrant, "")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := svc.ApplyDelta(ctx, "p", 1, CategoryKillAward, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	p, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(start+n), p.Balance)

	chain, err := store.ChainEntries(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, chain, n+1)
	requireConsistent(t, store, "p")
}

func TestStartingBalanceIsLedgered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newService(t, 500)

	view, err := svc.Balance(ctx, "newbie")
	require.NoError(t, err)
	assert.Equal(t, int64(500), view.Balance)

	// повторное обращение не начисляет снова
	view, err = svc.Balance(ctx, "newbie")
	require.NoError(t, err)
	assert.Equal(t, int64(500), view.Balance)

	chain, err := store.ChainEntries(ctx, "newbie")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, CategoryWelcome, chain[0].Category)
	requireConsistent(t, store, "newbie")
}

func TestHistoryPaginationAndClamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t, 0)

	for i := 1; i <= 60; i++ {
		_, err := svc.ApplyDelta(ctx, "p", int64(i), CategoryAdminGrant, "")
		require.NoError(t, err)
	}

	h, err := svc.History(ctx, "p", storage.Page{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 50, h.Limit)
	assert.Len(t, h.Entries, 50)
	assert.Equal(t, int64(60), h.Entries[0].Amount, "новые первыми")

	h, err = svc.History(ctx, "p", storage.Page{})
	require.NoError(t, err)
	assert.Len(t, h.Entries, defaultHistoryLimit)

	h, err = svc.History(ctx, "nobody", storage.Page{})
	require.NoError(t, err)
	assert.Empty(t, h.Entries)
	assert.NotNil(t, h.Entries)
}

func TestHistoryNormalizesPlayerID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t, 0)

	_, err := svc.ApplyDelta(ctx, " p ", 10, CategoryAdminGrant, "")
	require.NoError(t, err)

	h, err := svc.History(ctx, "  p", storage.Page{})
	require.NoError(t, err)
	require.Len(t, h.Entries, 1)
	assert.Equal(t, "p", h.Entries[0].PlayerID)

	_, err = svc.History(ctx, "   ", storage.Page{})
	assert.ErrorIs(t, err, common.ErrInvalidPlayerID)
}

func TestVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t, 0)

	_, err := svc.Verify(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrPlayerNotFound)

	_, err = svc.ApplyDelta(ctx, "p", 10, CategoryAdminGrant, "")
	require.NoError(t, err)
	audit, err := svc.Verify(ctx, "p")
	require.NoError(t, err)
	assert.True(t, audit.OK)
	assert.Equal(t, 1, audit.Entries)
}

func TestVerifyChainDetectsCorruption(t *testing.T) {
	good := []storage.LedgerEntry{
		{ID: 1, Amount: 100, BalanceAfter: 100},
		{ID: 2, Amount: -30, BalanceAfter: 70},
	}
	assert.NoError(t, VerifyChain(good, 70))
	assert.ErrorIs(t, VerifyChain(good, 71), common.ErrLedgerCorrupt)

	broken := []storage.LedgerEntry{
		{ID: 1, Amount: 100, BalanceAfter: 100},
		{ID: 2, Amount: -30, BalanceAfter: 80},
	}
	assert.ErrorIs(t, VerifyChain(broken, 80), common.ErrLedgerCorrupt)
	assert.NoError(t, VerifyChain(nil, 0))
}
