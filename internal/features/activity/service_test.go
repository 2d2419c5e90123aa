package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/features/players"
	"serotonyl.ru/souls/internal/storage"
	"serotonyl.ru/souls/internal/storage/storagetest"
)

func newService(t *testing.T) (*Service, *players.Service, storage.Store) {
	t.Helper()
	store := storagetest.New(t)
	cfg := &config.Config{
		EconomyHistoryPageMax: 50,
		AccrualPerKill:        3,
		AccrualPerMinute:      2,
	}
	econ := economy.NewService(store, cfg)
	ps := players.NewService(store, econ, cfg)
	return NewService(store, econ, ps, cfg), ps, store
}

func TestReportCreditsKillsAndPlaytimeSeparately(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, store := newService(t)

	rep, err := svc.Report(ctx, "steam:1", 10, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), rep.KillSouls)
	assert.Equal(t, int64(60), rep.PlaytimeSouls)
	assert.Equal(t, int64(90), rep.Earned)
	assert.Equal(t, int64(90), rep.Balance)
	assert.Equal(t, int64(1), rep.Multiplier)

	chain, err := store.ChainEntries(ctx, "steam:1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, economy.CategoryKillAward, chain[0].Category)
	assert.Equal(t, int64(30), chain[0].Amount)
	assert.Equal(t, economy.CategoryPlaytimeAward, chain[1].Category)
	assert.Equal(t, int64(90), chain[1].BalanceAfter)

	p, err := store.GetPlayer(ctx, "steam:1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Kills)
	assert.Equal(t, int64(30), p.PlaytimeMinutes)
	assert.Equal(t, int64(90), p.LifetimeEarned)
}

func TestReportAppliesTierMultiplier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, ps, _ := newService(t)

	tests := []struct {
		tier storage.Tier
		want int64
	}{
		{storage.TierNone, 5},
		{storage.TierBronze, 10},
		{storage.TierSilver, 15},
		{storage.TierGold, 25},
	}
	for _, tt := range tests {
		id := "p-" + tt.tier.String()
		_, err := ps.SetTier(ctx, id, tt.tier)
		require.NoError(t, err)

		rep, err := svc.Report(ctx, id, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rep.Earned, tt.tier.String())
		assert.Equal(t, players.Multiplier(tt.tier), rep.Multiplier)
	}
}

func TestReportSkipsZeroComponents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, store := newService(t)

	rep, err := svc.Report(ctx, "p", 0, 7)
	require.NoError(t, err)
	assert.Zero(t, rep.KillSouls)

	chain, err := store.ChainEntries(ctx, "p")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, economy.CategoryPlaytimeAward, chain[0].Category)

	rep, err = svc.Report(ctx, "idle", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, rep.Earned)
	chain, err = store.ChainEntries(ctx, "idle")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestReportRejectsNegativeInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, store := newService(t)

	_, err := svc.Report(ctx, "p", -1, 5)
	require.ErrorIs(t, err, common.ErrInvalidAmount)
	_, err = svc.Report(ctx, "p", 1, -5)
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = store.GetPlayer(ctx, "p")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportRejectsOverflow(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)

	_, err := svc.Report(context.Background(), "p", 1<<62, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestConcurrentReportsKeepLedgerConsistent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, store := newService(t)

	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := svc.Report(ctx, "busy", 1, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	p, err := store.GetPlayer(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, int64(25*5), p.Balance)
	assert.Equal(t, int64(25), p.Kills)

	chain, err := store.ChainEntries(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, chain, 50)
	require.NoError(t, economy.VerifyChain(chain, p.Balance))
}

func TestReportRating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, store := newService(t)

	p, err := svc.ReportRating(ctx, "p", 2100)
	require.NoError(t, err)
	assert.Equal(t, int64(2100), p.Rating)

	stored, err := store.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(2100), stored.Rating)
}
