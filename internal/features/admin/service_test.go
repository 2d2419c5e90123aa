package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/storage/storagetest"
)

// testParams — дешёвые параметры, чтобы тесты не тратили 64 MB на хеш.
var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func newService(t *testing.T, key string) *Service {
	t.Helper()
	hash, err := HashKey(key, testParams)
	require.NoError(t, err)

	store := storagetest.New(t)
	cfg := &config.Config{
		EconomyHistoryPageMax: 50,
		AdminKeyHash:          hash,
		AdminMaxAttempts:      3,
		AdminLockout:          time.Hour,
	}
	svc, err := NewService(economy.NewService(store, cfg), cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestVerify(t *testing.T) {
	t.Parallel()
	svc := newService(t, "correct horse")

	assert.True(t, svc.Verify("correct horse"))
	assert.True(t, svc.Verify("correct horse"), "повторная проверка из кеша")
	assert.False(t, svc.Verify("correct horse "))
	assert.False(t, svc.Verify(""))
}

func TestAuthorizeLocksOutAfterFailures(t *testing.T) {
	t.Parallel()
	svc := newService(t, "secret")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, svc.Authorize("wrong", "10.0.0.1"), common.ErrUnauthorized)
	}
	assert.ErrorIs(t, svc.Authorize("secret", "10.0.0.1"), common.ErrRateLimited,
		"после трёх неудач даже верный ключ не принимается")
	assert.NoError(t, svc.Authorize("secret", "10.0.0.2"), "другой IP не заблокирован")
}

func TestNewServiceRejectsMalformedHash(t *testing.T) {
	t.Parallel()
	for _, hash := range []string{
		"",
		"plain-text",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	} {
		_, err := NewService(nil, &config.Config{AdminKeyHash: hash, AdminMaxAttempts: 1, AdminLockout: time.Minute})
		assert.Error(t, err, hash)
	}
}

func TestGrantAndTake(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t, "k")

	e, err := svc.Grant(ctx, "p", 300, "")
	require.NoError(t, err)
	assert.Equal(t, economy.CategoryAdminGrant, e.Category)
	assert.Equal(t, "Выдача администратором", e.Description)

	e, err = svc.Grant(ctx, "p", -100, "штраф")
	require.NoError(t, err)
	assert.Equal(t, economy.CategoryAdminTake, e.Category)
	assert.Equal(t, int64(200), e.BalanceAfter)

	_, err = svc.Grant(ctx, "p", -500, "")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	_, err = svc.Grant(ctx, "p", 0, "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	audit, err := svc.Audit(ctx, "p")
	require.NoError(t, err)
	assert.True(t, audit.OK)
	assert.Equal(t, 2, audit.Entries)
	assert.Equal(t, int64(200), audit.Balance)

	_, err = svc.Audit(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrPlayerNotFound)
}
