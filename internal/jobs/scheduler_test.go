package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/souls/internal/config"
)

type fakeGiveaways struct {
	closed  atomic.Int32
	retried atomic.Int32
	fail    bool
}

func (f *fakeGiveaways) CloseDue(ctx context.Context) (int, error) {
	f.closed.Add(1)
	if f.fail {
		return 0, errors.New("storage down")
	}
	return 1, ctx.Err()
}

func (f *fakeGiveaways) RetryPayouts(ctx context.Context) (int, error) {
	f.retried.Add(1)
	return 0, ctx.Err()
}

func testConfig() *config.Config {
	return &config.Config{
		AppTimezone:       "UTC",
		CronGiveawayClose: "@every 1s",
		CronPayoutRetry:   "@every 1s",
		JobTimeout:        time.Second,
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	fake := &fakeGiveaways{}
	s, err := NewScheduler(fake, testConfig())
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return fake.closed.Load() > 0 && fake.retried.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSchedulerSurvivesJobErrors(t *testing.T) {
	fake := &fakeGiveaways{fail: true}
	s, err := NewScheduler(fake, testConfig())
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return fake.closed.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.CronPayoutRetry = "every five minutes"

	_, err := NewScheduler(&fakeGiveaways{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRON_PAYOUT_RETRY")
}

func TestSchedulerDirectRunUsesTimeout(t *testing.T) {
	fake := &fakeGiveaways{}
	s, err := NewScheduler(fake, testConfig())
	require.NoError(t, err)

	s.closeDue()
	s.retryPayouts()
	assert.EqualValues(t, 1, fake.closed.Load())
	assert.EqualValues(t, 1, fake.retried.Load())

	s.Stop(context.Background())
}
