// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: закрытие розыгрышей по сроку
// и повтор невыплаченных призов.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
)

// Giveaways — то, что планировщик делает с розыгрышами.
type Giveaways interface {
	CloseDue(ctx context.Context) (int, error)
	RetryPayouts(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	giveaways Giveaways
	timeout   time.Duration
	// ctx отменяется в Stop, чтобы прогон не тянул остановку сервиса.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler создаёт планировщик в часовом поясе APP_TIMEZONE.
// Некорректное cron-выражение в конфиге — ошибка запуска.
func NewScheduler(g Giveaways, cfg *config.Config) (*Scheduler, error) {
	loc := common.LoadLocation(cfg.AppTimezone)
	logger := cron.PrintfLogger(log.StandardLogger())

	c := cron.New(
		cron.WithLocation(loc),
		// Долгий прогон не должен накладываться на следующий.
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, giveaways: g, timeout: timeout, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(cfg.CronGiveawayClose, s.closeDue); err != nil {
		cancel()
		return nil, fmt.Errorf("CRON_GIVEAWAY_CLOSE %q: %w", cfg.CronGiveawayClose, err)
	}
	if _, err := c.AddFunc(cfg.CronPayoutRetry, s.retryPayouts); err != nil {
		cancel()
		return nil, fmt.Errorf("CRON_PAYOUT_RETRY %q: %w", cfg.CronPayoutRetry, err)
	}
	return s, nil
}

func (s *Scheduler) closeDue() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	n, err := s.giveaways.CloseDue(ctx)
	if err != nil {
		log.WithError(err).WithField("closed", n).Error("[CRON] Ошибка закрытия розыгрышей")
		return
	}
	if n > 0 {
		log.WithField("closed", n).Info("[CRON] Закрыты розыгрыши по сроку")
	}
}

func (s *Scheduler) retryPayouts() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	n, err := s.giveaways.RetryPayouts(ctx)
	if err != nil {
		log.WithError(err).WithField("paid", n).Error("[CRON] Ошибка повторных выплат")
		return
	}
	if n > 0 {
		log.WithField("paid", n).Info("[CRON] Довыплачены призы розыгрышей")
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("Планировщик задач запущен")
}

// Stop останавливает планировщик и ждёт текущие прогоны, но не дольше ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.cancel()
		<-done.Done()
	}
	s.cancel()
	log.Info("Планировщик задач остановлен")
}
