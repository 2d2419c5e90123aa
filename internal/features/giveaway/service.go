// Package giveaway — service.go: жизненный цикл розыгрыша active → ended.
//
// Запись победителей и смена статуса — одна транзакция. Денежные призы
// выплачиваются после неё, каждому победителю отдельной транзакцией:
// сначала помечаем выплату (disbursed=false → true), потом начисляем.
// Так каждый победитель получает приз ровно один раз, даже при параллельных ретраях.
package giveaway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/config"
	"serotonyl.ru/souls/internal/features/economy"
	"serotonyl.ru/souls/internal/notify"
	"serotonyl.ru/souls/internal/random"
	"serotonyl.ru/souls/internal/storage"
)

// Service управляет розыгрышами.
type Service struct {
	store     storage.Store
	economy   *economy.Service
	cfg       *config.Config
	publisher notify.Publisher

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// NewService создаёт сервис розыгрышей. publisher может быть nil.
func NewService(store storage.Store, economyService *economy.Service, cfg *config.Config, publisher notify.Publisher, rng *rand.Rand) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Service{
		store:     store,
		economy:   economyService,
		cfg:       cfg,
		publisher: publisher,
		rng:       rng,
		now:       time.Now,
	}
}

// Create проверяет параметры и создаёт активный розыгрыш.
func (s *Service) Create(ctx context.Context, in CreateInput) (*storage.Giveaway, error) {
	if !s.cfg.FeatureGiveawaysEnabled {
		return nil, common.ErrFeatureDisabled
	}
	g, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertGiveaway(ctx, g)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания розыгрыша: %w", err)
	}

	log.WithFields(log.Fields{
		"giveaway_id": g.ID,
		"mode":        g.Mode,
		"winners":     g.WinnersCount,
		"ends_at":     g.EndsAt,
	}).Info("Розыгрыш создан")
	return g, nil
}

func (s *Service) validate(in CreateInput) (*storage.Giveaway, error) {
	invalid := func(msg string) error { return fmt.Errorf("%w: %s", common.ErrInvalidGiveaway, msg) }

	g := &storage.Giveaway{
		Title:        strings.TrimSpace(in.Title),
		Mode:         strings.ToLower(strings.TrimSpace(in.Mode)),
		Metric:       strings.ToLower(strings.TrimSpace(in.Metric)),
		WinnersCount: in.Winners,
		Eligibility: storage.Eligibility{
			MinBalance: in.MinBalance,
			MinRating:  in.MinRating,
			MinTier:    in.MinTier,
		},
		EndsAt: in.EndsAt,
		Status: storage.StatusActive,
	}

	if g.Title == "" {
		return nil, invalid("нет названия")
	}
	if g.WinnersCount < 1 || g.WinnersCount > maxWinners {
		return nil, invalid(fmt.Sprintf("число победителей должно быть от 1 до %d", maxWinners))
	}

	switch text := strings.TrimSpace(in.PrizeText); {
	case in.PrizeAmount > 0:
		g.PrizeKind, g.PrizeAmount = storage.PrizeCurrency, in.PrizeAmount
		g.PrizeText = text
	case in.PrizeAmount < 0:
		return nil, invalid("приз не может быть отрицательным")
	case text != "":
		g.PrizeKind, g.PrizeText = storage.PrizeText, text
	default:
		return nil, invalid("не указан приз")
	}

	switch g.Mode {
	case "", storage.ModeRandom:
		g.Mode, g.Metric = storage.ModeRandom, ""
	case storage.ModeLeaderboard:
		if g.Metric == "" {
			g.Metric = storage.MetricLifetimeEarned
		}
		if !storage.ValidMetric(g.Metric) {
			return nil, invalid(fmt.Sprintf("неизвестная метрика %q", g.Metric))
		}
	default:
		return nil, invalid(fmt.Sprintf("неизвестный режим %q", g.Mode))
	}

	if g.Eligibility.MinBalance < 0 || g.Eligibility.MinRating < 0 || !g.Eligibility.MinTier.Valid() {
		return nil, invalid("некорректные пороги участия")
	}
	if !g.EndsAt.After(s.now()) {
		return nil, invalid("время окончания должно быть в будущем")
	}
	return g, nil
}

// Join записывает игрока в розыгрыш (только режим random).
func (s *Service) Join(ctx context.Context, giveawayID int64, playerID string) error {
	if !s.cfg.FeatureGiveawaysEnabled {
		return common.ErrFeatureDisabled
	}

	var pid string
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		g, err := lockGiveaway(ctx, tx, giveawayID)
		if err != nil {
			return err
		}
		if g.Mode != storage.ModeRandom {
			return common.ErrNotJoinable
		}
		now := s.now()
		if g.Status != storage.StatusActive || !now.Before(g.EndsAt) {
			return common.ErrGiveawayClosed
		}

		p, err := s.economy.LockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if !g.Eligibility.Allows(p) {
			return common.ErrNotEligible
		}

		inserted, err := tx.InsertEntrant(ctx, g.ID, p.ID, now)
		if err != nil {
			return fmt.Errorf("ошибка записи участника: %w", err)
		}
		if !inserted {
			return common.ErrAlreadyJoined
		}
		pid = p.ID
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"giveaway_id": giveawayID, "player_id": pid}).Info("Игрок записался в розыгрыш")
	return nil
}

// Resolve подводит итоги розыгрыша.
//
// Возвращает:
//   - ErrGiveawayNotFound, если розыгрыша нет
//   - ErrAlreadyEnded, если итоги уже подведены (новых победителей не появляется)
//   - ErrNoEntries, если в режиме random нет участников (розыгрыш остаётся активным)
func (s *Service) Resolve(ctx context.Context, giveawayID int64) (*Result, error) {
	return s.resolve(ctx, giveawayID, false)
}

// Close — вход для планировщика: подводит итоги, а розыгрыш без участников
// завершает без победителей. Уже завершённый розыгрыш считается обработанным.
func (s *Service) Close(ctx context.Context, giveawayID int64) (*Result, error) {
	res, err := s.resolve(ctx, giveawayID, true)
	if errors.Is(err, common.ErrAlreadyEnded) {
		log.WithField("giveaway_id", giveawayID).Debug("Розыгрыш уже завершён")
		return nil, nil
	}
	return res, err
}

func (s *Service) resolve(ctx context.Context, giveawayID int64, allowEmpty bool) (*Result, error) {
	var res *Result
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		g, err := lockGiveaway(ctx, tx, giveawayID)
		if err != nil {
			return err
		}
		if g.Status == storage.StatusEnded {
			return common.ErrAlreadyEnded
		}

		now := s.now()
		winners, err := s.pickWinners(ctx, tx, g, now)
		if err != nil {
			return err
		}
		if len(winners) == 0 && g.Mode == storage.ModeRandom && !allowEmpty {
			return common.ErrNoEntries
		}

		if err := tx.InsertWinners(ctx, winners); err != nil {
			return fmt.Errorf("ошибка записи победителей: %w", err)
		}
		if err := tx.EndGiveaway(ctx, g.ID, now); err != nil {
			return err
		}
		g.Status = storage.StatusEnded
		g.EndedAt = &now

		res = &Result{Giveaway: g, Winners: winners}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"giveaway_id": res.Giveaway.ID,
		"mode":        res.Giveaway.Mode,
		"winners":     len(res.Winners),
	}).Info("Итоги розыгрыша подведены")

	if res.Giveaway.PrizeKind == storage.PrizeCurrency {
		for i := range res.Winners {
			w := &res.Winners[i]
			paid, err := s.pay(ctx, storage.Payout{
				GiveawayID: res.Giveaway.ID,
				PlayerID:   w.PlayerID,
				Amount:     res.Giveaway.PrizeAmount,
				Title:      res.Giveaway.Title,
			})
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"giveaway_id": res.Giveaway.ID,
					"player_id":   w.PlayerID,
				}).Error("Не удалось выплатить приз, повторим позже")
				continue
			}
			w.Disbursed = paid
		}
	}

	if len(res.Winners) > 0 {
		s.publisher.Publish(notify.KindGiveawayResolve, resultMessage(res, common.LoadLocation(s.cfg.AppTimezone)))
	}
	return res, nil
}

// pickWinners выбирает победителей внутри транзакции подведения итогов.
func (s *Service) pickWinners(ctx context.Context, tx storage.Tx, g *storage.Giveaway, now time.Time) ([]storage.Winner, error) {
	var ids []string

	switch g.Mode {
	case storage.ModeRandom:
		entrants, err := tx.ListEntrants(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("ошибка получения участников: %w", err)
		}
		for _, i := range s.sample(len(entrants), g.WinnersCount) {
			ids = append(ids, entrants[i].PlayerID)
		}
	case storage.ModeLeaderboard:
		ranked, err := tx.RankPlayers(ctx, storage.RankQuery{
			Metric:      g.Metric,
			Eligibility: g.Eligibility,
			Limit:       g.WinnersCount,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка построения лидерборда: %w", err)
		}
		for _, p := range ranked {
			ids = append(ids, p.ID)
		}
	default:
		return nil, fmt.Errorf("%w: неизвестный режим %q", common.ErrInvalidGiveaway, g.Mode)
	}

	winners := make([]storage.Winner, 0, len(ids))
	for i, id := range ids {
		winners = append(winners, storage.Winner{
			GiveawayID: g.ID,
			PlayerID:   id,
			Rank:       i + 1,
			CreatedAt:  now,
		})
	}
	return winners, nil
}

func (s *Service) sample(n, k int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return random.Sample(s.rng, n, k)
}

// pay выплачивает один приз. false — приз уже был выплачен ранее.
func (s *Service) pay(ctx context.Context, po storage.Payout) (bool, error) {
	var paid bool
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		claimed, err := tx.ClaimPayout(ctx, po.GiveawayID, po.PlayerID, s.now())
		if err != nil {
			return fmt.Errorf("ошибка отметки выплаты: %w", err)
		}
		if !claimed {
			return nil
		}
		p, err := s.economy.LockPlayer(ctx, tx, po.PlayerID)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("Приз розыгрыша «%s»", po.Title)
		if _, err := s.economy.ApplyDeltaTx(ctx, tx, p, po.Amount, economy.CategoryGiveawayPrize, desc); err != nil {
			return err
		}
		paid = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if paid {
		log.WithFields(log.Fields{
			"giveaway_id": po.GiveawayID,
			"player_id":   po.PlayerID,
			"amount":      po.Amount,
		}).Info("Приз розыгрыша выплачен")
	}
	return paid, nil
}

// RetryPayouts выплачивает призы, которые не удалось выплатить при подведении итогов.
// Возвращает число выплаченных призов; ошибки по отдельным призам объединяются.
func (s *Service) RetryPayouts(ctx context.Context) (int, error) {
	pending, err := s.store.PendingPayouts(ctx, payoutBatch)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения невыплаченных призов: %w", err)
	}

	var (
		mu    sync.Mutex
		count int
		errs  []error
		g     errgroup.Group
	)
	// Выплаты разным игрокам независимы; ошибка одной не останавливает остальные.
	g.SetLimit(payoutWorkers)
	for _, po := range pending {
		g.Go(func() error {
			paid, err := s.pay(ctx, po)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("розыгрыш %d, игрок %s: %w", po.GiveawayID, po.PlayerID, err))
			} else if paid {
				count++
			}
			return nil
		})
	}
	_ = g.Wait()
	if count > 0 {
		log.WithField("paid", count).Info("Выплачены отложенные призы")
	}
	return count, errors.Join(errs...)
}

// CloseDue закрывает все активные розыгрыши, время которых вышло.
func (s *Service) CloseDue(ctx context.Context) (int, error) {
	due, err := s.store.DueGiveaways(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("ошибка получения розыгрышей: %w", err)
	}

	var (
		closed int
		errs   []error
	)
	for _, g := range due {
		res, err := s.Close(ctx, g.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("розыгрыш %d: %w", g.ID, err))
			continue
		}
		if res != nil {
			closed++
		}
	}
	return closed, errors.Join(errs...)
}

// Status возвращает розыгрыш, число участников и победителей.
func (s *Service) Status(ctx context.Context, giveawayID int64) (*Status, error) {
	g, err := s.store.GetGiveaway(ctx, giveawayID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения розыгрыша: %w", err)
	}
	n, err := s.store.CountEntrants(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	winners, err := s.store.ListWinners(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения победителей: %w", err)
	}
	if winners == nil {
		winners = []storage.Winner{}
	}
	return &Status{Giveaway: g, Entrants: n, Winners: winners}, nil
}

// List возвращает розыгрыши со статусом status (пустой — все).
func (s *Service) List(ctx context.Context, status string) ([]storage.Giveaway, error) {
	switch status {
	case "", storage.StatusActive, storage.StatusEnded:
	default:
		return nil, fmt.Errorf("%w: неизвестный статус %q", common.ErrInvalidInput, status)
	}
	list, err := s.store.ListGiveaways(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения розыгрышей: %w", err)
	}
	if list == nil {
		list = []storage.Giveaway{}
	}
	return list, nil
}

func lockGiveaway(ctx context.Context, tx storage.Tx, id int64) (*storage.Giveaway, error) {
	g, err := tx.LockGiveaway(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения розыгрыша: %w", err)
	}
	return g, nil
}

func resultMessage(res *Result, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Розыгрыш «%s» завершён!\n", res.Giveaway.Title)
	if res.Giveaway.EndedAt != nil {
		fmt.Fprintf(&b, "Итоги подведены %s\n", common.FormatDateTime(*res.Giveaway.EndedAt, loc))
	}
	if res.Giveaway.PrizeKind == storage.PrizeCurrency {
		fmt.Fprintf(&b, "Приз: %s каждому\n", common.FormatBalance(res.Giveaway.PrizeAmount))
	} else {
		fmt.Fprintf(&b, "Приз: %s\n", res.Giveaway.PrizeText)
	}
	b.WriteString("Победители:")
	for _, w := range res.Winners {
		fmt.Fprintf(&b, "\n%d. %s", w.Rank, w.PlayerID)
	}
	return b.String()
}
