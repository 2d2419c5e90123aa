// Package postgres — store.go: чтение (storage.Reader) и сканирование строк.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/souls/internal/storage"
)

const playerColumns = `id, balance, lifetime_earned, tier, rating, cases_opened, kills, playtime_minutes, created_at, updated_at`

const entryColumns = `id, player_id, amount, category, description, balance_after, created_at`

const itemColumns = `id, player_id, pool_id, catalog_item_id, name, weapon, wear, float_value, rarity, value,
	equipped_t, equipped_ct, favorite, created_at`

const giveawayColumns = `id, title, prize_kind, prize_amount, prize_text, mode, metric, winners_count,
	min_balance, min_rating, min_tier, ends_at, status, created_at, ended_at`

func scanPlayer(row pgx.Row) (*storage.Player, error) {
	var p storage.Player
	var tier int16
	err := row.Scan(&p.ID, &p.Balance, &p.LifetimeEarned, &tier, &p.Rating,
		&p.CasesOpened, &p.Kills, &p.PlaytimeMinutes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	p.Tier = storage.Tier(tier)
	return &p, nil
}

func scanEntry(row pgx.Row) (storage.LedgerEntry, error) {
	var e storage.LedgerEntry
	err := row.Scan(&e.ID, &e.PlayerID, &e.Amount, &e.Category, &e.Description, &e.BalanceAfter, &e.CreatedAt)
	return e, translate(err)
}

func scanItem(row pgx.Row) (*storage.OwnedItem, error) {
	var it storage.OwnedItem
	var wear, rarity int16
	err := row.Scan(&it.ID, &it.PlayerID, &it.PoolID, &it.CatalogItemID, &it.Name, &it.Weapon,
		&wear, &it.Float, &rarity, &it.Value, &it.EquippedT, &it.EquippedCT, &it.Favorite, &it.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	it.Wear = catalogWear(wear)
	it.Rarity = catalogRarity(rarity)
	return &it, nil
}

func scanGiveaway(row pgx.Row) (*storage.Giveaway, error) {
	var g storage.Giveaway
	var minTier int16
	err := row.Scan(&g.ID, &g.Title, &g.PrizeKind, &g.PrizeAmount, &g.PrizeText, &g.Mode, &g.Metric,
		&g.WinnersCount, &g.Eligibility.MinBalance, &g.Eligibility.MinRating, &minTier,
		&g.EndsAt, &g.Status, &g.CreatedAt, &g.EndedAt)
	if err != nil {
		return nil, translate(err)
	}
	g.Eligibility.MinTier = storage.Tier(minTier)
	return &g, nil
}

// collect читает все строки через scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, translate(rows.Err())
}

func derefItem(row pgx.Row) (storage.OwnedItem, error) {
	it, err := scanItem(row)
	if err != nil {
		return storage.OwnedItem{}, err
	}
	return *it, nil
}

func derefGiveaway(row pgx.Row) (storage.Giveaway, error) {
	g, err := scanGiveaway(row)
	if err != nil {
		return storage.Giveaway{}, err
	}
	return *g, nil
}

func derefPlayer(row pgx.Row) (storage.Player, error) {
	p, err := scanPlayer(row)
	if err != nil {
		return storage.Player{}, err
	}
	return *p, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*storage.Player, error) {
	return scanPlayer(s.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
}

func (s *Store) ListEntries(ctx context.Context, playerID string, page storage.Page) ([]storage.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, playerID, page.Limit, page.Offset)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanEntry)
}

func (s *Store) ChainEntries(ctx context.Context, playerID string) ([]storage.LedgerEntry, error) {
	return chainEntries(ctx, s.pool, playerID)
}

func chainEntries(ctx context.Context, q querier, playerID string) ([]storage.LedgerEntry, error) {
	rows, err := q.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE player_id = $1 ORDER BY id`, playerID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanEntry)
}

func (s *Store) ListItems(ctx context.Context, playerID string) ([]storage.OwnedItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM owned_items WHERE player_id = $1 ORDER BY id DESC`, playerID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, derefItem)
}

func (s *Store) GetGiveaway(ctx context.Context, id int64) (*storage.Giveaway, error) {
	return scanGiveaway(s.pool.QueryRow(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1`, id))
}

func (s *Store) ListGiveaways(ctx context.Context, status string) ([]storage.Giveaway, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+giveawayColumns+` FROM giveaways
		WHERE $1::text = '' OR status = $1
		ORDER BY id DESC
	`, status)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, derefGiveaway)
}

func (s *Store) CountEntrants(ctx context.Context, giveawayID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM giveaway_entrants WHERE giveaway_id = $1`, giveawayID).Scan(&n)
	return n, translate(err)
}

func (s *Store) ListWinners(ctx context.Context, giveawayID int64) ([]storage.Winner, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT giveaway_id, player_id, rank, disbursed, disbursed_at, created_at
		FROM giveaway_winners
		WHERE giveaway_id = $1
		ORDER BY rank
	`, giveawayID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (storage.Winner, error) {
		var w storage.Winner
		err := row.Scan(&w.GiveawayID, &w.PlayerID, &w.Rank, &w.Disbursed, &w.DisbursedAt, &w.CreatedAt)
		return w, translate(err)
	})
}

func (s *Store) DueGiveaways(ctx context.Context, now time.Time) ([]storage.Giveaway, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+giveawayColumns+` FROM giveaways
		WHERE status = 'active' AND ends_at <= $1
		ORDER BY ends_at, id
	`, now)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, derefGiveaway)
}

func (s *Store) PendingPayouts(ctx context.Context, limit int) ([]storage.Payout, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.giveaway_id, w.player_id, g.prize_amount, g.title
		FROM giveaway_winners w
		JOIN giveaways g ON g.id = w.giveaway_id
		WHERE NOT w.disbursed AND g.status = 'ended' AND g.prize_kind = 'currency'
		ORDER BY w.giveaway_id, w.rank
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (storage.Payout, error) {
		var p storage.Payout
		err := row.Scan(&p.GiveawayID, &p.PlayerID, &p.Amount, &p.Title)
		return p, translate(err)
	})
}

func queryError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, translate(err))
}
