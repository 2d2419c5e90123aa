package sqlite

import (
	"context"
	"database/sql"
	"time"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/storage"
)

const playerColumns = `id, balance, lifetime_earned, tier, rating, cases_opened, kills, playtime_minutes, created_at, updated_at`

const entryColumns = `id, player_id, amount, category, description, balance_after, created_at`

const itemColumns = `id, player_id, pool_id, catalog_item_id, name, weapon, wear, float_value, rarity, value,
	equipped_t, equipped_ct, favorite, created_at`

const giveawayColumns = `id, title, prize_kind, prize_amount, prize_text, mode, metric, winners_count,
	min_balance, min_rating, min_tier, ends_at, status, created_at, ended_at`

func scanPlayer(row rowScanner) (storage.Player, error) {
	var p storage.Player
	var tier int
	var created, updated int64
	err := row.Scan(&p.ID, &p.Balance, &p.LifetimeEarned, &tier, &p.Rating,
		&p.CasesOpened, &p.Kills, &p.PlaytimeMinutes, &created, &updated)
	if err != nil {
		return p, translate(err)
	}
	p.Tier = storage.Tier(tier)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func scanEntry(row rowScanner) (storage.LedgerEntry, error) {
	var e storage.LedgerEntry
	var created int64
	err := row.Scan(&e.ID, &e.PlayerID, &e.Amount, &e.Category, &e.Description, &e.BalanceAfter, &created)
	if err != nil {
		return e, translate(err)
	}
	e.CreatedAt = fromMillis(created)
	return e, nil
}

func scanItem(row rowScanner) (storage.OwnedItem, error) {
	var it storage.OwnedItem
	var wear, rarity int
	var created int64
	err := row.Scan(&it.ID, &it.PlayerID, &it.PoolID, &it.CatalogItemID, &it.Name, &it.Weapon,
		&wear, &it.Float, &rarity, &it.Value, &it.EquippedT, &it.EquippedCT, &it.Favorite, &created)
	if err != nil {
		return it, translate(err)
	}
	it.Wear = catalog.Wear(wear)
	it.Rarity = catalog.Rarity(rarity)
	it.CreatedAt = fromMillis(created)
	return it, nil
}

func scanGiveaway(row rowScanner) (storage.Giveaway, error) {
	var g storage.Giveaway
	var minTier int
	var endsAt, created int64
	var ended sql.NullInt64
	err := row.Scan(&g.ID, &g.Title, &g.PrizeKind, &g.PrizeAmount, &g.PrizeText, &g.Mode, &g.Metric,
		&g.WinnersCount, &g.Eligibility.MinBalance, &g.Eligibility.MinRating, &minTier,
		&endsAt, &g.Status, &created, &ended)
	if err != nil {
		return g, translate(err)
	}
	g.Eligibility.MinTier = storage.Tier(minTier)
	g.EndsAt = fromMillis(endsAt)
	g.CreatedAt = fromMillis(created)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		g.EndedAt = &t
	}
	return g, nil
}

func scanWinner(row rowScanner) (storage.Winner, error) {
	var w storage.Winner
	var disbursedAt sql.NullInt64
	var created int64
	err := row.Scan(&w.GiveawayID, &w.PlayerID, &w.Rank, &w.Disbursed, &disbursedAt, &created)
	if err != nil {
		return w, translate(err)
	}
	if disbursedAt.Valid {
		t := fromMillis(disbursedAt.Int64)
		w.DisbursedAt = &t
	}
	w.CreatedAt = fromMillis(created)
	return w, nil
}

// queryAll выполняет запрос и сканирует все строки.
func queryAll[T any](ctx context.Context, q querier, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
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

func (s *Store) GetPlayer(ctx context.Context, id string) (*storage.Player, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListEntries(ctx context.Context, playerID string, page storage.Page) ([]storage.LedgerEntry, error) {
	return queryAll(ctx, s.db, scanEntry, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE player_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`, playerID, page.Limit, page.Offset)
}

func (s *Store) ChainEntries(ctx context.Context, playerID string) ([]storage.LedgerEntry, error) {
	return chainEntries(ctx, s.db, playerID)
}

func chainEntries(ctx context.Context, q querier, playerID string) ([]storage.LedgerEntry, error) {
	return queryAll(ctx, q, scanEntry,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE player_id = ? ORDER BY id`, playerID)
}

func (s *Store) ListItems(ctx context.Context, playerID string) ([]storage.OwnedItem, error) {
	return queryAll(ctx, s.db, scanItem,
		`SELECT `+itemColumns+` FROM owned_items WHERE player_id = ? ORDER BY id DESC`, playerID)
}

func (s *Store) GetGiveaway(ctx context.Context, id int64) (*storage.Giveaway, error) {
	g, err := scanGiveaway(s.db.QueryRowContext(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGiveaways(ctx context.Context, status string) ([]storage.Giveaway, error) {
	return queryAll(ctx, s.db, scanGiveaway, `
		SELECT `+giveawayColumns+` FROM giveaways
		WHERE ? = '' OR status = ?
		ORDER BY id DESC`, status, status)
}

func (s *Store) CountEntrants(ctx context.Context, giveawayID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM giveaway_entrants WHERE giveaway_id = ?`, giveawayID).Scan(&n)
	return n, translate(err)
}

func (s *Store) ListWinners(ctx context.Context, giveawayID int64) ([]storage.Winner, error) {
	return queryAll(ctx, s.db, scanWinner, `
		SELECT giveaway_id, player_id, rank, disbursed, disbursed_at, created_at
		FROM giveaway_winners
		WHERE giveaway_id = ?
		ORDER BY rank`, giveawayID)
}

func (s *Store) DueGiveaways(ctx context.Context, at time.Time) ([]storage.Giveaway, error) {
	return queryAll(ctx, s.db, scanGiveaway, `
		SELECT `+giveawayColumns+` FROM giveaways
		WHERE status = 'active' AND ends_at <= ?
		ORDER BY ends_at, id`, toMillis(at))
}

func (s *Store) PendingPayouts(ctx context.Context, limit int) ([]storage.Payout, error) {
	return queryAll(ctx, s.db, func(row rowScanner) (storage.Payout, error) {
		var p storage.Payout
		err := row.Scan(&p.GiveawayID, &p.PlayerID, &p.Amount, &p.Title)
		return p, translate(err)
	}, `
		SELECT w.giveaway_id, w.player_id, g.prize_amount, g.title
		FROM giveaway_winners w
		JOIN giveaways g ON g.id = w.giveaway_id
		WHERE w.disbursed = 0 AND g.status = 'ended' AND g.prize_kind = 'currency'
		ORDER BY w.giveaway_id, w.rank
		LIMIT ?`, limit)
}
