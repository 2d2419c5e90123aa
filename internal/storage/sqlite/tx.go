package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/storage"
)

type sqlTx struct {
	tx *sql.Tx
}

func sideColumn(side storage.Side) (string, error) {
	switch side {
	case storage.SideT:
		return "equipped_t", nil
	case storage.SideCT:
		return "equipped_ct", nil
	}
	return "", fmt.Errorf("неизвестная сторона %q", side)
}

// expectOne переводит "0 строк затронуто" в storage.ErrNotFound.
func expectOne(res sql.Result, op string, err error) error {
	if err != nil {
		return queryError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return queryError(op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LockPlayer создаёт игрока при первом обращении. Отдельная блокировка строки не нужна:
// транзакция BEGIN IMMEDIATE уже держит блокировку записи на всю базу.
func (t *sqlTx) LockPlayer(ctx context.Context, id string) (*storage.Player, bool, error) {
	ts := toMillis(now())
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO players (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, id, ts, ts)
	if err != nil {
		return nil, false, queryError("создание игрока", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, queryError("создание игрока", err)
	}

	p, err := scanPlayer(t.tx.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if err != nil {
		return nil, false, err
	}
	return &p, n == 1, nil
}

func (t *sqlTx) SetBalance(ctx context.Context, id string, balance, lifetimeEarned int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE players SET balance = ?, lifetime_earned = ?, updated_at = ?
		WHERE id = ?`, balance, lifetimeEarned, toMillis(now()), id)
	return expectOne(res, "обновление баланса", err)
}

func (t *sqlTx) AppendEntry(ctx context.Context, e *storage.LedgerEntry) error {
	created := now()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (player_id, amount, category, description, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.PlayerID, e.Amount, e.Category, e.Description, e.BalanceAfter, toMillis(created))
	if err != nil {
		return queryError("запись в леджер", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return queryError("запись в леджер", err)
	}
	e.ID = id
	e.CreatedAt = created
	return nil
}

func (t *sqlTx) AddCounters(ctx context.Context, id string, c storage.Counters) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE players
		SET kills = kills + ?, playtime_minutes = playtime_minutes + ?, cases_opened = cases_opened + ?,
		    updated_at = ?
		WHERE id = ?`, c.Kills, c.PlaytimeMinutes, c.CasesOpened, toMillis(now()), id)
	return expectOne(res, "обновление счётчиков", err)
}

func (t *sqlTx) SetTier(ctx context.Context, id string, tier storage.Tier) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE players SET tier = ?, updated_at = ? WHERE id = ?`,
		int(tier), toMillis(now()), id)
	return expectOne(res, "обновление уровня", err)
}

func (t *sqlTx) SetRating(ctx context.Context, id string, rating int64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE players SET rating = ?, updated_at = ? WHERE id = ?`,
		rating, toMillis(now()), id)
	return expectOne(res, "обновление рейтинга", err)
}

func (t *sqlTx) ChainEntries(ctx context.Context, playerID string) ([]storage.LedgerEntry, error) {
	return chainEntries(ctx, t.tx, playerID)
}

func (t *sqlTx) InsertItem(ctx context.Context, it *storage.OwnedItem) error {
	created := now()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO owned_items (player_id, pool_id, catalog_item_id, name, weapon, wear, float_value,
			rarity, value, equipped_t, equipped_ct, favorite, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.PlayerID, it.PoolID, it.CatalogItemID, it.Name, it.Weapon, int(it.Wear), it.Float,
		int(it.Rarity), it.Value, boolInt(it.EquippedT), boolInt(it.EquippedCT), boolInt(it.Favorite),
		toMillis(created))
	if err != nil {
		return queryError("создание предмета", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return queryError("создание предмета", err)
	}
	it.ID = id
	it.CreatedAt = created
	return nil
}

func (t *sqlTx) LockItem(ctx context.Context, playerID string, itemID int64) (*storage.OwnedItem, error) {
	it, err := scanItem(t.tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM owned_items WHERE id = ? AND player_id = ?`, itemID, playerID))
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (t *sqlTx) UpdateItemFlags(ctx context.Context, it *storage.OwnedItem) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE owned_items SET equipped_t = ?, equipped_ct = ?, favorite = ?
		WHERE id = ? AND player_id = ?`,
		boolInt(it.EquippedT), boolInt(it.EquippedCT), boolInt(it.Favorite), it.ID, it.PlayerID)
	return expectOne(res, "обновление предмета", err)
}

func (t *sqlTx) UnequipWeapon(ctx context.Context, playerID, weapon string, side storage.Side, exceptID int64) error {
	col, err := sideColumn(side)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE owned_items SET `+col+` = 0
		WHERE player_id = ? AND weapon = ? AND id <> ? AND `+col+` = 1`, playerID, weapon, exceptID)
	if err != nil {
		return queryError("снятие экипировки", err)
	}
	return nil
}

func (t *sqlTx) DeleteItem(ctx context.Context, playerID string, itemID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM owned_items WHERE id = ? AND player_id = ?`, itemID, playerID)
	return expectOne(res, "удаление предмета", err)
}

func (t *sqlTx) InsertGiveaway(ctx context.Context, g *storage.Giveaway) error {
	created := now()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO giveaways (title, prize_kind, prize_amount, prize_text, mode, metric, winners_count,
			min_balance, min_rating, min_tier, ends_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Title, g.PrizeKind, g.PrizeAmount, g.PrizeText, g.Mode, g.Metric, g.WinnersCount,
		g.Eligibility.MinBalance, g.Eligibility.MinRating, int(g.Eligibility.MinTier),
		toMillis(g.EndsAt), g.Status, toMillis(created))
	if err != nil {
		return queryError("создание розыгрыша", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return queryError("создание розыгрыша", err)
	}
	g.ID = id
	g.CreatedAt = created
	return nil
}

func (t *sqlTx) LockGiveaway(ctx context.Context, id int64) (*storage.Giveaway, error) {
	g, err := scanGiveaway(t.tx.QueryRowContext(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (t *sqlTx) InsertEntrant(ctx context.Context, giveawayID int64, playerID string, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO giveaway_entrants (giveaway_id, player_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (giveaway_id, player_id) DO NOTHING`, giveawayID, playerID, toMillis(at))
	if err != nil {
		return false, queryError("запись участника", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queryError("запись участника", err)
	}
	return n == 1, nil
}

func (t *sqlTx) ListEntrants(ctx context.Context, giveawayID int64) ([]storage.Entrant, error) {
	return queryAll(ctx, t.tx, func(row rowScanner) (storage.Entrant, error) {
		var e storage.Entrant
		var created int64
		if err := row.Scan(&e.GiveawayID, &e.PlayerID, &created); err != nil {
			return e, translate(err)
		}
		e.CreatedAt = fromMillis(created)
		return e, nil
	}, `SELECT giveaway_id, player_id, created_at FROM giveaway_entrants WHERE giveaway_id = ? ORDER BY player_id`,
		giveawayID)
}

func (t *sqlTx) RankPlayers(ctx context.Context, q storage.RankQuery) ([]storage.Player, error) {
	col, ok := storage.MetricColumn(q.Metric)
	if !ok {
		return nil, fmt.Errorf("неизвестная метрика %q", q.Metric)
	}
	return queryAll(ctx, t.tx, scanPlayer, `
		SELECT `+playerColumns+` FROM players
		WHERE balance >= ? AND rating >= ? AND tier >= ?
		ORDER BY `+col+` DESC, id ASC
		LIMIT ?`,
		q.Eligibility.MinBalance, q.Eligibility.MinRating, int(q.Eligibility.MinTier), q.Limit)
}

func (t *sqlTx) InsertWinners(ctx context.Context, winners []storage.Winner) error {
	if len(winners) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO giveaway_winners (giveaway_id, player_id, rank, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return queryError("запись победителей", err)
	}
	defer stmt.Close()

	for _, w := range winners {
		if _, err := stmt.ExecContext(ctx, w.GiveawayID, w.PlayerID, w.Rank, toMillis(w.CreatedAt)); err != nil {
			return queryError("запись победителей", err)
		}
	}
	return nil
}

func (t *sqlTx) EndGiveaway(ctx context.Context, id int64, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE giveaways SET status = 'ended', ended_at = ?
		WHERE id = ? AND status = 'active'`, toMillis(at), id)
	if err := expectOne(res, "завершение розыгрыша", err); err != nil {
		if err == storage.ErrNotFound {
			return common.ErrAlreadyEnded
		}
		return err
	}
	return nil
}

func (t *sqlTx) ClaimPayout(ctx context.Context, giveawayID int64, playerID string, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE giveaway_winners SET disbursed = 1, disbursed_at = ?
		WHERE giveaway_id = ? AND player_id = ? AND disbursed = 0`, toMillis(at), giveawayID, playerID)
	if err != nil {
		return false, queryError("отметка выплаты", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queryError("отметка выплаты", err)
	}
	return n == 1, nil
}
