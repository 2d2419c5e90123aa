// Package postgres — tx.go: операции внутри транзакции (storage.Tx).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/souls/internal/catalog"
	"serotonyl.ru/souls/internal/common"
	"serotonyl.ru/souls/internal/storage"
)

type pgTx struct {
	tx pgx.Tx
}

func catalogWear(v int16) catalog.Wear     { return catalog.Wear(v) }
func catalogRarity(v int16) catalog.Rarity { return catalog.Rarity(v) }

func sideColumn(side storage.Side) (string, error) {
	switch side {
	case storage.SideT:
		return "equipped_t", nil
	case storage.SideCT:
		return "equipped_ct", nil
	}
	return "", fmt.Errorf("неизвестная сторона %q", side)
}

// LockPlayer создаёт игрока при первом обращении и блокирует его строку.
// Два параллельных INSERT одного id сериализуются на уникальном индексе.
func (t *pgTx) LockPlayer(ctx context.Context, id string) (*storage.Player, bool, error) {
	var created bool
	err := t.tx.QueryRow(ctx, `
		INSERT INTO players (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
		RETURNING TRUE
	`, id).Scan(&created)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, queryError("создание игрока", err)
	}

	p, err := scanPlayer(t.tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, false, err
	}
	return p, created, nil
}

func (t *pgTx) SetBalance(ctx context.Context, id string, balance, lifetimeEarned int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE players
		SET balance = $2, lifetime_earned = $3, updated_at = NOW()
		WHERE id = $1
	`, id, balance, lifetimeEarned)
	if err != nil {
		return queryError("обновление баланса", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendEntry(ctx context.Context, e *storage.LedgerEntry) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (player_id, amount, category, description, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.PlayerID, e.Amount, e.Category, e.Description, e.BalanceAfter).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return queryError("запись в леджер", err)
	}
	return nil
}

func (t *pgTx) AddCounters(ctx context.Context, id string, c storage.Counters) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE players
		SET kills = kills + $2,
		    playtime_minutes = playtime_minutes + $3,
		    cases_opened = cases_opened + $4,
		    updated_at = NOW()
		WHERE id = $1
	`, id, c.Kills, c.PlaytimeMinutes, c.CasesOpened)
	if err != nil {
		return queryError("обновление счётчиков", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetTier(ctx context.Context, id string, tier storage.Tier) error {
	tag, err := t.tx.Exec(ctx, `UPDATE players SET tier = $2, updated_at = NOW() WHERE id = $1`, id, int16(tier))
	if err != nil {
		return queryError("обновление уровня", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetRating(ctx context.Context, id string, rating int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE players SET rating = $2, updated_at = NOW() WHERE id = $1`, id, rating)
	if err != nil {
		return queryError("обновление рейтинга", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) ChainEntries(ctx context.Context, playerID string) ([]storage.LedgerEntry, error) {
	return chainEntries(ctx, t.tx, playerID)
}

func (t *pgTx) InsertItem(ctx context.Context, it *storage.OwnedItem) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO owned_items (player_id, pool_id, catalog_item_id, name, weapon, wear, float_value,
			rarity, value, equipped_t, equipped_ct, favorite)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, it.PlayerID, it.PoolID, it.CatalogItemID, it.Name, it.Weapon, int16(it.Wear), it.Float,
		int16(it.Rarity), it.Value, it.EquippedT, it.EquippedCT, it.Favorite).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return queryError("создание предмета", err)
	}
	return nil
}

func (t *pgTx) LockItem(ctx context.Context, playerID string, itemID int64) (*storage.OwnedItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM owned_items
		WHERE id = $1 AND player_id = $2
		FOR UPDATE
	`, itemID, playerID))
}

func (t *pgTx) UpdateItemFlags(ctx context.Context, it *storage.OwnedItem) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE owned_items
		SET equipped_t = $3, equipped_ct = $4, favorite = $5
		WHERE id = $1 AND player_id = $2
	`, it.ID, it.PlayerID, it.EquippedT, it.EquippedCT, it.Favorite)
	if err != nil {
		return queryError("обновление предмета", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) UnequipWeapon(ctx context.Context, playerID, weapon string, side storage.Side, exceptID int64) error {
	col, err := sideColumn(side)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		UPDATE owned_items SET `+col+` = FALSE
		WHERE player_id = $1 AND weapon = $2 AND id <> $3 AND `+col, playerID, weapon, exceptID)
	if err != nil {
		return queryError("снятие экипировки", err)
	}
	return nil
}

func (t *pgTx) DeleteItem(ctx context.Context, playerID string, itemID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM owned_items WHERE id = $1 AND player_id = $2`, itemID, playerID)
	if err != nil {
		return queryError("удаление предмета", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertGiveaway(ctx context.Context, g *storage.Giveaway) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO giveaways (title, prize_kind, prize_amount, prize_text, mode, metric, winners_count,
			min_balance, min_rating, min_tier, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, g.Title, g.PrizeKind, g.PrizeAmount, g.PrizeText, g.Mode, g.Metric, g.WinnersCount,
		g.Eligibility.MinBalance, g.Eligibility.MinRating, int16(g.Eligibility.MinTier), g.EndsAt, g.Status,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return queryError("создание розыгрыша", err)
	}
	return nil
}

func (t *pgTx) LockGiveaway(ctx context.Context, id int64) (*storage.Giveaway, error) {
	return scanGiveaway(t.tx.QueryRow(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) InsertEntrant(ctx context.Context, giveawayID int64, playerID string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO giveaway_entrants (giveaway_id, player_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (giveaway_id, player_id) DO NOTHING
	`, giveawayID, playerID, at)
	if err != nil {
		return false, queryError("запись участника", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) ListEntrants(ctx context.Context, giveawayID int64) ([]storage.Entrant, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT giveaway_id, player_id, created_at FROM giveaway_entrants
		WHERE giveaway_id = $1
		ORDER BY player_id
	`, giveawayID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (storage.Entrant, error) {
		var e storage.Entrant
		err := row.Scan(&e.GiveawayID, &e.PlayerID, &e.CreatedAt)
		return e, translate(err)
	})
}

func (t *pgTx) RankPlayers(ctx context.Context, q storage.RankQuery) ([]storage.Player, error) {
	col, ok := storage.MetricColumn(q.Metric)
	if !ok {
		return nil, fmt.Errorf("неизвестная метрика %q", q.Metric)
	}
	rows, err := t.tx.Query(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE balance >= $1 AND rating >= $2 AND tier >= $3
		ORDER BY `+col+` DESC, id ASC
		LIMIT $4
	`, q.Eligibility.MinBalance, q.Eligibility.MinRating, int16(q.Eligibility.MinTier), q.Limit)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, derefPlayer)
}

// InsertWinners пишет всех победителей одним батчем.
func (t *pgTx) InsertWinners(ctx context.Context, winners []storage.Winner) error {
	if len(winners) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range winners {
		batch.Queue(`
			INSERT INTO giveaway_winners (giveaway_id, player_id, rank, created_at)
			VALUES ($1, $2, $3, $4)
		`, w.GiveawayID, w.PlayerID, w.Rank, w.CreatedAt)
	}
	br := t.tx.SendBatch(ctx, batch)
	for range winners {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return queryError("запись победителей", err)
		}
	}
	return translate(br.Close())
}

func (t *pgTx) EndGiveaway(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE giveaways SET status = 'ended', ended_at = $2
		WHERE id = $1 AND status = 'active'
	`, id, at)
	if err != nil {
		return queryError("завершение розыгрыша", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAlreadyEnded
	}
	return nil
}

func (t *pgTx) ClaimPayout(ctx context.Context, giveawayID int64, playerID string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE giveaway_winners SET disbursed = TRUE, disbursed_at = $3
		WHERE giveaway_id = $1 AND player_id = $2 AND NOT disbursed
	`, giveawayID, playerID, at)
	if err != nil {
		return false, queryError("отметка выплаты", err)
	}
	return tag.RowsAffected() == 1, nil
}
