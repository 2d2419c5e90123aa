// Package postgres — migrations.go: встроенные SQL-миграции и их применение.
// Каждая миграция выполняется в своей транзакции и записывается в schema_migrations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// RunMigrations создаёт schema_migrations и применяет все миграции по порядку.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	for _, m := range migrations {
		applied, err := ExecMigrationSQL(ctx, pool, m.version, m.sql)
		if err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		if applied {
			log.Infof("Миграция %d применена", m.version)
		}
	}
	return nil
}

// ExecMigrationSQL выполняет одну миграцию в транзакции.
// Возвращает false, если миграция уже была применена.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Несколько инстансов могут стартовать одновременно.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(7471001)"); err != nil {
		return false, fmt.Errorf("ошибка блокировки миграций: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	return true, tx.Commit(ctx)
}

var migrations = []struct {
	version int
	sql     string
}{
	{1, migration001Players},
	{2, migration002Ledger},
	{3, migration003Items},
	{4, migration004Giveaways},
}

var migration001Players = `
CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    lifetime_earned BIGINT NOT NULL DEFAULT 0 CHECK (lifetime_earned >= 0),
    tier SMALLINT NOT NULL DEFAULT 0 CHECK (tier BETWEEN 0 AND 3),
    rating BIGINT NOT NULL DEFAULT 0,
    cases_opened BIGINT NOT NULL DEFAULT 0,
    kills BIGINT NOT NULL DEFAULT 0,
    playtime_minutes BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_players_lifetime_earned ON players(lifetime_earned DESC, id);
CREATE INDEX IF NOT EXISTS idx_players_rating ON players(rating DESC, id);
CREATE INDEX IF NOT EXISTS idx_players_kills ON players(kills DESC, id);
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id BIGSERIAL PRIMARY KEY,
    player_id TEXT NOT NULL REFERENCES players(id),
    amount BIGINT NOT NULL CHECK (amount <> 0),
    category VARCHAR(32) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    balance_after BIGINT NOT NULL CHECK (balance_after >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_player ON ledger_entries(player_id, id);

CREATE OR REPLACE FUNCTION ledger_entries_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'ledger_entries is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_ledger_entries_append_only ON ledger_entries;
CREATE TRIGGER trg_ledger_entries_append_only
    BEFORE UPDATE OR DELETE ON ledger_entries
    FOR EACH ROW EXECUTE FUNCTION ledger_entries_append_only();
`

var migration003Items = `
CREATE TABLE IF NOT EXISTS owned_items (
    id BIGSERIAL PRIMARY KEY,
    player_id TEXT NOT NULL REFERENCES players(id),
    pool_id TEXT NOT NULL DEFAULT '',
    catalog_item_id TEXT NOT NULL,
    name TEXT NOT NULL,
    weapon TEXT NOT NULL,
    wear SMALLINT NOT NULL CHECK (wear BETWEEN 0 AND 4),
    float_value DOUBLE PRECISION NOT NULL CHECK (float_value >= 0 AND float_value <= 1),
    rarity SMALLINT NOT NULL CHECK (rarity BETWEEN 0 AND 6),
    value BIGINT NOT NULL DEFAULT 0,
    equipped_t BOOLEAN NOT NULL DEFAULT FALSE,
    equipped_ct BOOLEAN NOT NULL DEFAULT FALSE,
    favorite BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_owned_items_player ON owned_items(player_id, id);
CREATE INDEX IF NOT EXISTS idx_owned_items_player_weapon ON owned_items(player_id, weapon);
`

var migration004Giveaways = `
CREATE TABLE IF NOT EXISTS giveaways (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    prize_kind VARCHAR(16) NOT NULL CHECK (prize_kind IN ('currency', 'text')),
    prize_amount BIGINT NOT NULL DEFAULT 0 CHECK (prize_amount >= 0),
    prize_text TEXT NOT NULL DEFAULT '',
    mode VARCHAR(16) NOT NULL CHECK (mode IN ('random', 'leaderboard')),
    metric VARCHAR(32) NOT NULL DEFAULT '',
    winners_count INTEGER NOT NULL CHECK (winners_count > 0),
    min_balance BIGINT NOT NULL DEFAULT 0,
    min_rating BIGINT NOT NULL DEFAULT 0,
    min_tier SMALLINT NOT NULL DEFAULT 0,
    ends_at TIMESTAMPTZ NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ended_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_giveaways_status_ends_at ON giveaways(status, ends_at);

CREATE TABLE IF NOT EXISTS giveaway_entrants (
    giveaway_id BIGINT NOT NULL REFERENCES giveaways(id),
    player_id TEXT NOT NULL REFERENCES players(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (giveaway_id, player_id)
);

CREATE TABLE IF NOT EXISTS giveaway_winners (
    giveaway_id BIGINT NOT NULL REFERENCES giveaways(id),
    player_id TEXT NOT NULL REFERENCES players(id),
    rank INTEGER NOT NULL CHECK (rank >= 1),
    disbursed BOOLEAN NOT NULL DEFAULT FALSE,
    disbursed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (giveaway_id, player_id),
    UNIQUE (giveaway_id, rank)
);
CREATE INDEX IF NOT EXISTS idx_giveaway_winners_pending ON giveaway_winners(giveaway_id) WHERE NOT disbursed;
`
