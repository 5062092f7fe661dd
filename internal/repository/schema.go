package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migrations are applied in order at startup. Statements are idempotent
// so a restart replays them safely.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "players",
		sql: `
			CREATE TABLE IF NOT EXISTS players (
				id BIGSERIAL PRIMARY KEY,
				discord_id BIGINT NOT NULL UNIQUE,
				username VARCHAR(255) NOT NULL,
				world INT NOT NULL DEFAULT 301,
				member BOOLEAN NOT NULL DEFAULT FALSE,
				coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
				total_level INT NOT NULL DEFAULT 32,
				combat_level INT NOT NULL DEFAULT 3,
				quest_points INT NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL DEFAULT 'active',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_players_total_level ON players(total_level DESC);
		`,
	},
	{
		name: "skills",
		sql: `
			CREATE TABLE IF NOT EXISTS skills (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				skill_name VARCHAR(20) NOT NULL,
				level INT NOT NULL DEFAULT 1,
				experience BIGINT NOT NULL DEFAULT 0 CHECK (experience >= 0),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, skill_name)
			);
		`,
	},
	{
		name: "items",
		sql: `
			CREATE TABLE IF NOT EXISTS items (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				tradeable BOOLEAN NOT NULL DEFAULT TRUE,
				stackable BOOLEAN NOT NULL DEFAULT FALSE,
				equipable BOOLEAN NOT NULL DEFAULT FALSE,
				equip_slot VARCHAR(20) NOT NULL DEFAULT '',
				base_value BIGINT NOT NULL DEFAULT 1,
				high_alch BIGINT NOT NULL DEFAULT 0,
				low_alch BIGINT NOT NULL DEFAULT 0,
				weight DOUBLE PRECISION NOT NULL DEFAULT 0,
				buy_limit INT NOT NULL DEFAULT 0,
				requirements JSONB NOT NULL DEFAULT '[]'
			);
		`,
	},
	{
		name: "item_slots",
		sql: `
			CREATE TABLE IF NOT EXISTS item_slots (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				container VARCHAR(10) NOT NULL,
				slot_index INT NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				quantity BIGINT NOT NULL CHECK (quantity > 0),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, container, slot_index)
			);
			CREATE INDEX IF NOT EXISTS idx_item_slots_item ON item_slots(player_id, container, item_id);
		`,
	},
	{
		name: "equipment_slots",
		sql: `
			CREATE TABLE IF NOT EXISTS equipment_slots (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				slot_name VARCHAR(20) NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				quantity BIGINT NOT NULL CHECK (quantity > 0),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, slot_name)
			);
		`,
	},
	{
		name: "orders",
		sql: `
			CREATE TABLE IF NOT EXISTS orders (
				id BIGSERIAL PRIMARY KEY,
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				item_id BIGINT NOT NULL REFERENCES items(id),
				side VARCHAR(4) NOT NULL CHECK (side IN ('buy', 'sell')),
				quantity BIGINT NOT NULL CHECK (quantity > 0),
				price BIGINT NOT NULL CHECK (price > 0),
				quantity_filled BIGINT NOT NULL DEFAULT 0
					CHECK (quantity_filled >= 0 AND quantity_filled <= quantity),
				status VARCHAR(10) NOT NULL DEFAULT 'active',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_orders_book
				ON orders(item_id, side, price, created_at) WHERE status = 'active';
			CREATE INDEX IF NOT EXISTS idx_orders_player ON orders(player_id, created_at DESC);
		`,
	},
	{
		name: "trades",
		sql: `
			CREATE TABLE IF NOT EXISTS trades (
				id BIGSERIAL PRIMARY KEY,
				item_id BIGINT NOT NULL REFERENCES items(id),
				buy_order_id BIGINT REFERENCES orders(id) ON DELETE SET NULL,
				sell_order_id BIGINT REFERENCES orders(id) ON DELETE SET NULL,
				quantity BIGINT NOT NULL CHECK (quantity > 0),
				price BIGINT NOT NULL CHECK (price > 0),
				executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_trades_item_time ON trades(item_id, executed_at DESC);
		`,
	},
	{
		// Trades are append-only history: deleting an order (or the
		// player owning it) detaches the reference, never the trade.
		// Replays the drop/add pair so older databases converge.
		name: "trades_detach_orders",
		sql: `
			ALTER TABLE trades ALTER COLUMN buy_order_id DROP NOT NULL;
			ALTER TABLE trades ALTER COLUMN sell_order_id DROP NOT NULL;
			ALTER TABLE trades DROP CONSTRAINT IF EXISTS trades_buy_order_id_fkey;
			ALTER TABLE trades ADD CONSTRAINT trades_buy_order_id_fkey
				FOREIGN KEY (buy_order_id) REFERENCES orders(id) ON DELETE SET NULL;
			ALTER TABLE trades DROP CONSTRAINT IF EXISTS trades_sell_order_id_fkey;
			ALTER TABLE trades ADD CONSTRAINT trades_sell_order_id_fkey
				FOREIGN KEY (sell_order_id) REFERENCES orders(id) ON DELETE SET NULL;
		`,
	},
	{
		name: "battle_records",
		sql: `
			CREATE TABLE IF NOT EXISTS battle_records (
				id BIGSERIAL PRIMARY KEY,
				category VARCHAR(20) NOT NULL,
				player_a BIGINT NOT NULL,
				player_b BIGINT NOT NULL,
				winner_id BIGINT,
				duration_seconds INT NOT NULL DEFAULT 0,
				payload JSONB NOT NULL DEFAULT '{}',
				fought_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_battle_records_player_a ON battle_records(player_a, fought_at DESC);
			CREATE INDEX IF NOT EXISTS idx_battle_records_player_b ON battle_records(player_b, fought_at DESC);
		`,
	},
	{
		name: "battle_ratings",
		sql: `
			CREATE TABLE IF NOT EXISTS battle_ratings (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				category VARCHAR(20) NOT NULL,
				rating DOUBLE PRECISION NOT NULL,
				uncertainty DOUBLE PRECISION NOT NULL,
				wins INT NOT NULL DEFAULT 0,
				losses INT NOT NULL DEFAULT 0,
				draws INT NOT NULL DEFAULT 0,
				streak INT NOT NULL DEFAULT 0,
				best_streak INT NOT NULL DEFAULT 0,
				damage_dealt BIGINT NOT NULL DEFAULT 0,
				damage_taken BIGINT NOT NULL DEFAULT 0,
				last_battle_at TIMESTAMPTZ,
				rd_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, category)
			);
		`,
	},
	{
		name: "achievements",
		sql: `
			CREATE TABLE IF NOT EXISTS achievements (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				achievement_key VARCHAR(100) NOT NULL,
				earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, achievement_key)
			);
		`,
	},
	{
		name: "collection_log",
		sql: `
			CREATE TABLE IF NOT EXISTS collection_log (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				item_id BIGINT NOT NULL REFERENCES items(id),
				obtained_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, item_id)
			);
		`,
	},
	{
		name: "quests",
		sql: `
			CREATE TABLE IF NOT EXISTS quests (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				points INT NOT NULL DEFAULT 1
			);
			CREATE TABLE IF NOT EXISTS player_quests (
				player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
				quest_id BIGINT NOT NULL REFERENCES quests(id),
				completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (player_id, quest_id)
			);
		`,
	},
	{
		name: "tournaments",
		sql: `
			CREATE TABLE IF NOT EXISTS tournaments (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				category VARCHAR(20) NOT NULL,
				status VARCHAR(10) NOT NULL DEFAULT 'active',
				current_round INT NOT NULL DEFAULT 1,
				rounds INT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS tournament_matches (
				id BIGSERIAL PRIMARY KEY,
				tournament_id BIGINT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
				round INT NOT NULL,
				position INT NOT NULL,
				player1_id BIGINT,
				player2_id BIGINT,
				winner_id BIGINT,
				status VARCHAR(10) NOT NULL DEFAULT 'pending',
				UNIQUE (tournament_id, round, position)
			);
		`,
	},
}

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, q Querier) error {
	for _, m := range migrations {
		if _, err := q.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		log.Debug().Str("migration", m.name).Msg("Migration applied")
	}
	log.Info().Int("migrations", len(migrations)).Msg("Database schema up to date")
	return nil
}
