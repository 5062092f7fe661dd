package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for player operations.
var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInsufficientCoins = errors.New("insufficient coins")
)

const playerColumns = `id, discord_id, username, world, member, coins, total_level,
	combat_level, quest_points, status, created_at, updated_at`

// PlayerRepository handles player persistence. The player row is the
// ownership root: every per-player table hangs off players.id.
type PlayerRepository struct {
	q Querier
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(q Querier) *PlayerRepository {
	return &PlayerRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *PlayerRepository) WithTx(tx pgx.Tx) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.DiscordID,
		&p.Username,
		&p.World,
		&p.Member,
		&p.Coins,
		&p.TotalLevel,
		&p.CombatLevel,
		&p.QuestPoints,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create creates a new player with the given Discord ID and username,
// seeding the baseline skill rows (hitpoints 10, everything else 1) so
// the derived levels are consistent from the first read.
func (r *PlayerRepository) Create(ctx context.Context, discordID int64, username string, startingCoins int64) (*model.Player, error) {
	const query = `
		INSERT INTO players (discord_id, username, coins, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.q.QueryRow(ctx, query, discordID, username, startingCoins))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	const seedSkill = `
		INSERT INTO skills (player_id, skill_name, level, experience, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (player_id, skill_name) DO NOTHING
	`
	for _, name := range model.AllSkills {
		level := model.BaselineLevel(name)
		var xp int64
		if name == model.SkillHitpoints {
			xp = 1154 // level 10 threshold
		}
		if _, err := r.q.Exec(ctx, seedSkill, player.ID, name, level, xp); err != nil {
			return nil, fmt.Errorf("failed to seed skill %s: %w", name, err)
		}
	}

	return player, nil
}

// GetByID retrieves a player by surrogate id.
func (r *PlayerRepository) GetByID(ctx context.Context, playerID int64) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetByDiscordID retrieves a player by the external Discord identity.
func (r *PlayerRepository) GetByDiscordID(ctx context.Context, discordID int64) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE discord_id = $1`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, discordID))
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetOrCreate retrieves a player by Discord ID, creating one on first
// contact. Returns the player and whether it was newly created.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, discordID int64, username string, startingCoins int64) (*model.Player, bool, error) {
	player, err := r.GetByDiscordID(ctx, discordID)
	if err == nil {
		return player, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	player, err = r.Create(ctx, discordID, username, startingCoins)
	if err != nil {
		// Handle race: another request might have created the player
		player, err = r.GetByDiscordID(ctx, discordID)
		if err != nil {
			return nil, false, err
		}
		return player, false, nil
	}

	return player, true, nil
}

// AdjustCoins adds amount (may be negative) to a player's coin balance.
// A debit past zero returns ErrInsufficientCoins without changing the row.
func (r *PlayerRepository) AdjustCoins(ctx context.Context, playerID int64, amount int64) (*model.Player, error) {
	const query = `
		UPDATE players
		SET coins = coins + $2, updated_at = NOW()
		WHERE id = $1 AND coins + $2 >= 0
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.q.QueryRow(ctx, query, playerID, amount))
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			// Distinguish a missing player from a short balance.
			if _, getErr := r.GetByID(ctx, playerID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientCoins
		}
		return nil, fmt.Errorf("failed to adjust coins: %w", err)
	}
	return player, nil
}

// SetDerivedLevels persists the recomputed total and combat levels.
func (r *PlayerRepository) SetDerivedLevels(ctx context.Context, playerID int64, totalLevel, combatLevel int) error {
	const query = `
		UPDATE players
		SET total_level = $2, combat_level = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, playerID, totalLevel, combatLevel)
	if err != nil {
		return fmt.Errorf("failed to set derived levels: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AddQuestPoints increments the quest-point counter.
func (r *PlayerRepository) AddQuestPoints(ctx context.Context, playerID int64, points int) error {
	const query = `
		UPDATE players
		SET quest_points = quest_points + $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, playerID, points)
	if err != nil {
		return fmt.Errorf("failed to add quest points: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// SetStatus moves a player between soft states (active/banned/retired).
func (r *PlayerRepository) SetStatus(ctx context.Context, playerID int64, status string) error {
	const query = `UPDATE players SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.q.Exec(ctx, query, playerID, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// Delete removes a player and every player-owned row in explicit
// dependency order. Trades and battle records reference the player only
// historically and are kept for audit: deleting the orders detaches the
// trade references via ON DELETE SET NULL, the trade rows themselves
// survive so counterparties keep their price history. Catalog rows are
// untouched. Callers run this inside a transaction.
func (r *PlayerRepository) Delete(ctx context.Context, playerID int64) error {
	owned := []string{
		`DELETE FROM collection_log WHERE player_id = $1`,
		`DELETE FROM achievements WHERE player_id = $1`,
		`DELETE FROM player_quests WHERE player_id = $1`,
		`DELETE FROM battle_ratings WHERE player_id = $1`,
		`DELETE FROM orders WHERE player_id = $1`,
		`DELETE FROM equipment_slots WHERE player_id = $1`,
		`DELETE FROM item_slots WHERE player_id = $1`,
		`DELETE FROM skills WHERE player_id = $1`,
	}
	for _, query := range owned {
		if _, err := r.q.Exec(ctx, query, playerID); err != nil {
			return fmt.Errorf("failed to delete owned rows: %w", err)
		}
	}

	result, err := r.q.Exec(ctx, `DELETE FROM players WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// GetTopByTotalLevel retrieves the top N players by total level.
func (r *PlayerRepository) GetTopByTotalLevel(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT ` + playerColumns + `
		FROM players
		WHERE status = 'active'
		ORDER BY total_level DESC, id
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}
