package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for unlock operations.
var (
	ErrQuestNotFound = errors.New("quest not found")
)

// AchievementRepository handles the write-once unlock ledgers:
// achievements, the collection log, and quest completion. Every insert
// is ON CONFLICT DO NOTHING so replays and retries never double-award.
type AchievementRepository struct {
	q Querier
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(q Querier) *AchievementRepository {
	return &AchievementRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *AchievementRepository) WithTx(tx pgx.Tx) *AchievementRepository {
	return &AchievementRepository{q: tx}
}

// Award records an achievement unlock. Returns true when this call
// created the row, false when the player already held it; an existing
// row is success, not an error.
func (r *AchievementRepository) Award(ctx context.Context, playerID int64, key string) (bool, error) {
	const query = `
		INSERT INTO achievements (player_id, achievement_key, earned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (player_id, achievement_key) DO NOTHING
	`
	result, err := r.q.Exec(ctx, query, playerID, key)
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List retrieves a player's achievements in unlock order.
func (r *AchievementRepository) List(ctx context.Context, playerID int64) ([]*model.Achievement, error) {
	const query = `
		SELECT player_id, achievement_key, earned_at
		FROM achievements
		WHERE player_id = $1
		ORDER BY earned_at, achievement_key
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.PlayerID, &a.Key, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return achievements, nil
}

// LogCollection records a first-time item obtain. Idempotent like Award.
func (r *AchievementRepository) LogCollection(ctx context.Context, playerID, itemID int64) (bool, error) {
	const query = `
		INSERT INTO collection_log (player_id, item_id, obtained_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (player_id, item_id) DO NOTHING
	`
	result, err := r.q.Exec(ctx, query, playerID, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to log collection entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListCollection retrieves a player's collection log in obtain order.
func (r *AchievementRepository) ListCollection(ctx context.Context, playerID int64) ([]*model.CollectionEntry, error) {
	const query = `
		SELECT player_id, item_id, obtained_at
		FROM collection_log
		WHERE player_id = $1
		ORDER BY obtained_at, item_id
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection log: %w", err)
	}
	defer rows.Close()

	var entries []*model.CollectionEntry
	for rows.Next() {
		var e model.CollectionEntry
		if err := rows.Scan(&e.PlayerID, &e.ItemID, &e.ObtainedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection log: %w", err)
	}

	return entries, nil
}

// CompleteQuest marks a quest complete, awarding its points exactly
// once. Returns true on first completion, false on a replay.
func (r *AchievementRepository) CompleteQuest(ctx context.Context, playerID, questID int64) (bool, error) {
	var points int
	err := r.q.QueryRow(ctx, `SELECT points FROM quests WHERE id = $1`, questID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrQuestNotFound
		}
		return false, fmt.Errorf("failed to get quest: %w", err)
	}

	const insert = `
		INSERT INTO player_quests (player_id, quest_id, completed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (player_id, quest_id) DO NOTHING
	`
	result, err := r.q.Exec(ctx, insert, playerID, questID)
	if err != nil {
		return false, fmt.Errorf("failed to complete quest: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	const addPoints = `
		UPDATE players SET quest_points = quest_points + $2, updated_at = NOW() WHERE id = $1
	`
	if _, err := r.q.Exec(ctx, addPoints, playerID, points); err != nil {
		return false, fmt.Errorf("failed to add quest points: %w", err)
	}
	return true, nil
}

// HasQuest reports whether the player has completed the quest.
func (r *AchievementRepository) HasQuest(ctx context.Context, playerID, questID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM player_quests WHERE player_id = $1 AND quest_id = $2
		)
	`

	var done bool
	if err := r.q.QueryRow(ctx, query, playerID, questID).Scan(&done); err != nil {
		return false, fmt.Errorf("failed to check quest completion: %w", err)
	}
	return done, nil
}

// UpsertQuest writes a quest catalog entry, keyed by name.
func (r *AchievementRepository) UpsertQuest(ctx context.Context, name string, points int) (int64, error) {
	const query = `
		INSERT INTO quests (name, points)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET points = EXCLUDED.points
		RETURNING id
	`

	var id int64
	if err := r.q.QueryRow(ctx, query, name, points).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert quest: %w", err)
	}
	return id, nil
}
