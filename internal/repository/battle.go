package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

const ratingColumns = `player_id, category, rating, uncertainty, wins, losses, draws,
	streak, best_streak, damage_dealt, damage_taken, last_battle_at, rd_updated_at`

// BattleRepository handles battle records and per-category ratings.
type BattleRepository struct {
	q Querier
}

// NewBattleRepository creates a new BattleRepository instance.
func NewBattleRepository(q Querier) *BattleRepository {
	return &BattleRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *BattleRepository) WithTx(tx pgx.Tx) *BattleRepository {
	return &BattleRepository{q: tx}
}

// InsertRecord appends one immutable battle record.
func (r *BattleRepository) InsertRecord(ctx context.Context, rec *model.BattleRecord) (*model.BattleRecord, error) {
	const query = `
		INSERT INTO battle_records (category, player_a, player_b, winner_id, duration_seconds, payload, fought_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, fought_at
	`

	out := *rec
	err := r.q.QueryRow(ctx, query,
		rec.Category, rec.PlayerA, rec.PlayerB, rec.WinnerID, rec.Duration, rec.Payload,
	).Scan(&out.ID, &out.FoughtAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert battle record: %w", err)
	}
	return &out, nil
}

// ListRecords retrieves a player's battles in a category, newest
// first. An empty category matches every category.
func (r *BattleRepository) ListRecords(ctx context.Context, playerID int64, category string, limit int) ([]*model.BattleRecord, error) {
	const query = `
		SELECT id, category, player_a, player_b, winner_id, duration_seconds, payload, fought_at
		FROM battle_records
		WHERE ($2 = '' OR category = $2) AND (player_a = $1 OR player_b = $1)
		ORDER BY fought_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, playerID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list battle records: %w", err)
	}
	defer rows.Close()

	var records []*model.BattleRecord
	for rows.Next() {
		var rec model.BattleRecord
		err := rows.Scan(&rec.ID, &rec.Category, &rec.PlayerA, &rec.PlayerB,
			&rec.WinnerID, &rec.Duration, &rec.Payload, &rec.FoughtAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan battle record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battle records: %w", err)
	}

	return records, nil
}

func scanRating(row pgx.Row) (*model.BattleRating, error) {
	var br model.BattleRating
	err := row.Scan(
		&br.PlayerID, &br.Category, &br.Rating, &br.Uncertainty,
		&br.Wins, &br.Losses, &br.Draws, &br.Streak, &br.BestStreak,
		&br.DamageDealt, &br.DamageTaken, &br.LastBattle, &br.RDUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &br, nil
}

// GetOrInitRating retrieves a rating row with a row lock, inserting the
// initial state on a player's first rated battle in the category.
func (r *BattleRepository) GetOrInitRating(ctx context.Context, playerID int64, category string, initial, uncertainty float64) (*model.BattleRating, error) {
	const insert = `
		INSERT INTO battle_ratings (player_id, category, rating, uncertainty)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, category) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, playerID, category, initial, uncertainty); err != nil {
		return nil, fmt.Errorf("failed to init rating: %w", err)
	}

	const query = `
		SELECT ` + ratingColumns + `
		FROM battle_ratings
		WHERE player_id = $1 AND category = $2
		FOR UPDATE
	`
	rating, err := scanRating(r.q.QueryRow(ctx, query, playerID, category))
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return rating, nil
}

// GetRating retrieves one rating row without locking.
func (r *BattleRepository) GetRating(ctx context.Context, playerID int64, category string) (*model.BattleRating, error) {
	const query = `
		SELECT ` + ratingColumns + `
		FROM battle_ratings
		WHERE player_id = $1 AND category = $2
	`
	rating, err := scanRating(r.q.QueryRow(ctx, query, playerID, category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return rating, nil
}

// ListRatings retrieves every category rating for a player.
func (r *BattleRepository) ListRatings(ctx context.Context, playerID int64) ([]*model.BattleRating, error) {
	const query = `
		SELECT ` + ratingColumns + `
		FROM battle_ratings
		WHERE player_id = $1
		ORDER BY category
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.BattleRating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}

	return ratings, nil
}

// SaveRating persists a rating row mutated by the rating engine. The
// battle timestamp moves with the save so inactivity growth restarts.
func (r *BattleRepository) SaveRating(ctx context.Context, br *model.BattleRating) error {
	const query = `
		UPDATE battle_ratings
		SET rating = $3, uncertainty = $4, wins = $5, losses = $6, draws = $7,
		    streak = $8, best_streak = $9, damage_dealt = $10, damage_taken = $11,
		    last_battle_at = NOW(), rd_updated_at = NOW()
		WHERE player_id = $1 AND category = $2
	`
	result, err := r.q.Exec(ctx, query,
		br.PlayerID, br.Category, br.Rating, br.Uncertainty,
		br.Wins, br.Losses, br.Draws, br.Streak, br.BestStreak,
		br.DamageDealt, br.DamageTaken,
	)
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ListStaleRatings retrieves rating rows whose owner has neither fought
// nor had uncertainty growth applied since the cutoff. Used by the
// maintenance pass; rows touched inside the current period are skipped,
// which is what makes re-running the pass a no-op.
func (r *BattleRepository) ListStaleRatings(ctx context.Context, cutoff time.Time, limit int) ([]*model.BattleRating, error) {
	const query = `
		SELECT ` + ratingColumns + `
		FROM battle_ratings
		WHERE last_battle_at IS NOT NULL
		  AND last_battle_at < $1
		  AND rd_updated_at < $1
		ORDER BY rd_updated_at
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.BattleRating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale ratings: %w", err)
	}

	return ratings, nil
}

// GrowUncertainty applies inactivity growth to one rating row, guarded
// so two concurrent maintenance passes cannot double-apply: the row
// only updates if its rd_updated_at is still the one the pass read.
func (r *BattleRepository) GrowUncertainty(ctx context.Context, playerID int64, category string, uncertainty float64, seenAt time.Time) (bool, error) {
	const query = `
		UPDATE battle_ratings
		SET uncertainty = $3, rd_updated_at = NOW()
		WHERE player_id = $1 AND category = $2 AND rd_updated_at = $4
	`
	result, err := r.q.Exec(ctx, query, playerID, category, uncertainty, seenAt)
	if err != nil {
		return false, fmt.Errorf("failed to grow uncertainty: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
