package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for skill operations.
var (
	ErrSkillNotFound = errors.New("skill not found")
)

// SkillRepository handles per-player skill persistence.
type SkillRepository struct {
	q Querier
}

// NewSkillRepository creates a new SkillRepository instance.
func NewSkillRepository(q Querier) *SkillRepository {
	return &SkillRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *SkillRepository) WithTx(tx pgx.Tx) *SkillRepository {
	return &SkillRepository{q: tx}
}

// Get retrieves one skill row.
func (r *SkillRepository) Get(ctx context.Context, playerID int64, name string) (*model.Skill, error) {
	const query = `
		SELECT player_id, skill_name, level, experience, updated_at
		FROM skills
		WHERE player_id = $1 AND skill_name = $2
	`

	var s model.Skill
	err := r.q.QueryRow(ctx, query, playerID, name).Scan(
		&s.PlayerID, &s.Name, &s.Level, &s.Experience, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}
	return &s, nil
}

// GetForUpdate retrieves one skill row with a row lock, so the
// read-modify-write of a skill update is atomic within its transaction.
func (r *SkillRepository) GetForUpdate(ctx context.Context, playerID int64, name string) (*model.Skill, error) {
	const query = `
		SELECT player_id, skill_name, level, experience, updated_at
		FROM skills
		WHERE player_id = $1 AND skill_name = $2
		FOR UPDATE
	`

	var s model.Skill
	err := r.q.QueryRow(ctx, query, playerID, name).Scan(
		&s.PlayerID, &s.Name, &s.Level, &s.Experience, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}
	return &s, nil
}

// SetExperience writes the new experience and derived level. The guard
// refuses to write a regression: experience is monotonic by invariant,
// so a lower value means the caller computed against stale state.
func (r *SkillRepository) SetExperience(ctx context.Context, playerID int64, name string, experience int64, level int) error {
	const query = `
		UPDATE skills
		SET experience = $3, level = $4, updated_at = NOW()
		WHERE player_id = $1 AND skill_name = $2 AND experience <= $3
	`
	result, err := r.q.Exec(ctx, query, playerID, name, experience, level)
	if err != nil {
		return fmt.Errorf("failed to set experience: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSkillNotFound
	}
	return nil
}

// GetAll retrieves every skill row for a player, ordered by name.
func (r *SkillRepository) GetAll(ctx context.Context, playerID int64) ([]*model.Skill, error) {
	const query = `
		SELECT player_id, skill_name, level, experience, updated_at
		FROM skills
		WHERE player_id = $1
		ORDER BY skill_name
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get skills: %w", err)
	}
	defer rows.Close()

	var skills []*model.Skill
	for rows.Next() {
		var s model.Skill
		if err := rows.Scan(&s.PlayerID, &s.Name, &s.Level, &s.Experience, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skills: %w", err)
	}

	return skills, nil
}

// SumLevels returns the sum of all skill levels for a player.
func (r *SkillRepository) SumLevels(ctx context.Context, playerID int64) (int, error) {
	const query = `SELECT COALESCE(SUM(level), 0) FROM skills WHERE player_id = $1`

	var total int
	if err := r.q.QueryRow(ctx, query, playerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum levels: %w", err)
	}
	return total, nil
}

// CombatLevels returns the seven combat-skill levels as a map. Missing
// rows are simply absent; the combat formula applies baselines.
func (r *SkillRepository) CombatLevels(ctx context.Context, playerID int64) (map[string]int, error) {
	const query = `
		SELECT skill_name, level
		FROM skills
		WHERE player_id = $1
		  AND skill_name IN ('attack', 'strength', 'defence', 'hitpoints', 'prayer', 'ranged', 'magic')
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get combat levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[string]int, 7)
	for rows.Next() {
		var name string
		var level int
		if err := rows.Scan(&name, &level); err != nil {
			return nil, fmt.Errorf("failed to scan combat level: %w", err)
		}
		levels[name] = level
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating combat levels: %w", err)
	}

	return levels, nil
}
