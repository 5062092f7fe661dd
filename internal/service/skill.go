package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/game/combat"
	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
)

// SkillService handles skill experience updates and the derived-stat
// recomputation they trigger. Updates are serialized per player and the
// skill write plus both derived fields commit as one unit, so readers
// never observe a half-recomputed player.
type SkillService struct {
	pool       *pgxpool.Pool
	players    *repository.PlayerRepository
	skills     *repository.SkillRepository
	unlocks    *repository.AchievementRepository
	playerLock *lock.EntityLock
}

// NewSkillService creates a new SkillService instance.
func NewSkillService(
	pool *pgxpool.Pool,
	players *repository.PlayerRepository,
	skills *repository.SkillRepository,
	unlocks *repository.AchievementRepository,
	playerLock *lock.EntityLock,
) *SkillService {
	return &SkillService{
		pool:       pool,
		players:    players,
		skills:     skills,
		unlocks:    unlocks,
		playerLock: playerLock,
	}
}

// UpdateSkillExperience adds experience to one skill and recomputes the
// player's derived levels. The experience delta must be positive:
// experience is monotonic, and a regression is an invariant violation,
// not a recomputation trigger.
func (s *SkillService) UpdateSkillExperience(ctx context.Context, playerID int64, skillName string, xpDelta int64) (*model.Skill, error) {
	if !model.IsSkill(skillName) {
		return nil, ErrUnknownSkill
	}
	if xpDelta <= 0 {
		return nil, ErrExperienceRegression
	}

	var updated *model.Skill
	err := s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			skills := s.skills.WithTx(tx)

			skill, err := skills.GetForUpdate(ctx, playerID, skillName)
			if err != nil {
				return err
			}

			newXP := skill.Experience + xpDelta
			if newXP > combat.MaxExperience {
				newXP = combat.MaxExperience
			}
			newLevel := combat.LevelForXP(newXP)
			if newLevel < skill.Level {
				return ErrExperienceRegression
			}

			if err := skills.SetExperience(ctx, playerID, skillName, newXP, newLevel); err != nil {
				return err
			}

			if err := s.recompute(ctx, tx, playerID, skillName); err != nil {
				return err
			}

			if newLevel == combat.MaxLevel && skill.Level < combat.MaxLevel {
				key := fmt.Sprintf("%s_99", skillName)
				if _, err := s.unlocks.WithTx(tx).Award(ctx, playerID, key); err != nil {
					return err
				}
			}

			skill.Experience = newXP
			skill.Level = newLevel
			updated = skill
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("player_id", playerID).
		Str("skill", skillName).
		Int64("xp_delta", xpDelta).
		Int("level", updated.Level).
		Msg("Skill experience updated")

	return updated, nil
}

// recompute writes the derived levels for a player within the caller's
// transaction. Total level follows every skill change; combat level is
// only recomputed when a combat-relevant skill moved.
func (s *SkillService) recompute(ctx context.Context, tx pgx.Tx, playerID int64, changedSkill string) error {
	skills := s.skills.WithTx(tx)
	players := s.players.WithTx(tx)

	total, err := skills.SumLevels(ctx, playerID)
	if err != nil {
		return err
	}

	var combatLevel int
	if model.IsCombatSkill(changedSkill) {
		levels, err := skills.CombatLevels(ctx, playerID)
		if err != nil {
			return err
		}
		combatLevel = combat.CombatLevel(statsFromLevels(levels))
	} else {
		player, err := players.GetByID(ctx, playerID)
		if err != nil {
			return err
		}
		combatLevel = player.CombatLevel
	}

	return players.SetDerivedLevels(ctx, playerID, total, combatLevel)
}

func statsFromLevels(levels map[string]int) combat.Stats {
	return combat.Stats{
		Attack:    levels[model.SkillAttack],
		Strength:  levels[model.SkillStrength],
		Defence:   levels[model.SkillDefence],
		Hitpoints: levels[model.SkillHitpoints],
		Prayer:    levels[model.SkillPrayer],
		Ranged:    levels[model.SkillRanged],
		Magic:     levels[model.SkillMagic],
	}
}

// GetSkills retrieves every skill row for a player.
func (s *SkillService) GetSkills(ctx context.Context, playerID int64) ([]*model.Skill, error) {
	return s.skills.GetAll(ctx, playerID)
}
