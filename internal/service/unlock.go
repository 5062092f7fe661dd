package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
)

// UnlockService exposes the write-once ledgers: achievements, the
// collection log, and quest completion. All writes are idempotent;
// replays report false instead of failing.
type UnlockService struct {
	pool       *pgxpool.Pool
	unlocks    *repository.AchievementRepository
	playerLock *lock.EntityLock
}

// NewUnlockService creates a new UnlockService instance.
func NewUnlockService(pool *pgxpool.Pool, unlocks *repository.AchievementRepository, playerLock *lock.EntityLock) *UnlockService {
	return &UnlockService{
		pool:       pool,
		unlocks:    unlocks,
		playerLock: playerLock,
	}
}

// Award grants an achievement. Returns true on first grant, false on a
// replay.
func (s *UnlockService) Award(ctx context.Context, playerID int64, key string) (bool, error) {
	created, err := s.unlocks.Award(ctx, playerID, key)
	if err != nil {
		return false, err
	}
	if created {
		log.Debug().
			Int64("player_id", playerID).
			Str("key", key).
			Msg("achievement awarded")
	}
	return created, nil
}

// Achievements returns the player's unlocks, newest first.
func (s *UnlockService) Achievements(ctx context.Context, playerID int64) ([]*model.Achievement, error) {
	return s.unlocks.List(ctx, playerID)
}

// LogCollection marks an item obtained. Returns true on the first
// obtain, false once logged.
func (s *UnlockService) LogCollection(ctx context.Context, playerID, itemID int64) (bool, error) {
	return s.unlocks.LogCollection(ctx, playerID, itemID)
}

// Collection returns the player's collection log.
func (s *UnlockService) Collection(ctx context.Context, playerID int64) ([]*model.CollectionEntry, error) {
	return s.unlocks.ListCollection(ctx, playerID)
}

// CompleteQuest marks a quest finished and credits its quest points,
// both exactly once no matter how often it is replayed.
func (s *UnlockService) CompleteQuest(ctx context.Context, playerID, questID int64) (bool, error) {
	var first bool
	err := s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			created, err := s.unlocks.WithTx(tx).CompleteQuest(ctx, playerID, questID)
			if err != nil {
				return err
			}
			first = created
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	if first {
		log.Info().
			Int64("player_id", playerID).
			Int64("quest_id", questID).
			Msg("quest completed")
	}
	return first, nil
}
