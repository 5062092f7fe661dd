package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/game/rating"
	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
)

var validCategory = map[string]bool{
	model.BattleCategoryDuel:     true,
	model.BattleCategoryCreature: true,
	model.BattleCategoryTourney:  true,
}

// BattleService records battles and maintains per-category ratings.
// Both participants' rating rows move in one transaction, under the
// pair lock, so a crash mid-battle never leaves one side updated.
type BattleService struct {
	pool       *pgxpool.Pool
	battles    *repository.BattleRepository
	unlocks    *repository.AchievementRepository
	model      *rating.Model
	playerLock *lock.EntityLock
}

// NewBattleService creates a new BattleService instance.
func NewBattleService(
	pool *pgxpool.Pool,
	battles *repository.BattleRepository,
	unlocks *repository.AchievementRepository,
	ratingModel *rating.Model,
	playerLock *lock.EntityLock,
) *BattleService {
	return &BattleService{
		pool:       pool,
		battles:    battles,
		unlocks:    unlocks,
		model:      ratingModel,
		playerLock: playerLock,
	}
}

// RecordBattle records a finished battle between playerA and playerB
// and applies the rating update to both. winnerID 0 means a draw;
// otherwise it must be one of the participants. Rating updates for
// both sides are computed from the pre-battle states, so the order the
// rows are written in does not matter.
func (s *BattleService) RecordBattle(ctx context.Context, playerA, playerB int64, category string, winnerID int64, durationSeconds int, outcome model.BattleOutcome) (*model.BattleRecord, error) {
	if !validCategory[category] {
		return nil, ErrUnknownCategory
	}
	if playerA == playerB {
		return nil, ErrSameParticipant
	}
	if winnerID != 0 && winnerID != playerA && winnerID != playerB {
		return nil, ErrInvalidWinner
	}

	var recorded *model.BattleRecord
	err := s.playerLock.WithPairLock(playerA, playerB, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			battles := s.battles.WithTx(tx)

			payload, err := json.Marshal(outcome)
			if err != nil {
				return fmt.Errorf("failed to encode battle outcome: %w", err)
			}
			rec := &model.BattleRecord{
				Category: category,
				PlayerA:  playerA,
				PlayerB:  playerB,
				Duration: durationSeconds,
				Payload:  payload,
			}
			if winnerID != 0 {
				rec.WinnerID = &winnerID
			}
			recorded, err = battles.InsertRecord(ctx, rec)
			if err != nil {
				return err
			}

			// Lock both rating rows in ascending id order, same as
			// the pair lock.
			first, second := playerA, playerB
			if second < first {
				first, second = second, first
			}
			p := s.model.Params()
			ratings := map[int64]*model.BattleRating{}
			for _, id := range []int64{first, second} {
				br, err := battles.GetOrInitRating(ctx, id, category, p.Initial, p.InitialUncertainty)
				if err != nil {
					return err
				}
				ratings[id] = br
			}

			ra, rb := ratings[playerA], ratings[playerB]
			preA := rating.State{Rating: ra.Rating, Uncertainty: ra.Uncertainty}
			preB := rating.State{Rating: rb.Rating, Uncertainty: rb.Uncertainty}

			scoreA := ScoreFor(winnerID, playerA)
			scoreB := ScoreFor(winnerID, playerB)

			nextA := s.model.Update(preA, preB, scoreA)
			nextB := s.model.Update(preB, preA, scoreB)
			ra.Rating, ra.Uncertainty = nextA.Rating, nextA.Uncertainty
			rb.Rating, rb.Uncertainty = nextB.Rating, nextB.Uncertainty

			applyResult(ra, scoreA, outcome.DamageByA, outcome.DamageByB)
			applyResult(rb, scoreB, outcome.DamageByB, outcome.DamageByA)

			for _, br := range []*model.BattleRating{ratings[first], ratings[second]} {
				if err := battles.SaveRating(ctx, br); err != nil {
					return err
				}
			}

			if winnerID != 0 {
				winner := ratings[winnerID]
				if err := s.awardBattleUnlocks(ctx, tx, winner); err != nil {
					return err
				}
			}

			log.Debug().
				Int64("player_a", playerA).
				Int64("player_b", playerB).
				Str("category", category).
				Int64("winner_id", winnerID).
				Float64("rating_a", ra.Rating).
				Float64("rating_b", rb.Rating).
				Msg("battle recorded")
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

// ScoreFor maps a battle result to the score of one participant.
func ScoreFor(winnerID, playerID int64) float64 {
	switch winnerID {
	case 0:
		return rating.ScoreDraw
	case playerID:
		return rating.ScoreWin
	default:
		return rating.ScoreLoss
	}
}

// applyResult updates the win/loss/draw counters, streak, and damage
// totals on a rating row. A draw leaves the streak where it was.
func applyResult(br *model.BattleRating, score float64, dealt, taken int64) {
	switch score {
	case rating.ScoreWin:
		br.Wins++
		br.Streak++
		if br.Streak > br.BestStreak {
			br.BestStreak = br.Streak
		}
	case rating.ScoreLoss:
		br.Losses++
		br.Streak = 0
	default:
		br.Draws++
	}
	br.DamageDealt += dealt
	br.DamageTaken += taken
}

var streakUnlocks = map[int]string{
	5:  "win_streak_5",
	10: "win_streak_10",
	25: "win_streak_25",
}

var winCountUnlocks = map[int]string{
	1:    "first_victory",
	10:   "victories_10",
	100:  "victories_100",
	1000: "victories_1000",
}

func (s *BattleService) awardBattleUnlocks(ctx context.Context, tx pgx.Tx, winner *model.BattleRating) error {
	unlocks := s.unlocks.WithTx(tx)

	if key, ok := winCountUnlocks[winner.Wins]; ok {
		if _, err := unlocks.Award(ctx, winner.PlayerID, key); err != nil {
			return err
		}
	}
	if key, ok := streakUnlocks[winner.Streak]; ok {
		if _, err := unlocks.Award(ctx, winner.PlayerID, key); err != nil {
			return err
		}
	}
	return nil
}

// GetRating returns a player's rating in one category.
func (s *BattleService) GetRating(ctx context.Context, playerID int64, category string) (*model.BattleRating, error) {
	if !validCategory[category] {
		return nil, ErrUnknownCategory
	}
	return s.battles.GetRating(ctx, playerID, category)
}

// ListRatings returns all of a player's rating rows.
func (s *BattleService) ListRatings(ctx context.Context, playerID int64) ([]*model.BattleRating, error) {
	return s.battles.ListRatings(ctx, playerID)
}

// History returns a player's recent battles, optionally filtered by
// category ("" for all), newest first.
func (s *BattleService) History(ctx context.Context, playerID int64, category string, limit int) ([]*model.BattleRecord, error) {
	if category != "" && !validCategory[category] {
		return nil, ErrUnknownCategory
	}
	return s.battles.ListRecords(ctx, playerID, category, limit)
}
