package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/config"
	"osrs-game-engine/internal/game/rating"
	"osrs-game-engine/internal/repository"
)

// MaintenanceService runs the periodic background passes, currently
// just rating-uncertainty growth for inactive players.
type MaintenanceService struct {
	pool    *pgxpool.Pool
	battles *repository.BattleRepository
	model   *rating.Model
	cfg     config.MaintenanceConfig
}

// NewMaintenanceService creates a new MaintenanceService instance.
func NewMaintenanceService(
	pool *pgxpool.Pool,
	battles *repository.BattleRepository,
	ratingModel *rating.Model,
	cfg config.MaintenanceConfig,
) *MaintenanceService {
	return &MaintenanceService{
		pool:    pool,
		battles: battles,
		model:   ratingModel,
		cfg:     cfg,
	}
}

const stalePageSize = 500

// GrowInactiveUncertainty widens the rating uncertainty of players who
// have not fought for at least one inactivity period, one growth step
// per whole period elapsed. Each row update is guarded by the
// timestamp it was read at, so overlapping or repeated passes apply
// growth at most once per period. Returns the number of rows updated.
func (s *MaintenanceService) GrowInactiveUncertainty(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.InactivityPeriod)

	stale, err := s.battles.ListStaleRatings(ctx, cutoff, stalePageSize)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, br := range stale {
		since := br.RDUpdatedAt
		if br.LastBattle != nil && br.LastBattle.After(since) {
			since = *br.LastBattle
		}
		periods := int(now.Sub(since) / s.cfg.InactivityPeriod)
		if periods <= 0 {
			continue
		}

		grown := s.model.Grow(br.Uncertainty, periods)
		if grown == br.Uncertainty {
			continue
		}
		ok, err := s.battles.GrowUncertainty(ctx, br.PlayerID, br.Category, grown, br.RDUpdatedAt)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}

	if updated > 0 {
		log.Info().
			Int("updated", updated).
			Time("cutoff", cutoff).
			Msg("grew uncertainty for inactive ratings")
	}
	return updated, nil
}

// Run executes the maintenance pass on the configured interval until
// the context is cancelled.
func (s *MaintenanceService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.GrowInactiveUncertainty(ctx, now); err != nil {
				log.Error().Err(err).Msg("maintenance pass failed")
			}
		}
	}
}
