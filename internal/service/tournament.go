package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/repository"
)

// TournamentService manages single-elimination brackets. The bracket is
// padded to the next power of two with byes; bye matches complete
// immediately without a battle. Winners advance round by round, with
// the winner of round-r match p feeding slot p%2 of round-r+1 match
// p/2.
type TournamentService struct {
	pool        *pgxpool.Pool
	tournaments *repository.TournamentRepository
	unlocks     *repository.AchievementRepository
}

// NewTournamentService creates a new TournamentService instance.
func NewTournamentService(
	pool *pgxpool.Pool,
	tournaments *repository.TournamentRepository,
	unlocks *repository.AchievementRepository,
) *TournamentService {
	return &TournamentService{
		pool:        pool,
		tournaments: tournaments,
		unlocks:     unlocks,
	}
}

// bracketSize returns the smallest power of two holding n entrants.
func bracketSize(n int) int {
	size := 1
	for size < n {
		size *= 2
	}
	return size
}

// CreateTournament seeds a bracket from the participant list in entry
// order. Missing slots in the padded first round are byes and resolve
// immediately; later rounds start empty and fill as rounds advance.
func (s *TournamentService) CreateTournament(ctx context.Context, name, category string, participants []int64) (*model.Tournament, error) {
	if !validCategory[category] {
		return nil, ErrUnknownCategory
	}
	if len(participants) < 2 {
		return nil, ErrTooFewParticipants
	}
	seen := make(map[int64]bool, len(participants))
	for _, id := range participants {
		if seen[id] {
			return nil, ErrDuplicateParticipant
		}
		seen[id] = true
	}

	size := bracketSize(len(participants))
	rounds := 0
	for 1<<rounds < size {
		rounds++
	}

	var created *model.Tournament
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		tournaments := s.tournaments.WithTx(tx)

		t, err := tournaments.Create(ctx, name, category, rounds)
		if err != nil {
			return err
		}

		for pos := 0; pos < size/2; pos++ {
			m := &model.TournamentMatch{
				TournamentID: t.ID,
				Round:        1,
				Position:     pos,
				Status:       model.MatchStatusPending,
			}
			if i := 2 * pos; i < len(participants) {
				m.Player1 = &participants[i]
			}
			if i := 2*pos + 1; i < len(participants) {
				m.Player2 = &participants[i]
			}
			if _, err := tournaments.InsertMatch(ctx, m); err != nil {
				return err
			}
		}
		for round := 2; round <= rounds; round++ {
			for pos := 0; pos < size>>round; pos++ {
				m := &model.TournamentMatch{
					TournamentID: t.ID,
					Round:        round,
					Position:     pos,
					Status:       model.MatchStatusPending,
				}
				if _, err := tournaments.InsertMatch(ctx, m); err != nil {
					return err
				}
			}
		}

		if err := s.resolveByes(ctx, tx, t.ID, 1); err != nil {
			return err
		}
		created = t

		log.Info().
			Int64("tournament_id", t.ID).
			Str("name", name).
			Int("participants", len(participants)).
			Int("rounds", rounds).
			Msg("tournament created")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// resolveByes completes every pending match in a round that is missing
// a participant. The present player, if any, wins without a battle; a
// match with neither slot filled completes with no winner and carries
// the bye forward.
func (s *TournamentService) resolveByes(ctx context.Context, tx pgx.Tx, tournamentID int64, round int) error {
	tournaments := s.tournaments.WithTx(tx)

	matches, err := tournaments.ListMatches(ctx, tournamentID, round)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.Status != model.MatchStatusPending {
			continue
		}
		if m.Player1 != nil && m.Player2 != nil {
			continue
		}
		if m.Player1 != nil {
			m.WinnerID = m.Player1
		} else {
			m.WinnerID = m.Player2
		}
		m.Status = model.MatchStatusCompleted
		if err := tournaments.UpdateMatch(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleMatch moves a pending match with both participants seated to
// scheduled, marking it ready to be fought.
func (s *TournamentService) ScheduleMatch(ctx context.Context, matchID int64) (*model.TournamentMatch, error) {
	var scheduled *model.TournamentMatch
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		tournaments := s.tournaments.WithTx(tx)

		m, err := tournaments.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.Status == model.MatchStatusCompleted {
			return ErrMatchAlreadyComplete
		}
		if m.Player1 == nil || m.Player2 == nil {
			return ErrMatchNotReady
		}
		m.Status = model.MatchStatusScheduled
		if err := tournaments.UpdateMatch(ctx, m); err != nil {
			return err
		}
		scheduled = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scheduled, nil
}

// CompleteMatch records the winner of a scheduled match. The winner
// must be one of the two participants; the battle itself is recorded
// separately through the battle engine.
func (s *TournamentService) CompleteMatch(ctx context.Context, matchID, winnerID int64) (*model.TournamentMatch, error) {
	var completed *model.TournamentMatch
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		tournaments := s.tournaments.WithTx(tx)

		m, err := tournaments.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.Status == model.MatchStatusCompleted {
			return ErrMatchAlreadyComplete
		}
		if m.Status != model.MatchStatusScheduled {
			return ErrMatchNotScheduled
		}
		if (m.Player1 == nil || *m.Player1 != winnerID) && (m.Player2 == nil || *m.Player2 != winnerID) {
			return ErrInvalidWinner
		}
		m.WinnerID = &winnerID
		m.Status = model.MatchStatusCompleted
		if err := tournaments.UpdateMatch(ctx, m); err != nil {
			return err
		}
		completed = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// AdvanceRound closes the current round once every match in it has
// completed. Winners are seated in the next round and its byes
// resolve; closing the final round completes the tournament and
// crowns the champion.
func (s *TournamentService) AdvanceRound(ctx context.Context, tournamentID int64) (*model.Tournament, error) {
	var advanced *model.Tournament
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		tournaments := s.tournaments.WithTx(tx)

		t, err := tournaments.GetForUpdate(ctx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status == model.TournamentStatusCompleted {
			return ErrTournamentCompleted
		}

		unfinished, err := tournaments.CountUnfinished(ctx, t.ID, t.CurrentRound)
		if err != nil {
			return err
		}
		if unfinished > 0 {
			return ErrRoundIncomplete
		}

		if t.CurrentRound >= t.Rounds {
			if err := tournaments.SetRound(ctx, t.ID, t.CurrentRound, model.TournamentStatusCompleted); err != nil {
				return err
			}
			t.Status = model.TournamentStatusCompleted

			final, err := tournaments.GetMatchByPosition(ctx, t.ID, t.Rounds, 0)
			if err != nil {
				return err
			}
			if final.WinnerID != nil {
				if _, err := s.unlocks.WithTx(tx).Award(ctx, *final.WinnerID, "tournament_champion"); err != nil {
					return err
				}
			}
			advanced = t

			log.Info().
				Int64("tournament_id", t.ID).
				Msg("tournament completed")
			return nil
		}

		matches, err := tournaments.ListMatches(ctx, t.ID, t.CurrentRound)
		if err != nil {
			return err
		}
		for _, m := range matches {
			next, err := tournaments.GetMatchByPosition(ctx, t.ID, t.CurrentRound+1, m.Position/2)
			if err != nil {
				return err
			}
			if m.Position%2 == 0 {
				next.Player1 = m.WinnerID
			} else {
				next.Player2 = m.WinnerID
			}
			if err := tournaments.UpdateMatch(ctx, next); err != nil {
				return err
			}
		}
		if err := s.resolveByes(ctx, tx, t.ID, t.CurrentRound+1); err != nil {
			return err
		}

		if err := tournaments.SetRound(ctx, t.ID, t.CurrentRound+1, t.Status); err != nil {
			return err
		}
		t.CurrentRound++
		advanced = t

		log.Debug().
			Int64("tournament_id", t.ID).
			Int("round", t.CurrentRound).
			Msg("tournament round advanced")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return advanced, nil
}

// Bracket returns the tournament and its full match list, ordered by
// round then position.
func (s *TournamentService) Bracket(ctx context.Context, tournamentID int64) (*model.Tournament, []*model.TournamentMatch, error) {
	t, err := s.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	matches, err := s.tournaments.ListMatches(ctx, tournamentID, 0)
	if err != nil {
		return nil, nil, err
	}
	return t, matches, nil
}
