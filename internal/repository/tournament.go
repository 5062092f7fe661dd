package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for tournament operations.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
)

// TournamentRepository handles bracket persistence.
type TournamentRepository struct {
	q Querier
}

// NewTournamentRepository creates a new TournamentRepository instance.
func NewTournamentRepository(q Querier) *TournamentRepository {
	return &TournamentRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *TournamentRepository) WithTx(tx pgx.Tx) *TournamentRepository {
	return &TournamentRepository{q: tx}
}

// Create inserts a tournament shell.
func (r *TournamentRepository) Create(ctx context.Context, name, category string, rounds int) (*model.Tournament, error) {
	const query = `
		INSERT INTO tournaments (name, category, rounds, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, name, category, status, current_round, rounds, created_at, updated_at
	`

	var t model.Tournament
	err := r.q.QueryRow(ctx, query, name, category, rounds).Scan(
		&t.ID, &t.Name, &t.Category, &t.Status, &t.CurrentRound, &t.Rounds, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return &t, nil
}

// GetForUpdate retrieves a tournament with a row lock, serializing
// round advancement.
func (r *TournamentRepository) GetForUpdate(ctx context.Context, tournamentID int64) (*model.Tournament, error) {
	const query = `
		SELECT id, name, category, status, current_round, rounds, created_at, updated_at
		FROM tournaments
		WHERE id = $1
		FOR UPDATE
	`

	var t model.Tournament
	err := r.q.QueryRow(ctx, query, tournamentID).Scan(
		&t.ID, &t.Name, &t.Category, &t.Status, &t.CurrentRound, &t.Rounds, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return &t, nil
}

// Get retrieves a tournament.
func (r *TournamentRepository) Get(ctx context.Context, tournamentID int64) (*model.Tournament, error) {
	const query = `
		SELECT id, name, category, status, current_round, rounds, created_at, updated_at
		FROM tournaments
		WHERE id = $1
	`

	var t model.Tournament
	err := r.q.QueryRow(ctx, query, tournamentID).Scan(
		&t.ID, &t.Name, &t.Category, &t.Status, &t.CurrentRound, &t.Rounds, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return &t, nil
}

// SetRound moves a tournament to the given round and status.
func (r *TournamentRepository) SetRound(ctx context.Context, tournamentID int64, round int, status string) error {
	const query = `
		UPDATE tournaments
		SET current_round = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, tournamentID, round, status)
	if err != nil {
		return fmt.Errorf("failed to set round: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func scanMatch(row pgx.Row) (*model.TournamentMatch, error) {
	var m model.TournamentMatch
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.Position,
		&m.Player1, &m.Player2, &m.WinnerID, &m.Status,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const matchColumns = `id, tournament_id, round, position, player1_id, player2_id, winner_id, status`

// InsertMatch writes one bracket slot.
func (r *TournamentRepository) InsertMatch(ctx context.Context, m *model.TournamentMatch) (*model.TournamentMatch, error) {
	const query = `
		INSERT INTO tournament_matches (tournament_id, round, position, player1_id, player2_id, winner_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + matchColumns

	match, err := scanMatch(r.q.QueryRow(ctx, query,
		m.TournamentID, m.Round, m.Position, m.Player1, m.Player2, m.WinnerID, m.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}
	return match, nil
}

// GetMatch retrieves one match with a row lock.
func (r *TournamentRepository) GetMatch(ctx context.Context, matchID int64) (*model.TournamentMatch, error) {
	const query = `SELECT ` + matchColumns + ` FROM tournament_matches WHERE id = $1 FOR UPDATE`

	match, err := scanMatch(r.q.QueryRow(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// GetMatchByPosition retrieves the match at a bracket coordinate.
func (r *TournamentRepository) GetMatchByPosition(ctx context.Context, tournamentID int64, round, position int) (*model.TournamentMatch, error) {
	const query = `
		SELECT ` + matchColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1 AND round = $2 AND position = $3
	`

	match, err := scanMatch(r.q.QueryRow(ctx, query, tournamentID, round, position))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// ListMatches retrieves a round's matches in bracket order; round 0
// means every round.
func (r *TournamentRepository) ListMatches(ctx context.Context, tournamentID int64, round int) ([]*model.TournamentMatch, error) {
	const query = `
		SELECT ` + matchColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1 AND ($2 = 0 OR round = $2)
		ORDER BY round, position
	`

	rows, err := r.q.Query(ctx, query, tournamentID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*model.TournamentMatch
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

// UpdateMatch persists a match's players, winner and status.
func (r *TournamentRepository) UpdateMatch(ctx context.Context, m *model.TournamentMatch) error {
	const query = `
		UPDATE tournament_matches
		SET player1_id = $2, player2_id = $3, winner_id = $4, status = $5
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, m.ID, m.Player1, m.Player2, m.WinnerID, m.Status)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// CountUnfinished counts a round's matches not yet completed.
func (r *TournamentRepository) CountUnfinished(ctx context.Context, tournamentID int64, round int) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM tournament_matches
		WHERE tournament_id = $1 AND round = $2 AND status <> 'completed'
	`

	var count int
	if err := r.q.QueryRow(ctx, query, tournamentID, round).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches: %w", err)
	}
	return count, nil
}
