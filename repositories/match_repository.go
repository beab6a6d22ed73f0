package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtline/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchParticipantInvalid = errors.New("match participant conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error)
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.Match, error)
	CountPendingByGroup(ctx context.Context, exec SQLExecutor, groupID int) (int, error)
	// Complete flips a pending match to completed and reports whether
	// this call performed the transition. A match that is already
	// completed is left untouched, which keeps retried completions and
	// concurrent submissions idempotent.
	Complete(ctx context.Context, exec SQLExecutor, id int, score *string, winnerID *int, completedAt time.Time) (bool, error)
	// UpdateScoreWinner rewrites the score and winner of a match
	// without touching its state. Used for the post-completion edit
	// path, which deliberately does not re-propagate.
	UpdateScoreWinner(ctx context.Context, exec SQLExecutor, id int, score *string, winnerID *int) error
	// AdvanceWinner fills the winner of a completed match into every
	// downstream slot that names it as a source, clearing that slot's
	// prerequisite marker. Already-filled slots are skipped, so the
	// propagation is safe to run more than once. Returns the ids of the
	// matches whose slots were filled by this call.
	AdvanceWinner(ctx context.Context, exec SQLExecutor, sourceMatchID, winnerID int) ([]int, error)
	// FindDependent returns matches that name the given match as a
	// prerequisite for either slot.
	FindDependent(ctx context.Context, exec SQLExecutor, sourceMatchID int) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, stage_id, group_id, round, round_name, bracket_uid,
	p1_participant_id, p1_source_match_id, p2_participant_id, p2_source_match_id,
	score, state, winner_id, bye, completed_at, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.StageID, &m.GroupID, &m.Round, &m.RoundName, &m.BracketUID,
		&m.P1ParticipantID, &m.P1SourceMatchID, &m.P2ParticipantID, &m.P2SourceMatchID,
		&m.Score, &m.State, &m.WinnerID, &m.Bye, &m.CompletedAt, &m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, stage_id, group_id, round, round_name, bracket_uid,
			 p1_participant_id, p1_source_match_id, p2_participant_id, p2_source_match_id,
			 score, state, winner_id, bye, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.TournamentID, match.StageID, match.GroupID, match.Round, match.RoundName, match.BracketUID,
		match.P1ParticipantID, match.P1SourceMatchID, match.P2ParticipantID, match.P2SourceMatchID,
		match.Score, match.State, match.WinnerID, match.Bye, match.CompletedAt,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrMatchParticipantInvalid
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m := &models.Match{}
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round ASC, id ASC`
	return r.queryMatches(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE group_id = $1 ORDER BY round ASC, id ASC`
	return r.queryMatches(ctx, exec, query, groupID)
}

func (r *postgresMatchRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE stage_id = $1 ORDER BY round ASC, id ASC`
	return r.queryMatches(ctx, exec, query, stageID)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, arg interface{}) ([]*models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := scanMatch(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CountPendingByGroup(ctx context.Context, exec SQLExecutor, groupID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE group_id = $1 AND state = $2`,
		groupID, models.MatchStatePending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending matches of group %d: %w", groupID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id int, score *string, winnerID *int, completedAt time.Time) (bool, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `
		UPDATE matches
		SET score = $1, winner_id = $2, state = $3, completed_at = $4
		WHERE id = $5 AND state = $6`,
		score, winnerID, models.MatchStateCompleted, completedAt, id, models.MatchStatePending)
	if err != nil {
		return false, fmt.Errorf("failed to complete match %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresMatchRepository) UpdateScoreWinner(ctx context.Context, exec SQLExecutor, id int, score *string, winnerID *int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE matches SET score = $1, winner_id = $2 WHERE id = $3`, score, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to update score of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) AdvanceWinner(ctx context.Context, exec SQLExecutor, sourceMatchID, winnerID int) ([]int, error) {
	executor := r.getExecutor(exec)
	advanced := make([]int, 0, 1)

	for _, q := range []string{
		`UPDATE matches
		 SET p1_participant_id = $1, p1_source_match_id = NULL
		 WHERE p1_source_match_id = $2 AND p1_participant_id IS NULL
		 RETURNING id`,
		`UPDATE matches
		 SET p2_participant_id = $1, p2_source_match_id = NULL
		 WHERE p2_source_match_id = $2 AND p2_participant_id IS NULL
		 RETURNING id`,
	} {
		rows, err := executor.QueryContext(ctx, q, winnerID, sourceMatchID)
		if err != nil {
			return nil, fmt.Errorf("failed to advance winner of match %d: %w", sourceMatchID, err)
		}
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan advanced match id: %w", err)
			}
			advanced = append(advanced, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return advanced, nil
}

func (r *postgresMatchRepository) FindDependent(ctx context.Context, exec SQLExecutor, sourceMatchID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE p1_source_match_id = $1 OR p2_source_match_id = $1
		ORDER BY id ASC`
	return r.queryMatches(ctx, exec, query, sourceMatchID)
}
