package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtline/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrParticipantConflict     = errors.New("user already registered for this tournament")
	ErrParticipantUserInvalid  = errors.New("participant references an unknown user")
	ErrParticipantSeedConflict = errors.New("participant seed already assigned")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Participant, error)
	SetSeed(ctx context.Context, exec SQLExecutor, id, seed int) error
	SetDisqualified(ctx context.Context, exec SQLExecutor, id int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `id, tournament_id, display_name, user1_id, user2_id, disqualified, seed, created_at`

func scanParticipant(row interface{ Scan(...interface{}) error }, p *models.Participant) error {
	return row.Scan(&p.ID, &p.TournamentID, &p.DisplayName, &p.User1ID, &p.User2ID, &p.Disqualified, &p.Seed, &p.CreatedAt)
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, display_name, user1_id, user2_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		p.TournamentID, p.DisplayName, p.User1ID, p.User2ID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrParticipantConflict
			case "23503":
				return ErrParticipantUserInvalid
			}
		}
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	p := &models.Participant{}
	if err := scanParticipant(r.getExecutor(exec).QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1 ORDER BY id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func (r *postgresParticipantRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Participant, error) {
	if len(ids) == 0 {
		return []*models.Participant{}, nil
	}
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = ANY($1) ORDER BY id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query participants by ids: %w", err)
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func collectParticipants(rows *sql.Rows) ([]*models.Participant, error) {
	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if err := scanParticipant(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) SetSeed(ctx context.Context, exec SQLExecutor, id, seed int) error {
	// Seeds are assigned exactly once; an already-seeded participant is
	// left untouched and reported.
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE participants SET seed = $1 WHERE id = $2 AND seed IS NULL`, seed, id)
	if err != nil {
		return fmt.Errorf("failed to set seed for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantSeedConflict)
}

func (r *postgresParticipantRepository) SetDisqualified(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE participants SET disqualified = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to disqualify participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
