package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtline/tournament-engine/models"
)

var (
	ErrStageParticipantNotFound = errors.New("stage participant not found")
	// ErrStageParticipantResolved reports a resolution race: the
	// placeholder is already bound to a different participant. This is
	// fatal to the operation, never silently ignored.
	ErrStageParticipantResolved = errors.New("stage participant already resolved to a different participant")
)

type StageParticipantRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, placeholders []*models.StageParticipant) error
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.StageParticipant, error)
	// Resolve binds a placeholder to a concrete participant exactly
	// once. Re-resolving to the same participant is a no-op; resolving
	// to a different one fails with ErrStageParticipantResolved.
	Resolve(ctx context.Context, exec SQLExecutor, stageID int, label string, participantID int) error
	AssignSeed(ctx context.Context, exec SQLExecutor, stageID int, label string, seed int) error
}

type postgresStageParticipantRepository struct {
	db *sql.DB
}

func NewPostgresStageParticipantRepository(db *sql.DB) StageParticipantRepository {
	return &postgresStageParticipantRepository{db: db}
}

func (r *postgresStageParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageParticipantRepository) CreateBatch(ctx context.Context, exec SQLExecutor, placeholders []*models.StageParticipant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO stage_participants (stage_id, label, seed, participant_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	for _, sp := range placeholders {
		if err := executor.QueryRowContext(ctx, query, sp.StageID, sp.Label, sp.Seed, sp.ParticipantID).Scan(&sp.ID); err != nil {
			return fmt.Errorf("failed to insert stage participant %q: %w", sp.Label, err)
		}
	}
	return nil
}

func (r *postgresStageParticipantRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.StageParticipant, error) {
	query := `
		SELECT id, stage_id, label, seed, participant_id
		FROM stage_participants WHERE stage_id = $1 ORDER BY label ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage participants for stage %d: %w", stageID, err)
	}
	defer rows.Close()

	placeholders := make([]*models.StageParticipant, 0)
	for rows.Next() {
		sp := &models.StageParticipant{}
		if err := rows.Scan(&sp.ID, &sp.StageID, &sp.Label, &sp.Seed, &sp.ParticipantID); err != nil {
			return nil, fmt.Errorf("failed to scan stage participant row: %w", err)
		}
		placeholders = append(placeholders, sp)
	}
	return placeholders, rows.Err()
}

func (r *postgresStageParticipantRepository) Resolve(ctx context.Context, exec SQLExecutor, stageID int, label string, participantID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE stage_participants
		SET participant_id = $1
		WHERE stage_id = $2 AND label = $3 AND participant_id IS NULL`,
		participantID, stageID, label)
	if err != nil {
		return fmt.Errorf("failed to resolve stage participant %q: %w", label, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: distinguish missing, already-ours, and raced.
	var current sql.NullInt64
	err = executor.QueryRowContext(ctx,
		`SELECT participant_id FROM stage_participants WHERE stage_id = $1 AND label = $2`,
		stageID, label).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStageParticipantNotFound
		}
		return fmt.Errorf("failed to re-read stage participant %q: %w", label, err)
	}
	if current.Valid && int(current.Int64) == participantID {
		return nil // idempotent re-resolution
	}
	return fmt.Errorf("%w: stage %d label %q", ErrStageParticipantResolved, stageID, label)
}

func (r *postgresStageParticipantRepository) AssignSeed(ctx context.Context, exec SQLExecutor, stageID int, label string, seed int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE stage_participants SET seed = $1 WHERE stage_id = $2 AND label = $3`,
		seed, stageID, label)
	if err != nil {
		return fmt.Errorf("failed to assign seed to stage participant %q: %w", label, err)
	}
	return checkAffectedRows(result, ErrStageParticipantNotFound)
}
