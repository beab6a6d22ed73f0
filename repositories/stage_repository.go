package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtline/tournament-engine/models"
)

var ErrStageNotFound = errors.New("stage not found")

type StageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Stage, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Stage, error)
	FindByKind(ctx context.Context, exec SQLExecutor, tournamentID int, kind models.StageKind) (*models.Stage, error)
	SetCurrent(ctx context.Context, exec SQLExecutor, tournamentID, stageID int) error
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStageRepository) Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	query := `
		INSERT INTO stages (tournament_id, kind, position, current)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		stage.TournamentID, stage.Kind, stage.Position, stage.Current,
	).Scan(&stage.ID)
	if err != nil {
		return fmt.Errorf("failed to insert stage: %w", err)
	}
	return nil
}

func (r *postgresStageRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Stage, error) {
	query := `SELECT id, tournament_id, kind, position, current FROM stages WHERE id = $1`
	stage := &models.Stage{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&stage.ID, &stage.TournamentID, &stage.Kind, &stage.Position, &stage.Current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to scan stage %d: %w", id, err)
	}
	return stage, nil
}

func (r *postgresStageRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Stage, error) {
	query := `
		SELECT id, tournament_id, kind, position, current
		FROM stages WHERE tournament_id = $1 ORDER BY position ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	stages := make([]*models.Stage, 0)
	for rows.Next() {
		stage := &models.Stage{}
		if err := rows.Scan(&stage.ID, &stage.TournamentID, &stage.Kind, &stage.Position, &stage.Current); err != nil {
			return nil, fmt.Errorf("failed to scan stage row: %w", err)
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (r *postgresStageRepository) FindByKind(ctx context.Context, exec SQLExecutor, tournamentID int, kind models.StageKind) (*models.Stage, error) {
	query := `
		SELECT id, tournament_id, kind, position, current
		FROM stages WHERE tournament_id = $1 AND kind = $2`
	stage := &models.Stage{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, kind).Scan(
		&stage.ID, &stage.TournamentID, &stage.Kind, &stage.Position, &stage.Current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to find %s stage for tournament %d: %w", kind, tournamentID, err)
	}
	return stage, nil
}

func (r *postgresStageRepository) SetCurrent(ctx context.Context, exec SQLExecutor, tournamentID, stageID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx,
		`UPDATE stages SET current = false WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to clear current stage for tournament %d: %w", tournamentID, err)
	}
	result, err := executor.ExecContext(ctx,
		`UPDATE stages SET current = true WHERE id = $1 AND tournament_id = $2`, stageID, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to set current stage %d: %w", stageID, err)
	}
	return checkAffectedRows(result, ErrStageNotFound)
}
