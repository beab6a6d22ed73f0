package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtline/tournament-engine/models"
)

var ErrGroupNotFound = errors.New("group not found")

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error)
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.Group, error)
	// MarkCompleted flips a pending group to completed and reports
	// whether this call performed the transition, so concurrent
	// completions act at most once.
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int) (bool, error)
	AssignParticipant(ctx context.Context, exec SQLExecutor, groupID, participantID int) error
	ListParticipantIDs(ctx context.Context, exec SQLExecutor, groupID int) ([]int, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	query := `
		INSERT INTO groups (stage_id, idx, state, scheduled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		group.StageID, group.Index, group.State, group.ScheduledAt,
	).Scan(&group.ID)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error) {
	query := `SELECT id, stage_id, idx, state, scheduled_at FROM groups WHERE id = $1`
	group := &models.Group{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&group.ID, &group.StageID, &group.Index, &group.State, &group.ScheduledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group %d: %w", id, err)
	}
	return group, nil
}

func (r *postgresGroupRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.Group, error) {
	query := `SELECT id, stage_id, idx, state, scheduled_at FROM groups WHERE stage_id = $1 ORDER BY idx ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for stage %d: %w", stageID, err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.StageID, &group.Index, &group.State, &group.ScheduledAt); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (r *postgresGroupRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int) (bool, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE groups SET state = $1 WHERE id = $2 AND state = $3`,
		models.GroupStateCompleted, id, models.GroupStatePending)
	if err != nil {
		return false, fmt.Errorf("failed to mark group %d completed: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresGroupRepository) AssignParticipant(ctx context.Context, exec SQLExecutor, groupID, participantID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx,
		`INSERT INTO group_participants (group_id, participant_id) VALUES ($1, $2)`,
		groupID, participantID)
	if err != nil {
		return fmt.Errorf("failed to assign participant %d to group %d: %w", participantID, groupID, err)
	}
	return nil
}

func (r *postgresGroupRepository) ListParticipantIDs(ctx context.Context, exec SQLExecutor, groupID int) ([]int, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		`SELECT participant_id FROM group_participants WHERE group_id = $1 ORDER BY participant_id ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants of group %d: %w", groupID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group participant row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
