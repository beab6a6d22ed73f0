package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/courtline/tournament-engine/models"
)

type ActivityRepository interface {
	Insert(ctx context.Context, activity *models.Activity) error
	ListRecent(ctx context.Context, limit int) ([]*models.Activity, error)
}

type postgresActivityRepository struct {
	db *sql.DB
}

func NewPostgresActivityRepository(db *sql.DB) ActivityRepository {
	return &postgresActivityRepository{db: db}
}

func (r *postgresActivityRepository) Insert(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (id, actor_id, action, entity_type, entity_id, description, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		activity.ID, activity.ActorID, activity.Action, activity.EntityType,
		activity.EntityID, activity.Description, activity.Success,
	).Scan(&activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (r *postgresActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, description, success, created_at
		FROM activities ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*models.Activity, 0)
	for rows.Next() {
		a := &models.Activity{}
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &a.EntityType, &a.EntityID,
			&a.Description, &a.Success, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
