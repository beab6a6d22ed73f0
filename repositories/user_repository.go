package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtline/tournament-engine/models"
	"github.com/lib/pq"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.User, error)
	UpdateRating(ctx context.Context, exec SQLExecutor, id int, ratingValue float64, category string) error
	// RecomputeRanksForLetters reassigns the ordinal rank (by rating,
	// descending) within each given category letter. Scoped to the
	// letters touched by a match; a full-table recompute is unnecessary.
	RecomputeRanksForLetters(ctx context.Context, exec SQLExecutor, letters []string) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, first_name, last_name, nickname, email, rating, rating_category, rating_rank, created_at`

func scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	return row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Nickname, &u.Email,
		&u.Rating, &u.RatingCategory, &u.RatingRank, &u.CreatedAt)
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u := &models.User{}
	if err := scanUser(r.getExecutor(exec).QueryRowContext(ctx, query, id), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user %d: %w", id, err)
	}
	return u, nil
}

func (r *postgresUserRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query users by ids: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, len(ids))
	for rows.Next() {
		u := &models.User{}
		if err := scanUser(rows, u); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresUserRepository) UpdateRating(ctx context.Context, exec SQLExecutor, id int, ratingValue float64, category string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE users SET rating = $1, rating_category = $2 WHERE id = $3`,
		ratingValue, category, id)
	if err != nil {
		return fmt.Errorf("failed to update rating of user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) RecomputeRanksForLetters(ctx context.Context, exec SQLExecutor, letters []string) error {
	if len(letters) == 0 {
		return nil
	}
	query := `
		UPDATE users u
		SET rating_rank = ranked.rnk
		FROM (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY LEFT(rating_category, 1) ORDER BY rating DESC, id ASC) AS rnk
			FROM users
			WHERE LEFT(rating_category, 1) = ANY($1)
		) ranked
		WHERE u.id = ranked.id`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, pq.Array(letters)); err != nil {
		return fmt.Errorf("failed to recompute ranks for letters %v: %w", letters, err)
	}
	return nil
}
