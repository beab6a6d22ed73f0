package models

import "time"

// Activity is one structured audit record. Writing these is always
// best-effort: a failed audit write never aborts the operation it
// describes.
type Activity struct {
	ID          string    `json:"id" db:"id"`
	ActorID     *int      `json:"actor_id,omitempty" db:"actor_id"`
	Action      string    `json:"action" db:"action"`
	EntityType  string    `json:"entity_type" db:"entity_type"`
	EntityID    int       `json:"entity_id" db:"entity_id"`
	Description string    `json:"description" db:"description"`
	Success     bool      `json:"success" db:"success"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
