package models

import "time"

type GroupState string

const (
	GroupStatePending   GroupState = "pending"
	GroupStateCompleted GroupState = "completed"
)

// Group is a round-robin pool of participants within a stage. A group
// transitions to completed exactly when all of its matches are
// completed; the transition is checked by the progression engine, never
// pushed externally.
type Group struct {
	ID          int        `json:"id" db:"id"`
	StageID     int        `json:"stage_id" db:"stage_id"`
	Index       int        `json:"index" db:"idx"`
	State       GroupState `json:"state" db:"state"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
}

// Letter maps the 0-based group index to its display letter: A, B, C…
// Indexes beyond Z wrap into AA, AB and so on.
func (g *Group) Letter() string {
	idx := g.Index
	letter := ""
	for {
		letter = string(rune('A'+idx%26)) + letter
		idx = idx/26 - 1
		if idx < 0 {
			break
		}
	}
	return letter
}
