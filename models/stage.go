package models

// StageKind mirrors the stage_kind ENUM in the database.
type StageKind string

const (
	StageKindRoundRobin  StageKind = "round_robin"
	StageKindElimination StageKind = "elimination"
	// StageKindSingle is the only stage of a pure knockout tournament.
	StageKindSingle StageKind = "single"
)

// Stage is an ordered phase of a tournament. Stages are created once at
// tournament creation and never re-ordered; at most one stage per
// tournament is current at a time.
type Stage struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Kind         StageKind `json:"kind" db:"kind"`
	Position     int       `json:"position" db:"position"`
	Current      bool      `json:"current" db:"current"`

	Groups []Group `json:"groups,omitempty" db:"-"`
}

// IsKnockout reports whether matches in this stage participate in
// prerequisite-link propagation.
func (s *Stage) IsKnockout() bool {
	return s.Kind == StageKindElimination || s.Kind == StageKindSingle
}
