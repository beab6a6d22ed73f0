package models

// StageParticipant is a placeholder slot in the elimination stage,
// identified by a label ("A1", "B2") or a seed number, bound to a real
// participant exactly once, either via direct group-rank mapping or
// via computed global seeding. (stage_id, label) and (stage_id, seed)
// are unique.
type StageParticipant struct {
	ID            int    `json:"id" db:"id"`
	StageID       int    `json:"stage_id" db:"stage_id"`
	Label         string `json:"label" db:"label"`
	Seed          *int   `json:"seed,omitempty" db:"seed"`
	ParticipantID *int   `json:"participant_id,omitempty" db:"participant_id"`
}

// Resolved reports whether the placeholder has been bound to a real
// participant.
func (sp *StageParticipant) Resolved() bool {
	return sp.ParticipantID != nil
}
