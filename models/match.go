package models

import "time"

type MatchState string

const (
	MatchStatePending   MatchState = "pending"
	MatchStateCompleted MatchState = "completed"
)

// Match is the central node of the bracket dependency graph. Each of
// the two slots is populated either directly (PnParticipantID) or via a
// prerequisite link (PnSourceMatchID, "winner of match X"), never
// both at once. A legitimate bye match has exactly one populated slot
// and is completed automatically at construction time.
type Match struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	StageID      int    `json:"stage_id" db:"stage_id"`
	GroupID      *int   `json:"group_id,omitempty" db:"group_id"`
	Round        int    `json:"round" db:"round"`
	RoundName    string `json:"round_name" db:"round_name"`
	// BracketUID is the plan-local identifier ("R2M3") assigned during
	// bracket construction, unique per stage.
	BracketUID *string `json:"bracket_uid,omitempty" db:"bracket_uid"`

	P1ParticipantID *int `json:"p1_participant_id,omitempty" db:"p1_participant_id"`
	P1SourceMatchID *int `json:"p1_source_match_id,omitempty" db:"p1_source_match_id"`
	P2ParticipantID *int `json:"p2_participant_id,omitempty" db:"p2_participant_id"`
	P2SourceMatchID *int `json:"p2_source_match_id,omitempty" db:"p2_source_match_id"`

	// Score is a CSV of per-set score pairs, e.g. "6-4,3-6,7-5".
	Score       *string    `json:"score,omitempty" db:"score"`
	State       MatchState `json:"state" db:"state"`
	WinnerID    *int       `json:"winner_id,omitempty" db:"winner_id"`
	Bye         bool       `json:"bye" db:"bye"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// IsBye reports whether exactly one slot was ever populated, which is
// how synthetic bye matches are detected even without the flag.
func (m *Match) IsBye() bool {
	if m.Bye {
		return true
	}
	side1 := m.P1ParticipantID != nil || m.P1SourceMatchID != nil
	side2 := m.P2ParticipantID != nil || m.P2SourceMatchID != nil
	return side1 != side2
}

// LoserID returns the participant on the non-winning side, if both the
// winner and that side are resolved.
func (m *Match) LoserID() *int {
	if m.WinnerID == nil {
		return nil
	}
	if m.P1ParticipantID != nil && *m.P1ParticipantID == *m.WinnerID {
		return m.P2ParticipantID
	}
	if m.P2ParticipantID != nil && *m.P2ParticipantID == *m.WinnerID {
		return m.P1ParticipantID
	}
	return nil
}
