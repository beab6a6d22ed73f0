package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusRegistration TournamentStatus = "registration"
	TournamentStatusActive       TournamentStatus = "active"
	TournamentStatusCompleted    TournamentStatus = "completed"
	TournamentStatusCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	Status      TournamentStatus `json:"status" db:"status"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`

	// AdvancePerGroup is how many participants qualify from each
	// round-robin group into the elimination stage. Zero for pure
	// knockout tournaments.
	AdvancePerGroup int `json:"advance_per_group" db:"advance_per_group"`

	// AllowWithdrawal permits deleting a registration before stage
	// participants have been generated.
	AllowWithdrawal bool `json:"allow_withdrawal" db:"allow_withdrawal"`

	// VirtualByes selects how first-round byes are expressed: as
	// auto-completed bye matches (true) or by advancing the lone
	// participant directly into the downstream slot (false). One
	// tournament uses one strategy throughout.
	VirtualByes bool `json:"virtual_byes" db:"virtual_byes"`

	WinnerParticipantID   *int `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	RunnerUpParticipantID *int `json:"runner_up_participant_id,omitempty" db:"runner_up_participant_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Linked entities, populated by services, not mapped directly.
	Stages       []Stage       `json:"stages,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}
