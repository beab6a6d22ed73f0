package models

import "time"

// Participant is one competitive unit: a single player or a doubles
// team of two users. Disqualified participants are never deleted so
// that bracket integrity is preserved.
type Participant struct {
	ID           int     `json:"id" db:"id"`
	TournamentID int     `json:"tournament_id" db:"tournament_id"`
	DisplayName  string  `json:"display_name" db:"display_name"`
	User1ID      *int    `json:"user1_id,omitempty" db:"user1_id"`
	User2ID      *int    `json:"user2_id,omitempty" db:"user2_id"`
	Disqualified bool    `json:"disqualified" db:"disqualified"`
	// Seed is assigned once, during seeding computation after the group
	// stage (or at registration order for pure knockout tournaments).
	Seed      *int      `json:"seed,omitempty" db:"seed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	User1 *User `json:"user1,omitempty" db:"-"`
	User2 *User `json:"user2,omitempty" db:"-"`
}

// UserIDs returns the linked user ids, skipping unset slots.
func (p *Participant) UserIDs() []int {
	ids := make([]int, 0, 2)
	if p.User1ID != nil {
		ids = append(ids, *p.User1ID)
	}
	if p.User2ID != nil {
		ids = append(ids, *p.User2ID)
	}
	return ids
}
