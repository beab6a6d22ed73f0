package models

import "time"

// DefaultRating is assumed for users whose rating has never been set
// (or is invalid) when a match is rated.
const DefaultRating = 900.0

type User struct {
	ID             int       `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Nickname       *string   `json:"nickname,omitempty"`
	Email          string    `json:"email"`
	Rating         float64   `json:"rating"`
	RatingCategory string    `json:"rating_category"`
	RatingRank     *int      `json:"rating_rank,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) DisplayName() string {
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
