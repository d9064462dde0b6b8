package models

import "time"

// UserRecord is the persisted favourites record of one user.
type UserRecord struct {
	Email     string    `json:"email"`
	Favourite []int     `json:"favourite"`
	UpdatedAt time.Time `json:"updated_at"`
}
