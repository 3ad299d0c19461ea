package domain

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DateJoined   time.Time `json:"date_joined"`
}

func (u User) Actor() Actor { return Actor{ID: u.ID, Username: u.Username} }
