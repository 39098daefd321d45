package model

import "time"

const MaxDisplayNameLength = 40

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Participant is how the user is named in join notices and activity logs.
func (u User) Participant() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
