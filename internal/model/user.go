package model

import "time"

// User is a directory identity record. Owned by the directory store; the auth
// core reads identity and never mutates these fields directly.
type User struct {
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	DisplayName  *string    `json:"display_name,omitempty"`
	FirstName    *string    `json:"first_name,omitempty"`
	LastName     *string    `json:"last_name,omitempty"`
	Avatar       []byte     `json:"-"`
	CreationDate time.Time  `json:"creation_date"`
	PasswordHash string     `json:"-"`
	TotpSecret   *string    `json:"-"`
	MfaType      *string    `json:"-"`
	LockedUntil  *time.Time `json:"-"`
}

// Group is the authorization unit. Membership in the configured admin group
// gates access to the protected API surface.
type Group struct {
	GroupID     int    `json:"group_id"`
	DisplayName string `json:"display_name"`
}

// Membership joins a user to a group. Rows cascade away with either side.
type Membership struct {
	UserID  string `json:"user_id"`
	GroupID int    `json:"group_id"`
}

// UserSummary is the listing shape exposed by the admin API.
type UserSummary struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"display_name,omitempty"`
	CreationDate time.Time `json:"creation_date"`
}
