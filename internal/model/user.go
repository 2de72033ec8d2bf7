// Package model defines the data structures used throughout the application.
//
// The `db:"..."` tags are read by sqlx when a row is scanned into a struct,
// so every query result is decoded once, at the repository boundary, into a
// named and typed field.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is a bcrypt hash and never leaves the server: the json tag is
// "-" so it can't leak through an API response by accident.
//
// GitHubID is nil for accounts created through the sign-up form. Accounts
// created through "Sign in with GitHub" carry the numeric GitHub user ID and
// an empty PasswordHash, so password login is impossible for them.
type User struct {
	ID           string    `json:"id"          db:"id"`
	Username     string    `json:"username"    db:"username"`
	DisplayName  string    `json:"displayName" db:"display_name"`
	Email        string    `json:"email"       db:"email"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	GitHubID     *int64    `json:"-"           db:"github_id"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
}

// Identity is the authenticated identity stored in a session.
// The presence of a session is reported separately (see session.Manager),
// so a zero Identity never stands for "logged out".
type Identity struct {
	Username    string `json:"username"`
	DisplayID   string `json:"displayId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Identity builds the session payload for this user.
func (u *User) Identity() Identity {
	return Identity{
		Username:    u.Username,
		DisplayID:   u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
	}
}
