package models

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int        `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsOnline     bool       `db:"is_online" json:"is_online"`
	LastSeen     *time.Time `db:"last_seen" json:"last_seen,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// PublicUser is the projection returned to other users.
type PublicUser struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	IsOnline bool   `db:"is_online" json:"is_online"`
}
