package models

import "time"

// Channel is a named, persistent group-messaging room.
type Channel struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsPrivate   bool      `db:"is_private" json:"is_private"`
	CreatedBy   int       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChannelDetail adds the member list for API responses.
type ChannelDetail struct {
	Channel
	Members []PublicUser `json:"members"`
}
