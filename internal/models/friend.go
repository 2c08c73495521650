package models

import "time"

// FriendRequest is a pending request from one user to another.
type FriendRequest struct {
	ID        int       `db:"id" json:"id"`
	FromID    int       `db:"from_id" json:"from_id"`
	ToID      int       `db:"to_id" json:"to_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FriendRequestSummary joins the sender's public info for the pending list.
type FriendRequestSummary struct {
	RequestID int       `db:"id" json:"request_id"`
	From      PublicUser `json:"from"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
