package models

import "time"

// Message is a channel message. Immutable once created.
type Message struct {
	ID        int       `db:"id" json:"id"`
	ChannelID int       `db:"channel_id" json:"channel_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessagePage is one page of channel history, oldest first.
type MessagePage struct {
	Messages      []Message `json:"messages"`
	CurrentPage   int       `json:"currentPage"`
	TotalPages    int       `json:"totalPages"`
	TotalMessages int       `json:"totalMessages"`
}
