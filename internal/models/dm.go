package models

import "time"

// Conversation is a direct-message thread between exactly two users.
type Conversation struct {
	ID            int        `db:"id" json:"id"`
	User1ID       int        `db:"user1_id" json:"user1_id"`
	User2ID       int        `db:"user2_id" json:"user2_id"`
	LastMessage   string     `db:"last_message" json:"last_message"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ConversationSummary is the per-user view of a conversation.
type ConversationSummary struct {
	ConversationID int        `json:"conversation_id"`
	Participant    PublicUser `json:"participant"`
	LastMessage    string     `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	UnreadCount    int        `json:"unread_count"`
}

// DirectMessage is a message inside a conversation.
type DirectMessage struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
