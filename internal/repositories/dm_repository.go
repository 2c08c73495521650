package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"team-chat-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// DirectMessageRepository abstracts conversations and their messages.
type DirectMessageRepository interface {
	CreateOrGetConversation(ctx context.Context, userID int, otherID int) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	ListConversations(ctx context.Context, userID int) ([]models.Conversation, error)
	CreateDirectMessage(ctx context.Context, conversationID int, senderID int, content string) (models.DirectMessage, error)
	ListMessages(ctx context.Context, conversationID int) ([]models.DirectMessage, error)
	UnreadCount(ctx context.Context, conversationID int, userID int) (int, error)
	MarkRead(ctx context.Context, conversationID int, userID int) error
}

// DirectMessageRepo is a sqlx implementation of DirectMessageRepository.
type DirectMessageRepo struct {
	db *sqlx.DB
}

// NewDirectMessageRepo constructs a DirectMessageRepo.
func NewDirectMessageRepo(db *sqlx.DB) *DirectMessageRepo {
	return &DirectMessageRepo{db: db}
}

// CreateOrGetConversation finds the thread between two users, creating it on
// first contact. Participants are stored in ascending id order.
func (r *DirectMessageRepo) CreateOrGetConversation(ctx context.Context, userID int, otherID int) (models.Conversation, error) {
	if userID == otherID {
		return models.Conversation{}, errors.New("cannot converse with self")
	}
	participants := []int{userID, otherID}
	sort.Ints(participants)
	user1, user2 := participants[0], participants[1]

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT id, user1_id, user2_id, last_message, last_message_at, created_at FROM conversations WHERE user1_id=$1 AND user2_id=$2`, user1, user2)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2) RETURNING id, user1_id, user2_id, last_message, last_message_at, created_at`, user1, user2).
		StructScan(&conv)
	return conv, err
}

// GetConversation fetches a conversation by id.
func (r *DirectMessageRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT id, user1_id, user2_id, last_message, last_message_at, created_at FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListConversations returns the user's threads, most recent activity first.
func (r *DirectMessageRepo) ListConversations(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT id, user1_id, user2_id, last_message, last_message_at, created_at FROM conversations
        WHERE user1_id=$1 OR user2_id=$1 ORDER BY last_message_at DESC NULLS LAST`, userID)
	return convs, err
}

// CreateDirectMessage stores a message and refreshes the thread summary.
func (r *DirectMessageRepo) CreateDirectMessage(ctx context.Context, conversationID int, senderID int, content string) (models.DirectMessage, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.DirectMessage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.DirectMessage
	if err = tx.QueryRowxContext(ctx, `INSERT INTO direct_messages (conversation_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id, conversation_id, sender_id, content, read, created_at`, conversationID, senderID, content).
		StructScan(&msg); err != nil {
		return models.DirectMessage{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE conversations SET last_message=$2, last_message_at=$3 WHERE id=$1`, conversationID, content, time.Now()); err != nil {
		return models.DirectMessage{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.DirectMessage{}, err
	}
	return msg, nil
}

// ListMessages returns the thread's messages oldest first.
func (r *DirectMessageRepo) ListMessages(ctx context.Context, conversationID int) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender_id, content, read, created_at FROM direct_messages WHERE conversation_id=$1 ORDER BY created_at ASC`, conversationID)
	return msgs, err
}

// UnreadCount counts messages the user has not read yet.
func (r *DirectMessageRepo) UnreadCount(ctx context.Context, conversationID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM direct_messages WHERE conversation_id=$1 AND sender_id<>$2 AND read = FALSE`, conversationID, userID)
	return count, err
}

// MarkRead marks everything the other participant sent as read.
func (r *DirectMessageRepo) MarkRead(ctx context.Context, conversationID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE direct_messages SET read = TRUE WHERE conversation_id=$1 AND sender_id<>$2 AND read = FALSE`, conversationID, userID)
	return err
}
