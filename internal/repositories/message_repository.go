package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"team-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for channel messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, channelID int, senderID int, content string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetChannelMessages(ctx context.Context, channelID int, page int, limit int) (models.MessagePage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a channel message and returns the record with its
// server-assigned id and timestamp.
func (r *MessageRepo) CreateMessage(ctx context.Context, channelID int, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (channel_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id, channel_id, sender_id, content, created_at`, channelID, senderID, content).
		StructScan(&msg)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, channel_id, sender_id, content, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetChannelMessages returns one page of history. Pages are counted from the
// newest message backwards; the returned slice is reordered oldest first.
func (r *MessageRepo) GetChannelMessages(ctx context.Context, channelID int, page int, limit int) (models.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, channel_id, sender_id, content, created_at FROM messages
        WHERE channel_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, channelID, limit, offset)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.MessagePage{}, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE channel_id=$1`, channelID); err != nil {
		return models.MessagePage{}, err
	}

	// Reverse to oldest first for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	totalPages := (total + limit - 1) / limit
	return models.MessagePage{
		Messages:      msgs,
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalMessages: total,
	}, nil
}
