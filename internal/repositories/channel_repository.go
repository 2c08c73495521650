package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"team-chat-service/internal/models"
)

var ErrChannelNotFound = errors.New("channel not found")
var ErrChannelExists = errors.New("channel already exists")
var ErrAlreadyMember = errors.New("already a member")

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, name, description string, isPrivate bool, createdBy int) (models.Channel, error)
	GetChannel(ctx context.Context, channelID int) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
	ListMembers(ctx context.Context, channelID int) ([]models.PublicUser, error)
	IsMember(ctx context.Context, channelID int, userID int) (bool, error)
	AddMember(ctx context.Context, channelID int, userID int) error
	RemoveMember(ctx context.Context, channelID int, userID int) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// CreateChannel creates a channel and enrolls the creator atomically.
func (r *ChannelRepo) CreateChannel(ctx context.Context, name, description string, isPrivate bool, createdBy int) (models.Channel, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channels WHERE name=$1)`, name); err != nil {
		return models.Channel{}, err
	}
	if exists {
		return models.Channel{}, ErrChannelExists
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var channel models.Channel
	if err = tx.QueryRowxContext(ctx, `INSERT INTO channels (name, description, is_private, created_by) VALUES ($1, $2, $3, $4) RETURNING id, name, description, is_private, created_by, created_at`, name, description, isPrivate, createdBy).
		StructScan(&channel); err != nil {
		return models.Channel{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)`, channel.ID, createdBy); err != nil {
		return models.Channel{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT id, name, description, is_private, created_by, created_at FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ListChannels returns all channels, newest first.
func (r *ChannelRepo) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.SelectContext(ctx, &channels, `SELECT id, name, description, is_private, created_by, created_at FROM channels ORDER BY created_at DESC`)
	return channels, err
}

// ListMembers returns the channel's members with their online flags.
func (r *ChannelRepo) ListMembers(ctx context.Context, channelID int) ([]models.PublicUser, error) {
	var members []models.PublicUser
	err := r.db.SelectContext(ctx, &members, `SELECT u.id, u.username, u.email, u.is_online FROM users u
        INNER JOIN channel_members cm ON cm.user_id = u.id
        WHERE cm.channel_id=$1 ORDER BY u.username ASC`, channelID)
	return members, err
}

// IsMember checks membership.
func (r *ChannelRepo) IsMember(ctx context.Context, channelID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2)`, channelID, userID)
	return exists, err
}

// AddMember enrolls a user in the channel.
func (r *ChannelRepo) AddMember(ctx context.Context, channelID int, userID int) error {
	member, err := r.IsMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if member {
		return ErrAlreadyMember
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)`, channelID, userID)
	return err
}

// RemoveMember removes a user from the channel.
func (r *ChannelRepo) RemoveMember(ctx context.Context, channelID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channel_members WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	return err
}
