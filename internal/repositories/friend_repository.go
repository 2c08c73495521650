package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"team-chat-service/internal/models"
)

var ErrRequestNotFound = errors.New("friend request not found")
var ErrRequestExists = errors.New("friend request already sent")
var ErrAlreadyFriends = errors.New("already friends")

// FriendRepository abstracts the friend-request lifecycle and friendship set.
type FriendRepository interface {
	CreateRequest(ctx context.Context, fromID int, toID int) error
	AcceptRequest(ctx context.Context, userID int, fromID int) error
	RejectRequest(ctx context.Context, userID int, fromID int) error
	PendingRequests(ctx context.Context, userID int) ([]models.FriendRequestSummary, error)
	AreFriends(ctx context.Context, userID int, friendID int) (bool, error)
	ListFriends(ctx context.Context, userID int) ([]models.PublicUser, error)
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// CreateRequest records a pending friend request.
func (r *FriendRepo) CreateRequest(ctx context.Context, fromID int, toID int) error {
	friends, err := r.AreFriends(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if friends {
		return ErrAlreadyFriends
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friend_requests WHERE from_id=$1 AND to_id=$2)`, fromID, toID); err != nil {
		return err
	}
	if exists {
		return ErrRequestExists
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO friend_requests (from_id, to_id) VALUES ($1, $2)`, fromID, toID)
	return err
}

// AcceptRequest removes the pending request and records the friendship in
// both directions atomically.
func (r *FriendRepo) AcceptRequest(ctx context.Context, userID int, fromID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM friend_requests WHERE from_id=$1 AND to_id=$2`, fromID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrRequestNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2), ($2, $1) ON CONFLICT DO NOTHING`, userID, fromID); err != nil {
		return err
	}

	return tx.Commit()
}

// RejectRequest discards a pending request.
func (r *FriendRepo) RejectRequest(ctx context.Context, userID int, fromID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM friend_requests WHERE from_id=$1 AND to_id=$2`, fromID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// PendingRequests lists requests addressed to the user with sender info.
func (r *FriendRepo) PendingRequests(ctx context.Context, userID int) ([]models.FriendRequestSummary, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT fr.id, fr.created_at, u.id, u.username, u.email, u.is_online
        FROM friend_requests fr INNER JOIN users u ON u.id = fr.from_id
        WHERE fr.to_id=$1 ORDER BY fr.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.FriendRequestSummary
	for rows.Next() {
		var s models.FriendRequestSummary
		if err := rows.Scan(&s.RequestID, &s.CreatedAt, &s.From.ID, &s.From.Username, &s.From.Email, &s.From.IsOnline); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// AreFriends checks the friendship set.
func (r *FriendRepo) AreFriends(ctx context.Context, userID int, friendID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)`, userID, friendID)
	return exists, err
}

// ListFriends returns the user's friends with their online flags.
func (r *FriendRepo) ListFriends(ctx context.Context, userID int) ([]models.PublicUser, error) {
	var friends []models.PublicUser
	err := r.db.SelectContext(ctx, &friends, `SELECT u.id, u.username, u.email, u.is_online FROM users u
        INNER JOIN friendships f ON f.friend_id = u.id
        WHERE f.user_id=$1 ORDER BY u.username ASC`, userID)
	return friends, err
}
