package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"team-chat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")

// UserRepository abstracts user persistence, including presence flags.
type UserRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error)
	GetUser(ctx context.Context, userID int) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]models.PublicUser, error)
	SearchUsers(ctx context.Context, query string, excludeID int, limit int) ([]models.PublicUser, error)
	SetOnline(ctx context.Context, userID int) error
	SetOffline(ctx context.Context, userID int, lastSeen time.Time) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new account.
func (r *UserRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 OR email=$2)`, username, email); err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrUserExists
	}

	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id, username, email, password_hash, is_online, last_seen, created_at`, username, email, passwordHash).
		StructScan(&user)
	return user, err
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, email, password_hash, is_online, last_seen, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByEmail fetches a user by email for login.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, email, password_hash, is_online, last_seen, created_at FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches several users' public info in one query.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.PublicUser, error) {
	if len(ids) == 0 {
		return []models.PublicUser{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, email, is_online FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var users []models.PublicUser
	err = r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}

// SearchUsers matches username or email case-insensitively, excluding the caller.
func (r *UserRepo) SearchUsers(ctx context.Context, query string, excludeID int, limit int) ([]models.PublicUser, error) {
	var users []models.PublicUser
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, email, is_online FROM users
        WHERE (username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%') AND id<>$2
        ORDER BY username ASC LIMIT $3`, query, excludeID, limit)
	return users, err
}

// SetOnline marks the persisted record online.
func (r *UserRepo) SetOnline(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online = TRUE WHERE id=$1`, userID)
	return err
}

// SetOffline marks the persisted record offline with a last-seen timestamp.
func (r *UserRepo) SetOffline(ctx context.Context, userID int, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online = FALSE, last_seen = $2 WHERE id=$1`, userID, lastSeen)
	return err
}
