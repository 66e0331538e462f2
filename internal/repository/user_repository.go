package repository

import (
	"context"
	"database/sql"

	"github.com/hyeonsu/market-auth/internal/model"
)

const userColumns = "id, email, password, social_provider, social_id, phone, points, push_notification_enabled, created_at, updated_at, revoked_at"

// UserRepo queries the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a new user row. Points and the push flag start at their
// defaults; timestamps are set by the database so they share one clock.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password, social_provider, social_id, phone, points, push_notification_enabled, created_at, updated_at) VALUES (?,?,?,?,?,?,0,TRUE,NOW(),NOW())",
		u.ID, u.Email, u.PasswordHash, u.SocialProvider, u.SocialID, u.Phone)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// GetByEmail fetches a non-revoked user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND revoked_at IS NULL LIMIT 1", email))
}

// GetByID fetches a non-revoked user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND revoked_at IS NULL LIMIT 1", id))
}

// GetBySocial fetches a non-revoked user by its social identity.
func (r *UserRepo) GetBySocial(ctx context.Context, provider, socialID string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE social_id=? AND social_provider=? AND revoked_at IS NULL LIMIT 1",
		socialID, provider))
}

// EmailExists reports whether any row (revoked included) holds the email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=?)", email).Scan(&exists)
	return exists, err
}

// PhoneExists compares against the normalized phone. Stored values only
// ever contain digits, hyphens and spaces, so stripping those two
// separators in SQL matches the digit-only input.
func (r *UserRepo) PhoneExists(ctx context.Context, normalizedPhone string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE REPLACE(REPLACE(phone, '-', ''), ' ', '') = ?)",
		normalizedPhone).Scan(&exists)
	return exists, err
}

// UpdatePassword replaces the password hash and bumps updated_at.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password=?, updated_at=NOW() WHERE id=?", passwordHash, id)
	return err
}

// UpdatePhone backfills a phone number learned from a social provider.
func (r *UserRepo) UpdatePhone(ctx context.Context, id, phone string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET phone=?, updated_at=NOW() WHERE id=?", phone, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.SocialProvider, &u.SocialID,
		&u.Phone, &u.Points, &u.PushNotificationEnabled, &u.CreatedAt, &u.UpdatedAt, &u.RevokedAt)
	return u, err
}
