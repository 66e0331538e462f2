package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeonsu/market-auth/internal/model"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

func userRows(id, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password", "social_provider", "social_id", "phone",
		"points", "push_notification_enabled", "created_at", "updated_at", "revoked_at",
	}).AddRow(id, email, "hash", nil, nil, "010-1234-5678", 0, true, now, now, nil)
}

func TestUserCreate(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users (id, email, password, social_provider, social_id, phone, points, push_notification_enabled, created_at, updated_at) VALUES (?,?,?,?,?,?,0,TRUE,NOW(),NOW())").
		WithArgs("u-1", "a@b.com", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.User{
		ID:           "u-1",
		Email:        "a@b.com",
		PasswordHash: sql.NullString{String: "hash", Valid: true},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateKey(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users (id, email, password, social_provider, social_id, phone, points, push_notification_enabled, created_at, updated_at) VALUES (?,?,?,?,?,?,0,TRUE,NOW(),NOW())").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.User{ID: "u-1", Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserGetByEmailFiltersRevoked(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT "+userColumns+" FROM users WHERE email=? AND revoked_at IS NULL LIMIT 1").
		WithArgs("a@b.com").
		WillReturnRows(userRows("u-1", "a@b.com"))

	u, err := repo.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.True(t, u.PushNotificationEnabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailMiss(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT "+userColumns+" FROM users WHERE email=? AND revoked_at IS NULL LIMIT 1").
		WithArgs("gone@b.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "gone@b.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserGetBySocial(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT "+userColumns+" FROM users WHERE social_id=? AND social_provider=? AND revoked_at IS NULL LIMIT 1").
		WithArgs("999", "kakao").
		WillReturnRows(userRows("u-1", "kakao_999@example.com"))

	u, err := repo.GetBySocial(context.Background(), "kakao", "999")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserEmailExistsIncludesRevoked(t *testing.T) {
	// Revoked rows still reserve their email, so the query has no
	// revoked_at filter.
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT EXISTS(SELECT 1 FROM users WHERE email=?)").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserPhoneExistsNormalizesStoredValue(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT EXISTS(SELECT 1 FROM users WHERE REPLACE(REPLACE(phone, '-', ''), ' ', '') = ?)").
		WithArgs("01012345678").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.PhoneExists(context.Background(), "01012345678")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserUpdatePassword(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET password=?, updated_at=NOW() WHERE id=?").
		WithArgs("new-hash", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", "new-hash"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePhone(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET phone=?, updated_at=NOW() WHERE id=?").
		WithArgs("01012345678", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePhone(context.Background(), "u-1", "01012345678"))
}
