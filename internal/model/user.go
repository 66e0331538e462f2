package model

import (
	"database/sql"
	"time"
)

// User mirrors the 'users' table. Password and phone are nullable: pure
// social-login accounts carry no password, and phone is optional.
type User struct {
	ID                      string
	Email                   string
	PasswordHash            sql.NullString
	SocialProvider          sql.NullString // "kakao" | "naver"
	SocialID                sql.NullString
	Phone                   sql.NullString
	Points                  int64
	PushNotificationEnabled bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
	RevokedAt               sql.NullTime // non-null = soft-revoked, excluded from auth lookups
}

// HasPassword reports whether the account can use password login at all.
func (u User) HasPassword() bool {
	return u.PasswordHash.Valid && u.PasswordHash.String != ""
}
