package repository

import (
	"context"
	"database/sql"

	"github.com/hyeonsu/market-auth/internal/model"
)

const partnerColumns = "id, email, password, phone_number, name, business_registration_number, status, created_at, updated_at, revoked_at"

// PartnerRepo queries the 'partners' table.
type PartnerRepo struct{ DB *sql.DB }

func NewPartnerRepo(db *sql.DB) *PartnerRepo { return &PartnerRepo{DB: db} }

// Create inserts a new partner row; new signups always start pending.
func (r *PartnerRepo) Create(ctx context.Context, p *model.Partner) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO partners (id, email, password, phone_number, name, business_registration_number, status, created_at, updated_at) VALUES (?,?,?,?,?,?,?,NOW(),NOW())",
		p.ID, p.Email, p.PasswordHash, p.Phone, p.Name, p.BusinessRegistrationNumber, p.Status)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// GetByEmail fetches a non-revoked partner by email.
func (r *PartnerRepo) GetByEmail(ctx context.Context, email string) (model.Partner, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+partnerColumns+" FROM partners WHERE email=? AND revoked_at IS NULL LIMIT 1", email))
}

// GetByID fetches a non-revoked partner by id.
func (r *PartnerRepo) GetByID(ctx context.Context, id string) (model.Partner, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+partnerColumns+" FROM partners WHERE id=? AND revoked_at IS NULL LIMIT 1", id))
}

// EmailExists reports whether any row (revoked included) holds the email.
func (r *PartnerRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM partners WHERE email=?)", email).Scan(&exists)
	return exists, err
}

// PhoneExists compares against the normalized phone number.
func (r *PartnerRepo) PhoneExists(ctx context.Context, normalizedPhone string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM partners WHERE REPLACE(REPLACE(phone_number, '-', ''), ' ', '') = ?)",
		normalizedPhone).Scan(&exists)
	return exists, err
}

// BusinessRegistrationNumberExists reports whether the registration number
// is already taken.
func (r *PartnerRepo) BusinessRegistrationNumberExists(ctx context.Context, brn string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM partners WHERE business_registration_number=?)", brn).Scan(&exists)
	return exists, err
}

// UpdatePassword replaces the password hash and bumps updated_at.
func (r *PartnerRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE partners SET password=?, updated_at=NOW() WHERE id=?", passwordHash, id)
	return err
}

func (r *PartnerRepo) scanOne(row *sql.Row) (model.Partner, error) {
	var p model.Partner
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Phone, &p.Name,
		&p.BusinessRegistrationNumber, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.RevokedAt)
	return p, err
}
