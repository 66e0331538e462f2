// Package auth implements the session lifecycle: signup, login, refresh
// token rotation, logout, password reset and social identity linking, for
// both principal kinds (users and partners).
//
// The invariant the whole package revolves around: at most one refresh
// token is live per principal. Logging in, logging in via a social
// provider, or refreshing always replaces the cached entry wholesale;
// logging out deletes it; natural expiry is handled by the cache TTL, which
// stays in lockstep with the token's own lifetime.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/model"
	"github.com/hyeonsu/market-auth/internal/queue"
	"github.com/hyeonsu/market-auth/internal/repository"
	"github.com/hyeonsu/market-auth/internal/token"
	"github.com/hyeonsu/market-auth/internal/utils"
)

// Kind selects which credential table an operation works against.
type Kind string

const (
	KindUser    Kind = "user"
	KindPartner Kind = "partner"
)

// UserStore is the credential-store surface for user accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetBySocial(ctx context.Context, provider, socialID string) (model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, normalizedPhone string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdatePhone(ctx context.Context, id, phone string) error
}

// PartnerStore is the credential-store surface for partner accounts.
type PartnerStore interface {
	Create(ctx context.Context, p *model.Partner) error
	GetByEmail(ctx context.Context, email string) (model.Partner, error)
	GetByID(ctx context.Context, id string) (model.Partner, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, normalizedPhone string) (bool, error)
	BusinessRegistrationNumberExists(ctx context.Context, brn string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionStore holds the single live refresh token per principal.
type SessionStore interface {
	Save(ctx context.Context, principalID, token string, ttl time.Duration) error
	Get(ctx context.Context, principalID string) (string, error)
	Delete(ctx context.Context, principalID string) error
	CompareAndDelete(ctx context.Context, principalID, token string) (bool, error)
}

// EventPublisher fans auth events out to the broker. Publish failures must
// not fail the user-facing operation except where the event is the only
// delivery path (forgot-password).
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// Session is the result of any successful login or refresh.
type Session struct {
	PrincipalID  string
	Email        string
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
}

// Principal is the tagged result of a role-dispatched lookup, attached to
// the request context by the authorization gate.
type Principal struct {
	ID    string
	Email string
	Role  model.Role
}

// Service orchestrates the token lifecycle across the credential store,
// the session cache and the token manager.
type Service struct {
	users      UserStore
	partners   PartnerStore
	sessions   SessionStore
	tokens     *token.Manager
	events     EventPublisher // nil disables event fan-out
	logger     *slog.Logger
	bcryptCost int
}

func NewService(users UserStore, partners PartnerStore, sessions SessionStore,
	tokens *token.Manager, events EventPublisher, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		users:      users,
		partners:   partners,
		sessions:   sessions,
		tokens:     tokens,
		events:     events,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// ----- Signup -----

// SignupUserInput carries the fields for a user signup. Phone is optional.
type SignupUserInput struct {
	Email    string
	Password string
	Phone    string
}

// SignupUser validates uniqueness (email first, then phone), hashes the
// password and inserts the record. No token is issued; the caller logs in
// separately.
func (s *Service) SignupUser(ctx context.Context, in SignupUserInput) (string, error) {
	if err := s.CheckUserEmail(ctx, in.Email); err != nil {
		return "", err
	}
	if in.Phone != "" {
		if err := s.CheckUserPhone(ctx, in.Phone); err != nil {
			return "", err
		}
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return "", apperr.Internal(err)
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Phone:        nullString(in.Phone),
	}
	if err := s.users.Create(ctx, u); err != nil {
		// The pre-checks race with concurrent signups; the table's unique
		// keys are the actual guarantee.
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperr.Conflict("account already registered")
		}
		return "", apperr.Internal(err)
	}

	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserRegistered, PrincipalID: u.ID, Kind: string(KindUser), Email: u.Email})
	s.logger.Info("user created", "user_id", u.ID)
	return u.ID, nil
}

// SignupPartnerInput carries the fields for a partner signup; all are
// required.
type SignupPartnerInput struct {
	Email                      string
	Password                   string
	Phone                      string
	Name                       string
	BusinessRegistrationNumber string
}

// SignupPartner validates uniqueness in order (email, phone, business
// registration number), failing fast on the first collision. New partners
// start in the pending status.
func (s *Service) SignupPartner(ctx context.Context, in SignupPartnerInput) (string, error) {
	if err := s.CheckPartnerEmail(ctx, in.Email); err != nil {
		return "", err
	}
	if err := s.CheckPartnerPhone(ctx, in.Phone); err != nil {
		return "", err
	}
	if err := s.CheckPartnerBusinessRegistrationNumber(ctx, in.BusinessRegistrationNumber); err != nil {
		return "", err
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return "", apperr.Internal(err)
	}

	p := &model.Partner{
		ID:                         uuid.NewString(),
		Email:                      in.Email,
		PasswordHash:               hash,
		Phone:                      in.Phone,
		Name:                       in.Name,
		BusinessRegistrationNumber: in.BusinessRegistrationNumber,
		Status:                     model.PartnerPending,
	}
	if err := s.partners.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperr.Conflict("account already registered")
		}
		return "", apperr.Internal(err)
	}

	s.publish(ctx, queue.AuthEvent{Type: queue.EventPartnerRegistered, PrincipalID: p.ID, Kind: string(KindPartner), Email: p.Email})
	s.logger.Info("partner created", "partner_id", p.ID)
	return p.ID, nil
}

// ----- Login -----

// LoginUser verifies email/password and issues a fresh session. Lookup
// misses and password mismatches share one generic message so the response
// never reveals which part was wrong.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("login failed: unknown or revoked email")
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !u.HasPassword() {
		s.logger.Warn("login failed: social-only account", "user_id", u.ID)
		return nil, apperr.Unauthorized("this account uses social login")
	}
	if !utils.VerifyPassword(u.PasswordHash.String, password) {
		s.logger.Warn("login failed: password mismatch", "user_id", u.ID)
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issueSession(ctx, u.ID, u.Email, model.RoleUser)
}

// LoginPartner verifies email/password against the partners table.
func (s *Service) LoginPartner(ctx context.Context, email, password string) (*Session, error) {
	p, err := s.partners.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("partner login failed: unknown or revoked email")
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !utils.VerifyPassword(p.PasswordHash, password) {
		s.logger.Warn("partner login failed: password mismatch", "partner_id", p.ID)
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issueSession(ctx, p.ID, p.Email, model.RolePartner)
}

// issueSession mints a token pair and stores the refresh token as the sole
// live session entry, replacing whatever was there. Shared by password
// login, social login and refresh so all three behave identically.
func (s *Service) issueSession(ctx context.Context, id, email string, role model.Role) (*Session, error) {
	access, refresh, err := s.tokens.Pair(id, email, role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ttl := s.tokens.RefreshTTL()
	if err := s.sessions.Save(ctx, id, refresh, ttl); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info("session issued", "principal_id", id, "role", string(role))
	return &Session{
		PrincipalID:  id,
		Email:        email,
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshTTL:   ttl,
	}, nil
}

// ----- Refresh -----

// Refresh rotates a refresh token: verify signature and expiry, confirm the
// principal is still live, then atomically swap the cached token for a new
// pair. The compare-and-delete is the replay defense: a token that was
// already rotated (or lost a race to a concurrent refresh) no longer equals
// the cached value and is rejected.
func (s *Service) Refresh(ctx context.Context, kind Kind, presented string) (*Session, error) {
	if presented == "" {
		return nil, apperr.Unauthorized("refresh token missing")
	}

	claims, err := s.tokens.Verify(presented)
	if errors.Is(err, token.ErrExpired) {
		return nil, apperr.Unauthorized("refresh token expired")
	}
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	p, err := s.lookup(ctx, kind, claims.ID)
	if err != nil {
		return nil, err
	}

	ok, err := s.sessions.CompareAndDelete(ctx, claims.ID, presented)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		s.logger.Warn("refresh rejected: stale or replayed token", "principal_id", claims.ID)
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	return s.issueSession(ctx, p.ID, p.Email, p.Role)
}

// lookup resolves a principal id within one kind, mapping a miss (absent or
// revoked row) to the same generic unauthorized answer as a bad token.
func (s *Service) lookup(ctx context.Context, kind Kind, id string) (Principal, error) {
	switch kind {
	case KindUser:
		u, err := s.users.GetByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("principal not found or revoked", "user_id", id)
			return Principal{}, apperr.Unauthorized("invalid refresh token")
		}
		if err != nil {
			return Principal{}, apperr.Internal(err)
		}
		return Principal{ID: u.ID, Email: u.Email, Role: model.RoleUser}, nil
	case KindPartner:
		p, err := s.partners.GetByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("principal not found or revoked", "partner_id", id)
			return Principal{}, apperr.Unauthorized("invalid refresh token")
		}
		if err != nil {
			return Principal{}, apperr.Internal(err)
		}
		return Principal{ID: p.ID, Email: p.Email, Role: model.RolePartner}, nil
	default:
		return Principal{}, apperr.Unauthorized("unknown principal kind")
	}
}

// Resolve dispatches a token role claim to the matching credential table
// and returns the live principal. USER and ADMIN subjects live in the users
// table, PARTNER subjects in the partners table; anything else is an
// authorization failure. Used by the HTTP gate on every protected request.
func (s *Service) Resolve(ctx context.Context, role model.Role, id string) (Principal, error) {
	switch role {
	case model.RoleUser, model.RoleAdmin:
		u, err := s.users.GetByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return Principal{}, apperr.Unauthorized("principal not found")
		}
		if err != nil {
			return Principal{}, apperr.Internal(err)
		}
		return Principal{ID: u.ID, Email: u.Email, Role: role}, nil
	case model.RolePartner:
		p, err := s.partners.GetByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return Principal{}, apperr.Unauthorized("principal not found")
		}
		if err != nil {
			return Principal{}, apperr.Internal(err)
		}
		return Principal{ID: p.ID, Email: p.Email, Role: role}, nil
	default:
		return Principal{}, apperr.Unauthorized("invalid role")
	}
}

// ----- Logout -----

// Logout deletes the session entry. Absence is not an error; logging out
// twice is a no-op the second time.
func (s *Service) Logout(ctx context.Context, principalID string) error {
	if err := s.sessions.Delete(ctx, principalID); err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info("logout", "principal_id", principalID)
	return nil
}

// ----- Password reset -----

// ForgotPassword issues a reset token for a live account and hands it to
// the notification queue. Delivery (mail, push) happens downstream.
func (s *Service) ForgotPassword(ctx context.Context, kind Kind, email string) error {
	var id string
	switch kind {
	case KindUser:
		u, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Unauthorized("email not registered")
		}
		if err != nil {
			return apperr.Internal(err)
		}
		id = u.ID
	case KindPartner:
		p, err := s.partners.GetByEmail(ctx, email)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Unauthorized("email not registered")
		}
		if err != nil {
			return apperr.Internal(err)
		}
		id = p.ID
	default:
		return apperr.Unauthorized("unknown principal kind")
	}

	reset, err := s.tokens.ResetToken(id, email)
	if err != nil {
		return apperr.Internal(err)
	}

	// The queue is the only delivery path for the token, so unlike the
	// signup events this failure is surfaced.
	ev := queue.AuthEvent{
		Type:        queue.EventPasswordResetRequested,
		PrincipalID: id,
		Kind:        string(kind),
		Email:       email,
		ResetToken:  reset,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if s.events == nil {
		return apperr.Internal(errors.New("event publisher not configured"))
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info("password reset requested", "principal_id", id)
	return nil
}

// ResetPassword validates a reset token and replaces the password. Every
// failure along the way collapses into one generic unauthorized answer so
// the response leaks nothing about which stage failed.
func (s *Service) ResetPassword(ctx context.Context, kind Kind, rawToken, newPassword string) error {
	if err := s.resetPassword(ctx, kind, rawToken, newPassword); err != nil {
		s.logger.Warn("password reset failed", "error", err)
		return apperr.Unauthorized("password reset failed")
	}
	return nil
}

func (s *Service) resetPassword(ctx context.Context, kind Kind, rawToken, newPassword string) error {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return err
	}
	if claims.Purpose != token.PurposePasswordReset {
		return fmt.Errorf("unexpected token purpose %q", claims.Purpose)
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	switch kind {
	case KindUser:
		if _, err := s.users.GetByID(ctx, claims.ID); err != nil {
			return err
		}
		if err := s.users.UpdatePassword(ctx, claims.ID, hash); err != nil {
			return err
		}
	case KindPartner:
		if _, err := s.partners.GetByID(ctx, claims.ID); err != nil {
			return err
		}
		if err := s.partners.UpdatePassword(ctx, claims.ID, hash); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown principal kind %q", kind)
	}

	s.logger.Info("password reset", "principal_id", claims.ID)
	return nil
}

// ----- Duplicate checks -----

// CheckUserEmail returns Conflict if the email is taken (revoked rows still
// reserve theirs).
func (s *Service) CheckUserEmail(ctx context.Context, email string) error {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if exists {
		return apperr.Conflict("email already registered")
	}
	return nil
}

// CheckUserPhone returns Conflict if the phone is taken. Both sides of the
// comparison are reduced to digits, so formatting differences do not hide
// duplicates.
func (s *Service) CheckUserPhone(ctx context.Context, phone string) error {
	exists, err := s.users.PhoneExists(ctx, utils.NormalizePhone(phone))
	if err != nil {
		return apperr.Internal(err)
	}
	if exists {
		return apperr.Conflict("phone number already registered")
	}
	return nil
}

// CheckPartnerEmail returns Conflict if the email is taken.
func (s *Service) CheckPartnerEmail(ctx context.Context, email string) error {
	exists, err := s.partners.EmailExists(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if exists {
		return apperr.Conflict("email already registered")
	}
	return nil
}

// CheckPartnerPhone returns Conflict if the phone is taken.
func (s *Service) CheckPartnerPhone(ctx context.Context, phone string) error {
	exists, err := s.partners.PhoneExists(ctx, utils.NormalizePhone(phone))
	if err != nil {
		return apperr.Internal(err)
	}
	if exists {
		return apperr.Conflict("phone number already registered")
	}
	return nil
}

// CheckPartnerBusinessRegistrationNumber returns Conflict if the number is
// taken.
func (s *Service) CheckPartnerBusinessRegistrationNumber(ctx context.Context, brn string) error {
	exists, err := s.partners.BusinessRegistrationNumberExists(ctx, brn)
	if err != nil {
		return apperr.Internal(err)
	}
	if exists {
		return apperr.Conflict("business registration number already registered")
	}
	return nil
}

// publish fans out a best-effort event; failures are logged, never
// surfaced.
func (s *Service) publish(ctx context.Context, ev queue.AuthEvent) {
	if s.events == nil {
		return
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("auth event publish failed", "type", ev.Type, "error", err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
