// Package token mints and verifies the signed tokens used across the
// service: short-lived access tokens, the single live refresh token per
// principal, and password-reset tokens. One shared HS256 secret signs all
// three; they differ only in lifetime and claims.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hyeonsu/market-auth/internal/model"
)

// PurposePasswordReset marks a token usable only for the reset-password
// flow. Regular access/refresh tokens carry no purpose claim.
const PurposePasswordReset = "password_reset"

// resetTTL is fixed; reset tokens are not configurable.
const resetTTL = time.Hour

var (
	// ErrExpired marks a well-formed, correctly signed token past its
	// expiry. Callers prompt for re-login instead of rejecting outright.
	ErrExpired = errors.New("token expired")
	// ErrInvalid marks anything else: bad signature, malformed payload,
	// unexpected signing method.
	ErrInvalid = errors.New("token invalid")
)

// Claims is the decoded payload of any token this service issued.
type Claims struct {
	ID      string
	Email   string
	Role    model.Role // set on access tokens only
	Purpose string     // set on password-reset tokens only
}

// Manager signs and verifies tokens with a single shared secret.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager builds a Manager from the configured lifetimes (access in
// minutes, refresh in days).
func NewManager(secret string, accessTTLMin, refreshTTLDays int) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  time.Duration(accessTTLMin) * time.Minute,
		refreshTTL: time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// RefreshTTL is the refresh token lifetime. The session cache TTL must use
// this same value so cache expiry and token expiry stay in lockstep.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// Pair mints an access/refresh pair for a principal. The access token
// carries the role for the authorization gate; the refresh token carries
// only identity, since refresh endpoints are already per-kind. The jti
// makes every refresh token distinct even when two are minted within the
// same second, so rotation always replaces the cached value with a new
// string.
func (m *Manager) Pair(id, email string, role model.Role) (access, refresh string, err error) {
	access, err = m.sign(jwt.MapClaims{"id": id, "email": email, "role": string(role)}, m.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	refresh, err = m.sign(jwt.MapClaims{"id": id, "email": email, "jti": uuid.NewString()}, m.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return access, refresh, nil
}

// ResetToken mints a one-hour token valid only for password reset. It is
// never persisted; validity is signature + expiry + a live principal.
func (m *Manager) ResetToken(id, email string) (string, error) {
	return m.sign(jwt.MapClaims{"id": id, "email": email, "purpose": PurposePasswordReset}, resetTTL)
}

func (m *Manager) sign(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks signature and expiry and decodes the claims. Expired
// tokens return ErrExpired; every other failure returns ErrInvalid.
func (m *Manager) Verify(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrInvalid
	}

	var c Claims
	if c.ID, ok = mc["id"].(string); !ok || c.ID == "" {
		return Claims{}, ErrInvalid
	}
	c.Email, _ = mc["email"].(string)
	if role, ok := mc["role"].(string); ok {
		c.Role = model.Role(role)
	}
	c.Purpose, _ = mc["purpose"].(string)
	return c, nil
}
