package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeonsu/market-auth/internal/model"
)

func TestPairRoundTrip(t *testing.T) {
	m := NewManager("test-secret", 60, 7)

	access, refresh, err := m.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	ac, err := m.Verify(access)
	require.NoError(t, err)
	assert.Equal(t, "u-1", ac.ID)
	assert.Equal(t, "a@b.com", ac.Email)
	assert.Equal(t, model.RoleUser, ac.Role)
	assert.Empty(t, ac.Purpose)

	// The refresh token carries identity only; the role claim is absent.
	rc, err := m.Verify(refresh)
	require.NoError(t, err)
	assert.Equal(t, "u-1", rc.ID)
	assert.Empty(t, rc.Role)
}

func TestVerifyExpired(t *testing.T) {
	m := NewManager("test-secret", 60, 7)
	m.accessTTL = -time.Minute

	access, _, err := m.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)

	_, err = m.Verify(access)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	m := NewManager("secret-a", 60, 7)
	other := NewManager("secret-b", 60, 7)

	access, _, err := m.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)

	_, err = other.Verify(access)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyGarbage(t *testing.T) {
	m := NewManager("test-secret", 60, 7)
	_, err := m.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestResetTokenPurpose(t *testing.T) {
	m := NewManager("test-secret", 60, 7)

	raw, err := m.ResetToken("u-1", "a@b.com")
	require.NoError(t, err)

	c, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, PurposePasswordReset, c.Purpose)
	assert.Equal(t, "u-1", c.ID)

	// Access tokens never carry the reset purpose, so one flow's tokens
	// cannot be replayed into the other.
	access, _, err := m.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)
	ac, err := m.Verify(access)
	require.NoError(t, err)
	assert.NotEqual(t, PurposePasswordReset, ac.Purpose)
}

func TestRefreshTokensAreDistinct(t *testing.T) {
	// Two logins in the same second must still produce different refresh
	// tokens, or rotation could not tell them apart.
	m := NewManager("test-secret", 60, 7)
	_, r1, err := m.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)
	_, r2, err := m.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
}

func TestRefreshTTLMatchesConfig(t *testing.T) {
	m := NewManager("test-secret", 60, 7)
	assert.Equal(t, 7*24*time.Hour, m.RefreshTTL())
}
