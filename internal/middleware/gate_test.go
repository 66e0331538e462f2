package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/auth"
	"github.com/hyeonsu/market-auth/internal/model"
	"github.com/hyeonsu/market-auth/internal/token"
)

type stubResolver struct {
	principal auth.Principal
	err       error
}

func (r *stubResolver) Resolve(context.Context, model.Role, string) (auth.Principal, error) {
	return r.principal, r.err
}

func runGate(t *testing.T, desc RouteAuth, tokens *token.Manager, resolver PrincipalResolver, authz string) (*httptest.ResponseRecorder, auth.Principal, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got auth.Principal
	var attached bool
	h := Gate(desc, tokens, resolver)(func(c echo.Context) error {
		got, attached = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, got, attached
}

func TestGatePublicSkipsAuth(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	rec, _, attached := runGate(t, Public, tokens, &stubResolver{}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, attached)
}

func TestGateMissingBearer(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	rec, _, _ := runGate(t, UserOnly, tokens, &stubResolver{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestGateInvalidToken(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	rec, _, _ := runGate(t, UserOnly, tokens, &stubResolver{}, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestGateExpiredToken(t *testing.T) {
	expired := token.NewManager("test-secret", -1, 7)
	access, _, err := expired.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)

	tokens := token.NewManager("test-secret", 60, 7)
	rec, _, _ := runGate(t, UserOnly, tokens, &stubResolver{}, "Bearer "+access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestGateAttachesPrincipal(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	access, _, err := tokens.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)

	resolver := &stubResolver{principal: auth.Principal{ID: "u-1", Email: "a@b.com", Role: model.RoleUser}}
	rec, got, attached := runGate(t, UserOnly, tokens, resolver, "Bearer "+access)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, attached)
	assert.Equal(t, "u-1", got.ID)
}

func TestGateRoleMismatch(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	access, _, err := tokens.Pair("p-1", "p@b.com", model.RolePartner)
	require.NoError(t, err)

	resolver := &stubResolver{principal: auth.Principal{ID: "p-1", Email: "p@b.com", Role: model.RolePartner}}
	rec, _, _ := runGate(t, UserOnly, tokens, resolver, "Bearer "+access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGateAnyRoleAdmitsAllKinds(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	access, _, err := tokens.Pair("p-1", "p@b.com", model.RolePartner)
	require.NoError(t, err)

	resolver := &stubResolver{principal: auth.Principal{ID: "p-1", Email: "p@b.com", Role: model.RolePartner}}
	rec, _, attached := runGate(t, AnyRole, tokens, resolver, "Bearer "+access)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, attached)
}

func TestGateRevokedPrincipal(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	access, _, err := tokens.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)

	resolver := &stubResolver{err: apperr.Unauthorized("principal not found")}
	rec, _, _ := runGate(t, UserOnly, tokens, resolver, "Bearer "+access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "principal not found")
}

func TestGateRejectsUnknownRoleClaim(t *testing.T) {
	tokens := token.NewManager("test-secret", 60, 7)
	access, _, err := tokens.Pair("u-1", "a@b.com", model.Role("ghost"))
	require.NoError(t, err)

	rec, _, _ := runGate(t, UserOnly, tokens, &stubResolver{}, "Bearer "+access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid role")
}

func TestGateRejectsRefreshTokenAsAccess(t *testing.T) {
	// Refresh tokens carry no role claim, so they fail the role parse even
	// though the signature is valid.
	tokens := token.NewManager("test-secret", 60, 7)
	_, refresh, err := tokens.Pair("u-1", "a@b.com", model.RoleUser)
	require.NoError(t, err)

	rec, _, _ := runGate(t, UserOnly, tokens, &stubResolver{}, "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
