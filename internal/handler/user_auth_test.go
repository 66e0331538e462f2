package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyeonsu/market-auth/internal/auth"
	"github.com/hyeonsu/market-auth/internal/config"
	"github.com/hyeonsu/market-auth/internal/middleware"
	"github.com/hyeonsu/market-auth/internal/model"
	"github.com/hyeonsu/market-auth/internal/repository"
	"github.com/hyeonsu/market-auth/internal/token"
	"github.com/hyeonsu/market-auth/internal/utils"
)

// ----- in-memory stores -----

type memUsers struct {
	mu    sync.Mutex
	users map[string]model.User // keyed by id
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]model.User{}} }

func (s *memUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *memUsers) GetBySocial(_ context.Context, provider, socialID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.SocialProvider.String == provider && u.SocialID.String == socialID {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *memUsers) PhoneExists(_ context.Context, normalized string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if utils.NormalizePhone(u.Phone.String) == normalized && normalized != "" {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.PasswordHash = sql.NullString{String: hash, Valid: true}
	s.users[id] = u
	return nil
}

func (s *memUsers) UpdatePhone(_ context.Context, id, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Phone = sql.NullString{String: phone, Valid: true}
	s.users[id] = u
	return nil
}

type memPartners struct{}

func (memPartners) Create(context.Context, *model.Partner) error { return nil }
func (memPartners) GetByEmail(context.Context, string) (model.Partner, error) {
	return model.Partner{}, sql.ErrNoRows
}
func (memPartners) GetByID(context.Context, string) (model.Partner, error) {
	return model.Partner{}, sql.ErrNoRows
}
func (memPartners) EmailExists(context.Context, string) (bool, error)  { return false, nil }
func (memPartners) PhoneExists(context.Context, string) (bool, error) { return false, nil }
func (memPartners) BusinessRegistrationNumberExists(context.Context, string) (bool, error) {
	return false, nil
}
func (memPartners) UpdatePassword(context.Context, string, string) error { return nil }

type memSessions struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemSessions() *memSessions { return &memSessions{entries: map[string]string{}} }

func (s *memSessions) Save(_ context.Context, id, tok string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = tok
	return nil
}

func (s *memSessions) Get(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.entries[id]
	if !ok {
		return "", repository.ErrNoSession
	}
	return tok, nil
}

func (s *memSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *memSessions) CompareAndDelete(_ context.Context, id, tok string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[id] != tok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// ----- fixture -----

type httpFixture struct {
	e        *echo.Echo
	users    *memUsers
	sessions *memSessions
	tokens   *token.Manager
	svc      *auth.Service
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	cfg := config.Config{Env: "test", JWTSecret: "test-secret", AccessTTLMin: 60, RefreshTTLDays: 7}
	f := &httpFixture{
		users:    newMemUsers(),
		sessions: newMemSessions(),
		tokens:   token.NewManager(cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = auth.NewService(f.users, memPartners{}, f.sessions, f.tokens, nil, logger, bcrypt.MinCost)

	h := NewUserAuthHandler(cfg, f.svc, nil, nil)
	f.e = echo.New()
	gate := func(desc middleware.RouteAuth) echo.MiddlewareFunc {
		return middleware.Gate(desc, f.tokens, f.svc)
	}
	g := f.e.Group(UserCookiePath)
	g.POST("/signup", h.Signup, gate(middleware.Public))
	g.POST("/login", h.Login, gate(middleware.Public))
	g.POST("/refresh-token", h.RefreshToken, gate(middleware.Public))
	g.POST("/logout", h.Logout, gate(middleware.UserOnly))
	g.POST("/check-email", h.CheckEmail, gate(middleware.Public))
	g.GET("/me", h.Me, gate(middleware.UserOnly))
	return f
}

func (f *httpFixture) seedUser(t *testing.T, id, email, password string) {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), &model.User{
		ID: id, Email: email, PasswordHash: sql.NullString{String: hash, Valid: true},
	}))
}

func (f *httpFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refreshToken" {
			return ck
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

// ----- tests -----

func TestUserSignupEndpoint(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/signup",
		`{"email":"a@b.com","password":"password1","phone":"010-1234-5678"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])

	// No session is created on signup.
	_, err := f.sessions.Get(context.Background(), body["id"])
	assert.Error(t, err)
}

func TestUserSignupShortPassword(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/signup", `{"email":"a@b.com","password":"short"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 8 characters")
}

func TestUserLoginSetsScopedCookie(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"password1"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["accessToken"])
	assert.Equal(t, "a@b.com", body["email"])
	assert.NotContains(t, body, "refreshToken")

	ck := refreshCookie(t, rec)
	assert.Equal(t, UserCookiePath, ck.Path)
	assert.True(t, ck.HttpOnly)
	assert.False(t, ck.Secure) // test env, not prod
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, int(7*24*time.Hour/time.Second), ck.MaxAge)

	stored, err := f.sessions.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, ck.Value, stored)
}

func TestUserLoginWrongPassword(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
	assert.Empty(t, rec.Result().Cookies())
}

func TestUserRefreshPrefersCookie(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	login := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"password1"}`))
	require.Equal(t, http.StatusOK, login.Code)
	old := refreshCookie(t, login)

	// Body carries a garbage token; the cookie must win.
	req := jsonReq(http.MethodPost, UserCookiePath+"/refresh-token", `{"refreshToken":"garbage"}`)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: old.Value})
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	next := refreshCookie(t, rec)
	assert.NotEqual(t, old.Value, next.Value)

	stored, err := f.sessions.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, next.Value, stored)
}

func TestUserRefreshFromBody(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	login := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"password1"}`))
	old := refreshCookie(t, login)

	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/refresh-token",
		`{"refreshToken":"`+old.Value+`"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserRefreshReplayRejected(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	login := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"password1"}`))
	old := refreshCookie(t, login)

	first := jsonReq(http.MethodPost, UserCookiePath+"/refresh-token", `{}`)
	first.AddCookie(&http.Cookie{Name: "refreshToken", Value: old.Value})
	require.Equal(t, http.StatusOK, f.do(first).Code)

	replay := jsonReq(http.MethodPost, UserCookiePath+"/refresh-token", `{}`)
	replay.AddCookie(&http.Cookie{Name: "refreshToken", Value: old.Value})
	rec := f.do(replay)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid refresh token")
}

func TestUserRefreshWithoutToken(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/refresh-token", `{}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh token missing")
}

func TestUserLogoutClearsCookieAndSession(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	login := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"password1"}`))
	var body map[string]string
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))

	req := jsonReq(http.MethodPost, UserCookiePath+"/logout", ``)
	req.Header.Set("Authorization", "Bearer "+body["accessToken"])
	rec := f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	ck := refreshCookie(t, rec)
	assert.Equal(t, -1, ck.MaxAge)
	assert.Empty(t, ck.Value)

	_, err := f.sessions.Get(context.Background(), "u-1")
	assert.ErrorIs(t, err, repository.ErrNoSession)

	// Logging out again with a still-valid access token stays a no-op.
	again := jsonReq(http.MethodPost, UserCookiePath+"/logout", ``)
	again.Header.Set("Authorization", "Bearer "+body["accessToken"])
	assert.Equal(t, http.StatusNoContent, f.do(again).Code)
}

func TestUserLogoutRequiresAuth(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/logout", ``))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserCheckEmail(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "taken@b.com", "password1")

	rec := f.do(jsonReq(http.MethodPost, UserCookiePath+"/check-email", `{"email":"free@b.com"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "email available")

	rec = f.do(jsonReq(http.MethodPost, UserCookiePath+"/check-email", `{"email":"taken@b.com"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already registered")
}

func TestUserMe(t *testing.T) {
	f := newHTTPFixture(t)
	f.seedUser(t, "u-1", "a@b.com", "password1")

	login := f.do(jsonReq(http.MethodPost, UserCookiePath+"/login", `{"email":"a@b.com","password":"password1"}`))
	var body map[string]string
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))

	req := httptest.NewRequest(http.MethodGet, UserCookiePath+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+body["accessToken"])
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "u-1", me["id"])
	assert.Equal(t, "a@b.com", me["email"])
	assert.Equal(t, "USER", me["role"])
}
