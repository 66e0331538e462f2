package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hyeonsu/market-auth/internal/auth"
	"github.com/hyeonsu/market-auth/internal/config"
	"github.com/hyeonsu/market-auth/internal/middleware"
)

// UserCookiePath scopes the user refresh cookie so it never travels with
// partner-auth requests.
const UserCookiePath = "/api/auth/user"

// minPasswordLen applies to signup and reset; shorter secrets are rejected
// before touching the store.
const minPasswordLen = 8

// UserAuthHandler bundles dependencies for the /api/auth/user endpoints.
type UserAuthHandler struct {
	Cfg   config.Config
	Auth  *auth.Service
	Kakao auth.SocialProvider
	Naver auth.SocialProvider
}

func NewUserAuthHandler(cfg config.Config, svc *auth.Service, kakao, naver auth.SocialProvider) *UserAuthHandler {
	return &UserAuthHandler{Cfg: cfg, Auth: svc, Kakao: kakao, Naver: naver}
}

// ----- DTOs -----

type userSignupReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type kakaoOAuthReq struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}
type naverOAuthReq struct {
	Code  string `json:"code"`
	State string `json:"state"`
}
type emailReq struct {
	Email string `json:"email"`
}
type phoneReq struct {
	Phone string `json:"phone"`
}
type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Signup creates a user account. No token is issued; the client logs in
// afterwards.
func (h *UserAuthHandler) Signup(c echo.Context) error {
	var req userSignupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	id, err := h.Auth.SignupUser(ctx, auth.SignupUserInput{Email: req.Email, Password: req.Password, Phone: req.Phone})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Login verifies credentials, sets the refresh cookie and returns the
// access token.
func (h *UserAuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	sess, err := h.Auth.LoginUser(ctx, req.Email, req.Password)
	if err != nil {
		return writeErr(c, err)
	}
	setRefreshCookie(c, h.Cfg, UserCookiePath, sess.RefreshToken, sess.RefreshTTL)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken, "email": sess.Email})
}

// KakaoLogin completes the Kakao OAuth callback and issues a session
// exactly like password login.
func (h *UserAuthHandler) KakaoLogin(c echo.Context) error {
	var req kakaoOAuthReq
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	sess, err := h.Auth.SocialLogin(ctx, h.Kakao, auth.SocialAuthCode{Code: req.Code, RedirectURI: req.RedirectURI})
	if err != nil {
		return writeErr(c, err)
	}
	setRefreshCookie(c, h.Cfg, UserCookiePath, sess.RefreshToken, sess.RefreshTTL)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken})
}

// NaverLogin completes the Naver OAuth callback.
func (h *UserAuthHandler) NaverLogin(c echo.Context) error {
	var req naverOAuthReq
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	sess, err := h.Auth.SocialLogin(ctx, h.Naver, auth.SocialAuthCode{Code: req.Code, State: req.State})
	if err != nil {
		return writeErr(c, err)
	}
	setRefreshCookie(c, h.Cfg, UserCookiePath, sess.RefreshToken, sess.RefreshTTL)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken})
}

// RefreshToken rotates the refresh token (cookie first, body fallback) and
// returns only the new access token; the new refresh token travels in the
// replaced cookie.
func (h *UserAuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req) // body is optional when the cookie is present

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	sess, err := h.Auth.Refresh(ctx, auth.KindUser, presentedRefreshToken(c, req.RefreshToken))
	if err != nil {
		return writeErr(c, err)
	}
	setRefreshCookie(c, h.Cfg, UserCookiePath, sess.RefreshToken, sess.RefreshTTL)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken})
}

// Logout deletes the session and expires the cookie. Safe to call with no
// live session.
func (h *UserAuthHandler) Logout(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, p.ID); err != nil {
		return writeErr(c, err)
	}
	clearRefreshCookie(c, h.Cfg, UserCookiePath)
	return c.NoContent(http.StatusNoContent)
}

// CheckEmail reports availability; a taken email answers 409.
func (h *UserAuthHandler) CheckEmail(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.CheckUserEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email available"})
}

// CheckPhone reports availability after normalization.
func (h *UserAuthHandler) CheckPhone(c echo.Context) error {
	var req phoneReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.CheckUserPhone(ctx, req.Phone); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "phone number available"})
}

// ForgotPassword issues a reset token for a registered email and queues it
// for delivery.
func (h *UserAuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, auth.KindUser, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset requested"})
}

// ResetPassword consumes a reset token and stores the new password.
func (h *UserAuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, auth.KindUser, req.Token, req.Password); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated principal attached by the gate.
func (h *UserAuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "email": p.Email, "role": string(p.Role)})
}
