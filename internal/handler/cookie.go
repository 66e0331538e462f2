// Package handler exposes the auth endpoints over Echo. Handlers bind the
// request body, bound store calls with a request-scoped timeout, delegate
// to the auth service and translate taxonomy errors into JSON responses.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/config"
)

// refreshCookieName is shared by both principal kinds; collisions are
// avoided by scoping the cookie path to the kind's route family.
const refreshCookieName = "refreshToken"

// storeTimeout bounds database and cache calls per request.
const storeTimeout = 5 * time.Second

// oauthTimeout bounds the full social-login flow, which includes two
// outbound provider calls.
const oauthTimeout = 15 * time.Second

// setRefreshCookie delivers the refresh token as an HTTP-only strict-same-
// site cookie scoped to one auth route family. Secure is enabled in
// production; Max-Age tracks the token's own lifetime.
func setRefreshCookie(c echo.Context, cfg config.Config, path, token string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.IsProd(),
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the cookie. Attributes must match the ones it
// was set with or the browser keeps the stale copy.
func clearRefreshCookie(c echo.Context, cfg config.Config, path string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.IsProd(),
		SameSite: http.SameSiteStrictMode,
	})
}

// presentedRefreshToken reads the refresh token cookie-first, falling back
// to the request body field.
func presentedRefreshToken(c echo.Context, bodyToken string) string {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return bodyToken
}

// writeErr maps a taxonomy error onto its HTTP status and body-safe
// message.
func writeErr(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), echo.Map{"error": apperr.ClientMessage(err)})
}
