// Package middleware provides the per-route authorization gate and the
// Redis-backed rate limiter applied in front of the auth handlers.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/auth"
	"github.com/hyeonsu/market-auth/internal/model"
	"github.com/hyeonsu/market-auth/internal/token"
)

// RouteAuth is the explicit authorization descriptor attached to every
// route: either public, or a set of roles allowed through. RoleAny admits
// any authenticated principal regardless of role.
type RouteAuth struct {
	Public bool
	Roles  []model.Role
}

// Convenience descriptors used by the router.
var (
	Public      = RouteAuth{Public: true}
	UserOnly    = RouteAuth{Roles: []model.Role{model.RoleUser}}
	PartnerOnly = RouteAuth{Roles: []model.Role{model.RolePartner}}
	AdminOnly   = RouteAuth{Roles: []model.Role{model.RoleAdmin}}
	AnyRole     = RouteAuth{Roles: []model.Role{model.RoleAny}}
)

// PrincipalResolver dispatches a token role claim to the matching
// credential table and returns the live principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, role model.Role, id string) (auth.Principal, error)
}

// principalKey is the echo context key the gate stores the resolved
// principal under.
const principalKey = "principal"

// PrincipalFrom returns the principal the gate attached to the request.
// The second return is false on public routes where no token was checked.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}

// Gate is the single authorization gate evaluated ahead of every handler.
// For non-public routes it validates the bearer access token, resolves the
// embedded role claim to a fresh principal record (rejecting revoked
// accounts and unknown roles), enforces the descriptor's role set, and
// attaches the principal to the request context.
func Gate(desc RouteAuth, tokens *token.Manager, resolver PrincipalResolver) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(desc.Roles))
	anyRole := false
	for _, r := range desc.Roles {
		if r == model.RoleAny {
			anyRole = true
		}
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if desc.Public {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := tokens.Verify(raw)
			if errors.Is(err, token.ErrExpired) {
				// Distinct message so clients know to re-login rather than retry.
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			role, ok := model.ParseRole(string(claims.Role))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid role"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			p, err := resolver.Resolve(ctx, role, claims.ID)
			if err != nil {
				return c.JSON(apperr.HTTPStatus(err), echo.Map{"error": apperr.ClientMessage(err)})
			}

			if !anyRole && !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}
