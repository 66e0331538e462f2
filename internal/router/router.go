// Package router wires the HTTP surface. Every route is registered with an
// explicit authorization descriptor so a reviewer can read the whole access
// policy off this file.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hyeonsu/market-auth/internal/handler"
	"github.com/hyeonsu/market-auth/internal/middleware"
	"github.com/hyeonsu/market-auth/internal/token"
)

// Register mounts all routes on e. The gate runs per-route so public and
// protected endpoints can live side by side in one group.
func Register(e *echo.Echo, tokens *token.Manager, resolver middleware.PrincipalResolver,
	users *handler.UserAuthHandler, partners *handler.PartnerAuthHandler) {

	gate := func(desc middleware.RouteAuth) echo.MiddlewareFunc {
		return middleware.Gate(desc, tokens, resolver)
	}

	e.GET("/healthz", handler.Health)

	u := e.Group(handler.UserCookiePath)
	u.POST("/signup", users.Signup, gate(middleware.Public))
	u.POST("/login", users.Login, gate(middleware.Public))
	u.POST("/kakao", users.KakaoLogin, gate(middleware.Public))
	u.POST("/naver", users.NaverLogin, gate(middleware.Public))
	u.POST("/refresh-token", users.RefreshToken, gate(middleware.Public))
	u.POST("/logout", users.Logout, gate(middleware.UserOnly))
	u.POST("/check-email", users.CheckEmail, gate(middleware.Public))
	u.POST("/check-phone", users.CheckPhone, gate(middleware.Public))
	u.POST("/forgot-password", users.ForgotPassword, gate(middleware.Public))
	u.POST("/reset-password", users.ResetPassword, gate(middleware.Public))
	u.GET("/me", users.Me, gate(middleware.UserOnly))

	p := e.Group(handler.PartnerCookiePath)
	p.POST("/signup", partners.Signup, gate(middleware.Public))
	p.POST("/login", partners.Login, gate(middleware.Public))
	p.POST("/refresh-token", partners.RefreshToken, gate(middleware.Public))
	p.POST("/logout", partners.Logout, gate(middleware.PartnerOnly))
	p.POST("/check-email", partners.CheckEmail, gate(middleware.Public))
	p.POST("/check-phone", partners.CheckPhone, gate(middleware.Public))
	p.POST("/check-business-registration-number", partners.CheckBusinessRegistrationNumber, gate(middleware.Public))
	p.POST("/forgot-password", partners.ForgotPassword, gate(middleware.Public))
	p.POST("/reset-password", partners.ResetPassword, gate(middleware.Public))
	p.GET("/me", partners.Me, gate(middleware.PartnerOnly))
}
