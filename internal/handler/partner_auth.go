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

// PartnerCookiePath scopes the partner refresh cookie away from the user
// route family.
const PartnerCookiePath = "/api/partner-auth"

// PartnerAuthHandler bundles dependencies for the /api/partner-auth
// endpoints. Partners have no social login.
type PartnerAuthHandler struct {
	Cfg  config.Config
	Auth *auth.Service
}

func NewPartnerAuthHandler(cfg config.Config, svc *auth.Service) *PartnerAuthHandler {
	return &PartnerAuthHandler{Cfg: cfg, Auth: svc}
}

type partnerSignupReq struct {
	Email                      string `json:"email"`
	Password                   string `json:"password"`
	Phone                      string `json:"phoneNumber"`
	Name                       string `json:"name"`
	BusinessRegistrationNumber string `json:"businessRegistrationNumber"`
}

type brnReq struct {
	BusinessRegistrationNumber string `json:"businessRegistrationNumber"`
}

// Signup creates a partner account in pending status. All fields are
// required.
func (h *PartnerAuthHandler) Signup(c echo.Context) error {
	var req partnerSignupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Phone == "" || req.Name == "" || req.BusinessRegistrationNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, phoneNumber, name and businessRegistrationNumber required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	id, err := h.Auth.SignupPartner(ctx, auth.SignupPartnerInput{
		Email:                      req.Email,
		Password:                   req.Password,
		Phone:                      req.Phone,
		Name:                       req.Name,
		BusinessRegistrationNumber: req.BusinessRegistrationNumber,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Login verifies partner credentials and issues a session.
func (h *PartnerAuthHandler) Login(c echo.Context) error {
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

	sess, err := h.Auth.LoginPartner(ctx, req.Email, req.Password)
	if err != nil {
		return writeErr(c, err)
	}
	setRefreshCookie(c, h.Cfg, PartnerCookiePath, sess.RefreshToken, sess.RefreshTTL)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken, "email": sess.Email})
}

// RefreshToken rotates the partner refresh token.
func (h *PartnerAuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	sess, err := h.Auth.Refresh(ctx, auth.KindPartner, presentedRefreshToken(c, req.RefreshToken))
	if err != nil {
		return writeErr(c, err)
	}
	setRefreshCookie(c, h.Cfg, PartnerCookiePath, sess.RefreshToken, sess.RefreshTTL)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken})
}

// Logout deletes the session and expires the cookie.
func (h *PartnerAuthHandler) Logout(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, p.ID); err != nil {
		return writeErr(c, err)
	}
	clearRefreshCookie(c, h.Cfg, PartnerCookiePath)
	return c.NoContent(http.StatusNoContent)
}

// CheckEmail reports availability within the partners table.
func (h *PartnerAuthHandler) CheckEmail(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.CheckPartnerEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email available"})
}

// CheckPhone reports availability after normalization.
func (h *PartnerAuthHandler) CheckPhone(c echo.Context) error {
	var req phoneReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.CheckPartnerPhone(ctx, req.Phone); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "phone number available"})
}

// CheckBusinessRegistrationNumber reports availability of the registration
// number.
func (h *PartnerAuthHandler) CheckBusinessRegistrationNumber(c echo.Context) error {
	var req brnReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.BusinessRegistrationNumber) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "businessRegistrationNumber required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.CheckPartnerBusinessRegistrationNumber(ctx, req.BusinessRegistrationNumber); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "business registration number available"})
}

// ForgotPassword issues a reset token for a registered partner email.
func (h *PartnerAuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, auth.KindPartner, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset requested"})
}

// ResetPassword consumes a reset token and stores the new password.
func (h *PartnerAuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, auth.KindPartner, req.Token, req.Password); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated partner principal.
func (h *PartnerAuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "email": p.Email, "role": string(p.Role)})
}
