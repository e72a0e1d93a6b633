package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/middleware"
	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	svc          *service.Auth
	secureCookie bool
}

func NewAuthHandler(svc *service.Auth, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, secureCookie: secureCookie}
}

type tokenJSON struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type sessionJSON struct {
	Message string     `json:"message"`
	User    model.User `json:"user"`
	Access  tokenJSON  `json:"access"`
	Refresh tokenJSON  `json:"refresh"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.svc.Register(ctx, req)
	if err != nil {
		return err
	}
	return h.writeSession(c, http.StatusCreated, "User registered successfully", s)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.svc.Login(ctx, req)
	if err != nil {
		return err
	}
	return h.writeSession(c, http.StatusOK, "Login successful", s)
}

// Refresh rotates the refresh token; the presented one stops working.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return h.writeSession(c, http.StatusOK, "Token refreshed", s)
}

// Logout revokes every refresh token of the caller and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.svc.Logout(ctx, u.ID); err != nil {
		return err
	}
	c.SetCookie(h.cookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var req service.ProfileInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	updated, err := h.svc.UpdateProfile(ctx, u.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": updated})
}

func (h *AuthHandler) writeSession(c echo.Context, status int, msg string, s service.Session) error {
	c.SetCookie(h.cookie(s.Access.Token, s.Access.Exp))
	return c.JSON(status, sessionJSON{
		Message: msg,
		User:    s.User,
		Access:  tokenJSON{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenJSON{Token: s.Refresh.Raw, Expires: s.Refresh.Exp},
	})
}

func (h *AuthHandler) cookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
