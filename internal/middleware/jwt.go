package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/model"
)

// TokenCookie is the httpOnly cookie set on login and register.
const TokenCookie = "token"

var errNoToken = apperr.Unauthorized("Access denied. No token provided.")

// Authenticator resolves a raw access token to an active account.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.User, error)
}

// Auth requires an access token from the Authorization header or, failing
// that, the token cookie. The resolved account is available through
// CurrentUser.
func Auth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return errNoToken
			}
			u, err := a.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetUser(c, u)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); raw != "" {
			return raw
		}
	}
	if ck, err := c.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}
