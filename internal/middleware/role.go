package middleware

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/model"
)

var errNotAdmin = apperr.Forbidden("Access denied. Admin privileges required.")

// RequireRole must run after Auth. Callers whose role is not listed get 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return errNoToken
			}
			if !slices.Contains(roles, u.Role) {
				return errNotAdmin
			}
			return next(c)
		}
	}
}
