package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/model"
)

const userContextKey = "user"

// SetUser stores the authenticated account on the request context.
func SetUser(c echo.Context, u model.User) { c.Set(userContextKey, u) }

// CurrentUser returns the account stored by Auth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}

// identity names the caller for rate limit keys: the user id when
// authenticated, "anon" otherwise.
func identity(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
