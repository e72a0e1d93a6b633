// Package handler adapts HTTP requests to the service layer. Handlers bind and
// validate input, call one service method and render JSON; failures are
// returned as errors and rendered by ErrorHandler.
package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/middleware"
	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/service"
)

const requestTimeout = 5 * time.Second

var errBadBody = apperr.BadRequest("Invalid request body")

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the body into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errBadBody.Wrap(err)
	}
	return c.Validate(dst)
}

// pathID parses the :id segment; malformed ids yield a 400 with msg.
func pathID(c echo.Context, msg string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest(msg)
	}
	return id, nil
}

// actor is the authenticated caller. Routes using it sit behind Auth.
func actor(c echo.Context) (model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return model.User{}, apperr.Unauthorized("Access denied. No token provided.")
	}
	return u, nil
}

// queryInt returns def when the parameter is absent or not an integer.
func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil {
		return def
	}
	return n
}

// queryBool accepts "true" and "false"; anything else means no filter.
func queryBool(c echo.Context, name string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.QueryParam(name))) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation(name + " must be a number")
	}
	return &f, nil
}

// pageJSON renders a Pagination with the listing-specific total key.
func pageJSON(p service.Pagination, totalKey string) echo.Map {
	return echo.Map{
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		totalKey:      p.Total,
		"hasNextPage": p.HasNextPage,
		"hasPrevPage": p.HasPrevPage,
		"limit":       p.Limit,
	}
}
