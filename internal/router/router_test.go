package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/handler"
	"github.com/iliyamo/admin-dashboard/internal/model"
)

type tokenTable map[string]model.User

func (t tokenTable) Authenticate(_ context.Context, raw string) (model.User, error) {
	if u, ok := t[raw]; ok {
		return u, nil
	}
	return model.User{}, apperr.Unauthorized("Invalid token.")
}

func newServer() *echo.Echo {
	return newServerWith(Caching{})
}

func newServerWith(caching Caching) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	now := func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	Register(e, Handlers{
		Auth:      handler.NewAuthHandler(nil, false),
		Users:     handler.NewUserHandler(nil),
		Products:  handler.NewProductHandler(nil, now),
		Analytics: handler.NewAnalyticsHandler(nil),
		Now:       now,
	}, tokenTable{
		"user-token":  {ID: 2, Role: model.RoleUser, IsActive: true},
		"admin-token": {ID: 1, Role: model.RoleAdmin, IsActive: true},
	}, caching)
	return e
}

func TestProtectedRoutes(t *testing.T) {
	e := newServer()
	paths := []string{
		"/api/analytics/dashboard",
		"/api/analytics/sales-trends",
		"/api/analytics/user-growth",
		"/api/analytics/category-distribution",
		"/api/analytics/top-products",
		"/api/analytics/recent-activities",
		"/api/analytics/performance-metrics",
		"/api/users",
		"/api/products/brands/list",
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
		assert.JSONEq(t, `{"message":"Access denied. No token provided."}`, rec.Body.String(), p)

		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer user-token")
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, p)
		assert.JSONEq(t, `{"message":"Access denied. Admin privileges required."}`, rec.Body.String(), p)
	}
}

func TestPublicRoutes(t *testing.T) {
	e := newServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Route not found"}`, rec.Body.String())
}

func TestProductWritesEvictCachedLookups(t *testing.T) {
	var served, evicted []string
	tag := func(into *[]string) echo.MiddlewareFunc {
		return func(echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				*into = append(*into, c.Request().Method+" "+c.Path())
				return c.NoContent(http.StatusNoContent)
			}
		}
	}
	e := newServerWith(Caching{Serve: tag(&served), Evict: tag(&evicted)})

	requests := [][2]string{
		{http.MethodGet, "/api/products/categories/list"},
		{http.MethodGet, "/api/products/brands/list"},
		{http.MethodPost, "/api/products"},
		{http.MethodPut, "/api/products/7"},
		{http.MethodDelete, "/api/products/7"},
		{http.MethodPut, "/api/products/7/activate"},
	}
	for _, r := range requests {
		req := httptest.NewRequest(r[0], r[1], nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer admin-token")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, r[1])
	}

	assert.Equal(t, []string{"GET " + CategoriesRoute, "GET " + BrandsRoute}, served)
	assert.Equal(t, []string{
		"POST /api/products",
		"PUT /api/products/:id",
		"DELETE /api/products/:id",
		"PUT /api/products/:id/activate",
	}, evicted)
}
