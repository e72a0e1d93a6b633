// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/handler"
	"github.com/iliyamo/admin-dashboard/internal/middleware"
	"github.com/iliyamo/admin-dashboard/internal/model"
)

// Handlers bundles everything the API routes dispatch to.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Products  *handler.ProductHandler
	Analytics *handler.AnalyticsHandler
	Now       func() time.Time
}

// Cached product lookups. Product writes evict them.
const (
	CategoriesRoute = "/api/products/categories/list"
	BrandsRoute     = "/api/products/brands/list"
)

// Caching carries the response cache for the product lookups and the
// middleware that evicts it on product writes. Nil fields disable that side.
type Caching struct {
	Serve echo.MiddlewareFunc
	Evict echo.MiddlewareFunc
}

// Register mounts the API under /api. authn resolves access tokens.
func Register(e *echo.Echo, h Handlers, authn middleware.Authenticator, caching Caching) {
	cache, evict := orNoop(caching.Serve), orNoop(caching.Evict)

	api := e.Group("/api")
	api.GET("/health", handler.Health(h.Now))

	requireAuth := middleware.Auth(authn)
	adminOnly := []echo.MiddlewareFunc{requireAuth, middleware.RequireRole(model.RoleAdmin)}

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout, requireAuth)
	auth.GET("/me", h.Auth.Me, requireAuth)
	auth.PUT("/profile", h.Auth.UpdateProfile, requireAuth)

	users := api.Group("/users", adminOnly...)
	users.GET("", h.Users.List)
	users.GET("/stats/overview", h.Users.Overview)
	users.GET("/:id", h.Users.Get)
	users.POST("", h.Users.Create)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)
	users.PUT("/:id/activate", h.Users.Activate)

	products := api.Group("/products", adminOnly...)
	products.GET("", h.Products.List)
	products.GET("/categories/list", h.Products.Categories, cache)
	products.GET("/brands/list", h.Products.Brands, cache)
	products.GET("/low-stock", h.Products.LowStock)
	products.GET("/popular", h.Products.Popular)
	products.GET("/stats/overview", h.Products.Overview)
	products.GET("/:id", h.Products.Get)
	products.POST("", h.Products.Create, evict)
	products.PUT("/:id", h.Products.Update, evict)
	products.DELETE("/:id", h.Products.Delete, evict)
	products.PUT("/:id/activate", h.Products.Activate, evict)

	analytics := api.Group("/analytics", adminOnly...)
	analytics.GET("/dashboard", h.Analytics.Dashboard)
	analytics.GET("/sales-trends", h.Analytics.SalesTrends)
	analytics.GET("/user-growth", h.Analytics.UserGrowth)
	analytics.GET("/category-distribution", h.Analytics.CategoryDistribution)
	analytics.GET("/top-products", h.Analytics.TopProducts)
	analytics.GET("/recent-activities", h.Analytics.RecentActivities)
	analytics.GET("/performance-metrics", h.Analytics.PerformanceMetrics)
}

func orNoop(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}
