package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/service"
)

// AnalyticsHandler serves /api/analytics. Responses are computed on every
// request and never cached.
type AnalyticsHandler struct {
	svc *service.Analytics
}

func NewAnalyticsHandler(svc *service.Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) Dashboard(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *AnalyticsHandler) SalesTrends(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	trends, err := h.svc.SalesTrends(ctx, c.QueryParam("period"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"trends": trends})
}

func (h *AnalyticsHandler) UserGrowth(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	growth, err := h.svc.UserGrowth(ctx, c.QueryParam("period"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"growth": growth})
}

func (h *AnalyticsHandler) CategoryDistribution(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	dist, err := h.svc.CategoryDistribution(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"distribution": dist})
}

func (h *AnalyticsHandler) TopProducts(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	products, err := h.svc.TopProducts(ctx, queryInt(c, "limit", 0), c.QueryParam("sortBy"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

func (h *AnalyticsHandler) RecentActivities(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	activities, err := h.svc.RecentActivities(ctx, queryInt(c, "limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": activities})
}

func (h *AnalyticsHandler) PerformanceMetrics(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.svc.PerformanceMetrics(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}
