package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/service"
)

const invalidProductID = "Invalid product ID"

// ProductHandler serves /api/products. Every route requires an admin.
type ProductHandler struct {
	svc *service.Products
	now func() time.Time
}

func NewProductHandler(svc *service.Products, now func() time.Time) *ProductHandler {
	return &ProductHandler{svc: svc, now: now}
}

// productJSON adds the derived fields clients display next to a product.
type productJSON struct {
	model.Product
	DiscountedPrice float64 `json:"discountedPrice"`
	StockStatus     string  `json:"stockStatus"`
}

func (h *ProductHandler) view(p model.Product) productJSON {
	return productJSON{Product: p, DiscountedPrice: p.DiscountedPrice(h.now()), StockStatus: p.StockStatus()}
}

func (h *ProductHandler) views(ps []model.Product) []productJSON {
	out := make([]productJSON, len(ps))
	for i, p := range ps {
		out[i] = h.view(p)
	}
	return out
}

func (h *ProductHandler) List(c echo.Context) error {
	minPrice, err := queryFloat(c, "minPrice")
	if err != nil {
		return err
	}
	maxPrice, err := queryFloat(c, "maxPrice")
	if err != nil {
		return err
	}
	in := service.ListProductsInput{
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
		Search:    strings.TrimSpace(c.QueryParam("search")),
		Category:  model.Category(c.QueryParam("category")),
		Brand:     strings.TrimSpace(c.QueryParam("brand")),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		IsActive:  queryBool(c, "isActive"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	products, page, err := h.svc.List(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"products": h.views(products), "pagination": pageJSON(page, "totalProducts")})
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, invalidProductID)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"product": h.view(p)})
}

func (h *ProductHandler) Create(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	var req service.CreateProductInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.svc.Create(ctx, req, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Product created successfully", "product": h.view(p)})
}

func (h *ProductHandler) Update(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, invalidProductID)
	if err != nil {
		return err
	}
	var req service.UpdateProductInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.svc.Update(ctx, id, req, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Product updated successfully", "product": h.view(p)})
}

// Delete deactivates the product; rows are never removed.
func (h *ProductHandler) Delete(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, invalidProductID)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.svc.Deactivate(ctx, id, me.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deactivated successfully"})
}

func (h *ProductHandler) Activate(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, invalidProductID)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.svc.Activate(ctx, id, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Product activated successfully", "product": h.view(p)})
}

func (h *ProductHandler) Categories(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	cats, err := h.svc.Categories(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}

func (h *ProductHandler) Brands(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	brands, err := h.svc.Brands(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"brands": brands})
}

func (h *ProductHandler) LowStock(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	products, err := h.svc.LowStock(ctx, int64(queryInt(c, "threshold", model.LowStockThreshold)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"products": h.views(products)})
}

func (h *ProductHandler) Popular(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	products, err := h.svc.Popular(ctx, queryInt(c, "limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"products": h.views(products)})
}

func (h *ProductHandler) Overview(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	o, err := h.svc.Overview(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
