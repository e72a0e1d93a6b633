package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/queue"
	"github.com/iliyamo/admin-dashboard/internal/repository"
)

// ProductStore is the persistence used by Products.
type ProductStore interface {
	List(ctx context.Context, q repository.ProductQuery) ([]model.Product, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Product, error)
	SKUTaken(ctx context.Context, sku string, excludeID uint64) (bool, error)
	Create(ctx context.Context, p model.Product, createdBy uint64) (uint64, error)
	Update(ctx context.Context, id uint64, p repository.ProductPatch) error
	SetActive(ctx context.Context, id uint64, active bool, by uint64) error
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
	LowStock(ctx context.Context, threshold int64) ([]model.Product, error)
	Popular(ctx context.Context, limit int) ([]model.Product, error)
	Stats(ctx context.Context, lowStock int64, recentSince time.Time) (repository.ProductStats, error)
}

type DiscountInput struct {
	Percentage float64    `json:"percentage" validate:"gte=0,lte=100"`
	StartDate  *time.Time `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
}

type RatingsInput struct {
	Average float64 `json:"average" validate:"gte=0,lte=5"`
	Count   int64   `json:"count" validate:"gte=0"`
}

type SalesInput struct {
	TotalSold int64   `json:"totalSold" validate:"gte=0"`
	Revenue   float64 `json:"revenue" validate:"gte=0"`
}

type CreateProductInput struct {
	Name        string         `json:"name" validate:"required,max=100"`
	Description string         `json:"description" validate:"required,max=1000"`
	Price       *float64       `json:"price" validate:"required,gte=0"`
	Category    model.Category `json:"category" validate:"required,category"`
	Brand       string         `json:"brand" validate:"max=50"`
	SKU         string         `json:"sku" validate:"required,max=64"`
	Stock       int64          `json:"stock" validate:"gte=0"`
	Images      []string       `json:"images" validate:"max=10,dive,imageurl"`
	Tags        []string       `json:"tags" validate:"max=20,dive,max=30"`
	IsActive    *bool          `json:"isActive"`
	Discount    *DiscountInput `json:"discount"`
}

// UpdateProductInput is a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string         `json:"description" validate:"omitempty,min=1,max=1000"`
	Price       *float64        `json:"price" validate:"omitempty,gte=0"`
	Category    *model.Category `json:"category" validate:"omitempty,category"`
	Brand       *string         `json:"brand" validate:"omitempty,max=50"`
	SKU         *string         `json:"sku" validate:"omitempty,min=1,max=64"`
	Stock       *int64          `json:"stock" validate:"omitempty,gte=0"`
	Images      *[]string       `json:"images" validate:"omitempty,max=10,dive,imageurl"`
	Tags        *[]string       `json:"tags" validate:"omitempty,max=20,dive,max=30"`
	IsActive    *bool           `json:"isActive"`
	Discount    *DiscountInput  `json:"discount"`
	Ratings     *RatingsInput   `json:"ratings"`
	Sales       *SalesInput     `json:"sales"`
}

// ListProductsInput is the parsed query string of the product listing.
type ListProductsInput struct {
	Page      int
	Limit     int
	Search    string
	Category  model.Category
	Brand     string
	MinPrice  *float64
	MaxPrice  *float64
	IsActive  *bool
	SortBy    string
	SortOrder string
}

// ProductOverview backs GET /products/stats/overview.
type ProductOverview struct {
	TotalProducts      int64                      `json:"totalProducts"`
	ActiveProducts     int64                      `json:"activeProducts"`
	InactiveProducts   int64                      `json:"inactiveProducts"`
	LowStockProducts   int64                      `json:"lowStockProducts"`
	OutOfStockProducts int64                      `json:"outOfStockProducts"`
	RecentProducts     int64                      `json:"recentProducts"`
	CategoryStats      []repository.CategoryCount `json:"categoryStats"`
	Revenue            repository.RevenueStats    `json:"revenue"`
}

// Products manages the catalogue.
type Products struct {
	store  ProductStore
	events queue.Publisher
	now    func() time.Time
	log    *slog.Logger
}

func NewProducts(store ProductStore, events queue.Publisher, now func() time.Time, log *slog.Logger) *Products {
	return &Products{store: store, events: events, now: now, log: log}
}

func (d *DiscountInput) toModel() (model.Discount, error) {
	if d.StartDate != nil && d.EndDate != nil && d.EndDate.Before(*d.StartDate) {
		return model.Discount{}, apperr.Validation("discount.endDate must not be before discount.startDate")
	}
	return model.Discount{Percentage: d.Percentage, StartDate: d.StartDate, EndDate: d.EndDate}, nil
}

func (s *Products) List(ctx context.Context, in ListProductsInput) ([]model.Product, Pagination, error) {
	page, limit := normalizePage(in.Page, in.Limit)
	products, total, err := s.store.List(ctx, repository.ProductQuery{
		Page:      repository.Page{Page: page, Limit: limit},
		Search:    in.Search,
		Category:  in.Category,
		Brand:     in.Brand,
		MinPrice:  in.MinPrice,
		MaxPrice:  in.MaxPrice,
		IsActive:  in.IsActive,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
	})
	if err != nil {
		return nil, Pagination{}, errors.Wrap(err, "list products")
	}
	return products, newPagination(page, limit, total), nil
}

func (s *Products) Get(ctx context.Context, id uint64) (model.Product, error) {
	p, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Product{}, ErrProductNotFound
	}
	return p, errors.Wrap(err, "get product")
}

// Create inserts a product owned by actorID. The SKU is upper-cased before
// the uniqueness check, so SKUs differing only in case collide.
func (s *Products) Create(ctx context.Context, in CreateProductInput, actorID uint64) (model.Product, error) {
	sku := model.NormalizeSKU(in.SKU)
	taken, err := s.store.SKUTaken(ctx, sku, 0)
	if err != nil {
		return model.Product{}, err
	}
	if taken {
		return model.Product{}, ErrSKUTaken
	}

	p := model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       *in.Price,
		Category:    in.Category,
		Brand:       strings.TrimSpace(in.Brand),
		SKU:         sku,
		Stock:       in.Stock,
		Images:      in.Images,
		Tags:        model.NormalizeTags(in.Tags),
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if in.Discount != nil {
		if p.Discount, err = in.Discount.toModel(); err != nil {
			return model.Product{}, err
		}
	}

	id, err := s.store.Create(ctx, p, actorID)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Product{}, ErrSKUTaken.Wrap(err)
	}
	if err != nil {
		return model.Product{}, errors.Wrap(err, "create product")
	}

	created, err := s.Get(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	publish(ctx, s.events, s.log, queue.TypeProduct, queue.ActionCreated, created.ID, created.Name, actorID, s.now())
	return created, nil
}

func (s *Products) Update(ctx context.Context, id uint64, in UpdateProductInput, actorID uint64) (model.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.Product{}, err
	}

	patch := repository.ProductPatch{
		Name:        trimmed(in.Name),
		Description: trimmed(in.Description),
		Price:       in.Price,
		Category:    in.Category,
		Brand:       trimmed(in.Brand),
		Stock:       in.Stock,
		Images:      in.Images,
		Tags:        in.Tags,
		IsActive:    in.IsActive,
		UpdatedBy:   actorID,
	}
	if in.SKU != nil {
		sku := model.NormalizeSKU(*in.SKU)
		taken, err := s.store.SKUTaken(ctx, sku, id)
		if err != nil {
			return model.Product{}, err
		}
		if taken {
			return model.Product{}, ErrSKUTaken
		}
		patch.SKU = &sku
	}
	if in.Discount != nil {
		d, err := in.Discount.toModel()
		if err != nil {
			return model.Product{}, err
		}
		patch.Discount = &d
	}
	if in.Ratings != nil {
		patch.Ratings = &model.Ratings{Average: in.Ratings.Average, Count: in.Ratings.Count}
	}
	if in.Sales != nil {
		patch.Sales = &model.Sales{TotalSold: in.Sales.TotalSold, Revenue: in.Sales.Revenue}
	}

	err := s.store.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Product{}, ErrSKUTaken.Wrap(err)
	}
	if err != nil {
		return model.Product{}, errors.Wrap(err, "update product")
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	publish(ctx, s.events, s.log, queue.TypeProduct, queue.ActionUpdated, p.ID, p.Name, actorID, s.now())
	return p, nil
}

func (s *Products) Deactivate(ctx context.Context, id, actorID uint64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, false, actorID); err != nil {
		return errors.Wrap(err, "deactivate product")
	}
	publish(ctx, s.events, s.log, queue.TypeProduct, queue.ActionDeactivated, p.ID, p.Name, actorID, s.now())
	return nil
}

func (s *Products) Activate(ctx context.Context, id, actorID uint64) (model.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.Product{}, err
	}
	if err := s.store.SetActive(ctx, id, true, actorID); err != nil {
		return model.Product{}, errors.Wrap(err, "activate product")
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	publish(ctx, s.events, s.log, queue.TypeProduct, queue.ActionActivated, p.ID, p.Name, actorID, s.now())
	return p, nil
}

func (s *Products) Categories(ctx context.Context) ([]string, error) {
	c, err := s.store.Categories(ctx)
	return c, errors.Wrap(err, "list categories")
}

func (s *Products) Brands(ctx context.Context) ([]string, error) {
	b, err := s.store.Brands(ctx)
	return b, errors.Wrap(err, "list brands")
}

// LowStock lists active products at or below threshold; a negative threshold
// selects the default.
func (s *Products) LowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	if threshold < 0 {
		threshold = model.LowStockThreshold
	}
	p, err := s.store.LowStock(ctx, threshold)
	return p, errors.Wrap(err, "low stock products")
}

func (s *Products) Popular(ctx context.Context, limit int) ([]model.Product, error) {
	_, limit = normalizePage(1, limit)
	p, err := s.store.Popular(ctx, limit)
	return p, errors.Wrap(err, "popular products")
}

// Overview counts products; recent means the last 30 days.
func (s *Products) Overview(ctx context.Context) (ProductOverview, error) {
	st, err := s.store.Stats(ctx, model.LowStockThreshold, s.now().Add(-30*24*time.Hour))
	if err != nil {
		return ProductOverview{}, errors.Wrap(err, "product overview")
	}
	return ProductOverview{
		TotalProducts:      st.Total,
		ActiveProducts:     st.Active,
		InactiveProducts:   st.Total - st.Active,
		LowStockProducts:   st.LowStock,
		OutOfStockProducts: st.OutOfStock,
		RecentProducts:     st.Recent,
		CategoryStats:      st.Categories,
		Revenue:            st.Revenue,
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
