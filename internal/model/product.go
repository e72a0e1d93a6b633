package model

import (
	"strings"
	"time"
)

// LowStockThreshold is the inclusive stock level at or below which a product
// counts as low on stock.
const LowStockThreshold = 10

// Category is the fixed product taxonomy.
type Category string

const (
	CategoryElectronics   Category = "Electronics"
	CategoryClothing      Category = "Clothing"
	CategoryBooks         Category = "Books"
	CategoryHomeGarden    Category = "Home & Garden"
	CategorySports        Category = "Sports"
	CategoryBeauty        Category = "Beauty"
	CategoryAutomotive    Category = "Automotive"
	CategoryFoodBeverages Category = "Food & Beverages"
	CategoryToys          Category = "Toys"
	CategoryOther         Category = "Other"
)

var Categories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryHomeGarden,
	CategorySports,
	CategoryBeauty,
	CategoryAutomotive,
	CategoryFoodBeverages,
	CategoryToys,
	CategoryOther,
}

// Valid reports whether c is part of the taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Stock status labels.
const (
	StockOut = "Out of Stock"
	StockLow = "Low Stock"
	StockIn  = "In Stock"
)

// Discount is an optional percentage reduction with an optional active window.
// Nil bounds are open.
type Discount struct {
	Percentage float64    `json:"percentage"`
	StartDate  *time.Time `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
}

// ActiveAt reports whether the discount applies at t.
func (d Discount) ActiveAt(t time.Time) bool {
	if d.Percentage <= 0 {
		return false
	}
	if d.StartDate != nil && d.StartDate.After(t) {
		return false
	}
	if d.EndDate != nil && d.EndDate.Before(t) {
		return false
	}
	return true
}

type Ratings struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// Sales holds cumulative sales counters. Both values only grow under normal
// operation.
type Sales struct {
	TotalSold int64   `json:"totalSold"`
	Revenue   float64 `json:"revenue"`
}

// UserRef is the resolved identity of a creator or last updater.
type UserRef struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Product mirrors the `products` table with the creator and updater joined in.
type Product struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    Category  `json:"category"`
	Brand       string    `json:"brand"`
	SKU         string    `json:"sku"`
	Stock       int64     `json:"stock"`
	Images      []string  `json:"images"`
	Tags        []string  `json:"tags"`
	IsActive    bool      `json:"isActive"`
	Discount    Discount  `json:"discount"`
	Ratings     Ratings   `json:"ratings"`
	Sales       Sales     `json:"sales"`
	CreatedBy   *UserRef  `json:"createdBy"`
	UpdatedBy   *UserRef  `json:"updatedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DiscountedPrice applies the discount when it is active at now.
func (p Product) DiscountedPrice(now time.Time) float64 {
	if p.Discount.ActiveAt(now) {
		return p.Price * (1 - p.Discount.Percentage/100)
	}
	return p.Price
}

// StockStatus classifies the current stock level.
func (p Product) StockStatus() string {
	switch {
	case p.Stock <= 0:
		return StockOut
	case p.Stock <= LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// NormalizeSKU trims and upper-cases a SKU so uniqueness is case-insensitive.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// NormalizeTags trims and lower-cases tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
