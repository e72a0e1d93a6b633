package repository

import (
	"strings"
	"time"

	"github.com/iliyamo/admin-dashboard/internal/model"
)

// Page selects a 1-based page of Limit rows.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// UserQuery filters the user listing. Zero values disable a filter.
type UserQuery struct {
	Page
	Search    string
	Role      model.Role
	IsActive  *bool
	SortBy    string
	SortOrder string
}

// ProductQuery filters the product listing. Zero values disable a filter.
type ProductQuery struct {
	Page
	Search    string
	Category  model.Category
	Brand     string
	MinPrice  *float64
	MaxPrice  *float64
	IsActive  *bool
	SortBy    string
	SortOrder string
}

// UserPatch lists the user columns an update may touch. Nil fields are left
// unchanged.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *model.Role
	Avatar   *string
	IsActive *bool
}

// ProductPatch lists the product columns an update may touch. Nil fields are
// left unchanged; UpdatedBy is always written.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *model.Category
	Brand       *string
	SKU         *string
	Stock       *int64
	Images      *[]string
	Tags        *[]string
	IsActive    *bool
	Discount    *model.Discount
	Ratings     *model.Ratings
	Sales       *model.Sales
	UpdatedBy   uint64
}

// MonthCount is the number of rows created in one calendar month.
type MonthCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// UserStats backs the user overview endpoint.
type UserStats struct {
	Total  int64
	Active int64
	Admins int64
	Recent int64
	Growth []MonthCount
}

// CategoryCount is the number of active products in a category.
type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int64          `json:"count"`
}

// RevenueStats sums the sales counters of active products.
type RevenueStats struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalSold    int64   `json:"totalSold"`
	AvgPrice     float64 `json:"avgPrice"`
}

// ProductStats backs the product overview endpoint.
type ProductStats struct {
	Total      int64
	Active     int64
	LowStock   int64
	OutOfStock int64
	Recent     int64
	Categories []CategoryCount
	Revenue    RevenueStats
}

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"lastLogin": "last_login",
}

var productSortColumns = map[string]string{
	"createdAt":       "p.created_at",
	"updatedAt":       "p.updated_at",
	"name":            "p.name",
	"price":           "p.price",
	"stock":           "p.stock",
	"category":        "p.category",
	"sales.totalSold": "p.sales_total_sold",
	"sales.revenue":   "p.sales_revenue",
	"ratings.average": "p.ratings_average",
}

// orderBy resolves an API sort field against an allow-list, falling back to
// fallback, and appends the id as a tie breaker.
func orderBy(columns map[string]string, sortBy, order, fallback, idCol string) string {
	col, ok := columns[sortBy]
	if !ok {
		col = columns[fallback]
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + ", " + idCol + " " + dir
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// assignments accumulates the SET list of an UPDATE.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(col string, v any) {
	a.cols = append(a.cols, col+"=?")
	a.args = append(a.args, v)
}

func (a assignments) String() string { return strings.Join(a.cols, ", ") }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds a LIKE pattern matching s anywhere.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func userWhere(q UserQuery) where {
	var w where
	if s := strings.TrimSpace(q.Search); s != "" {
		w.add("(name LIKE ? OR email LIKE ?)", contains(s), contains(s))
	}
	if q.Role != "" {
		w.add("role = ?", string(q.Role))
	}
	if q.IsActive != nil {
		w.add("is_active = ?", *q.IsActive)
	}
	return w
}

func productWhere(q ProductQuery) where {
	var w where
	if s := strings.TrimSpace(q.Search); s != "" {
		w.add("(p.name LIKE ? OR p.description LIKE ? OR p.brand LIKE ? OR JSON_SEARCH(p.tags, 'one', ?) IS NOT NULL)",
			contains(s), contains(s), contains(s), contains(strings.ToLower(s)))
	}
	if q.Category != "" {
		w.add("p.category = ?", string(q.Category))
	}
	if b := strings.TrimSpace(q.Brand); b != "" {
		w.add("p.brand LIKE ?", contains(b))
	}
	if q.MinPrice != nil {
		w.add("p.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		w.add("p.price <= ?", *q.MaxPrice)
	}
	if q.IsActive != nil {
		w.add("p.is_active = ?", *q.IsActive)
	}
	return w
}

// nullTime converts an optional timestamp into a driver value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
