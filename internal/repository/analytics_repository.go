package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/admin-dashboard/internal/model"
)

// UserSummary counts all users and the active ones.
type UserSummary struct {
	Total  int64
	Active int64
}

// ProductSummary aggregates the product table. Every field except Total
// and Active covers active products only.
type ProductSummary struct {
	Total      int64
	Active     int64
	LowStock   int64
	OutOfStock int64
	WithSales  int64
	Stock      int64
	Revenue    float64
	Units      int64
}

// SalesPoint is one product's sales counters at its last update.
type SalesPoint struct {
	UpdatedAt time.Time
	Revenue   float64
	Units     int64
}

// Signup is one user's creation time and current state.
type Signup struct {
	CreatedAt time.Time
	IsActive  bool
}

// CategoryTotal aggregates the active products of one category.
type CategoryTotal struct {
	Category model.Category
	Count    int64
	Revenue  float64
	Sales    int64
	AvgPrice float64
}

// TopSort selects the ranking of TopProducts.
type TopSort string

const (
	TopByRevenue TopSort = "revenue"
	TopBySales   TopSort = "sales"
	TopByRating  TopSort = "rating"
)

// AnalyticsRepo runs the read-only queries behind the reporting endpoints.
type AnalyticsRepo struct{ DB *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{DB: db} }

func (r *AnalyticsRepo) UserSummary(ctx context.Context) (UserSummary, error) {
	var s UserSummary
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_active = 1), 0) FROM users").Scan(&s.Total, &s.Active)
	return s, errors.Wrap(err, "user summary")
}

// CountUsersCreated counts users created in [from, to).
func (r *AnalyticsRepo) CountUsersCreated(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).Scan(&n)
	return n, errors.Wrap(err, "count users created")
}

// CountEngagedUsers counts active users that logged in at or after since.
func (r *AnalyticsRepo) CountEngagedUsers(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE is_active = 1 AND last_login >= ?", since.UTC()).Scan(&n)
	return n, errors.Wrap(err, "count engaged users")
}

func (r *AnalyticsRepo) ProductSummary(ctx context.Context, lowStock int64) (ProductSummary, error) {
	var s ProductSummary
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_active = 1), 0),
		       COALESCE(SUM(is_active = 1 AND stock <= ?), 0),
		       COALESCE(SUM(is_active = 1 AND stock = 0), 0),
		       COALESCE(SUM(is_active = 1 AND sales_total_sold > 0), 0),
		       COALESCE(SUM(IF(is_active = 1, stock, 0)), 0),
		       COALESCE(SUM(IF(is_active = 1, sales_revenue, 0)), 0),
		       COALESCE(SUM(IF(is_active = 1, sales_total_sold, 0)), 0)
		FROM products`, lowStock).
		Scan(&s.Total, &s.Active, &s.LowStock, &s.OutOfStock, &s.WithSales, &s.Stock, &s.Revenue, &s.Units)
	return s, errors.Wrap(err, "product summary")
}

// SalesSince returns products with revenue updated at or after since.
func (r *AnalyticsRepo) SalesSince(ctx context.Context, since time.Time) ([]SalesPoint, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT updated_at, sales_revenue, sales_total_sold
		FROM products
		WHERE sales_revenue > 0 AND updated_at >= ?`, since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "sales since")
	}
	defer rows.Close()

	var out []SalesPoint
	for rows.Next() {
		var sp SalesPoint
		if err := rows.Scan(&sp.UpdatedAt, &sp.Revenue, &sp.Units); err != nil {
			return nil, errors.Wrap(err, "scan sales point")
		}
		out = append(out, sp)
	}
	return out, errors.Wrap(rows.Err(), "iterate sales")
}

// SignupsSince returns users created at or after since.
func (r *AnalyticsRepo) SignupsSince(ctx context.Context, since time.Time) ([]Signup, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT created_at, is_active FROM users WHERE created_at >= ?", since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "signups since")
	}
	defer rows.Close()

	var out []Signup
	for rows.Next() {
		var s Signup
		if err := rows.Scan(&s.CreatedAt, &s.IsActive); err != nil {
			return nil, errors.Wrap(err, "scan signup")
		}
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "iterate signups")
}

func (r *AnalyticsRepo) CategoryTotals(ctx context.Context) ([]CategoryTotal, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(sales_revenue), 0), COALESCE(SUM(sales_total_sold), 0), COALESCE(AVG(price), 0)
		FROM products
		WHERE is_active = 1
		GROUP BY category`)
	if err != nil {
		return nil, errors.Wrap(err, "category totals")
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Count, &c.Revenue, &c.Sales, &c.AvgPrice); err != nil {
			return nil, errors.Wrap(err, "scan category total")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterate categories")
}

var topProductOrder = map[TopSort]string{
	TopByRevenue: "p.sales_revenue DESC",
	TopBySales:   "p.sales_total_sold DESC",
	TopByRating:  "p.ratings_average DESC, p.ratings_count DESC",
}

// TopProducts ranks active products with revenue.
func (r *AnalyticsRepo) TopProducts(ctx context.Context, by TopSort, limit int) ([]model.Product, error) {
	order, ok := topProductOrder[by]
	if !ok {
		order = topProductOrder[TopByRevenue]
	}
	pr := ProductRepo{DB: r.DB}
	products, err := pr.queryProducts(ctx, productSelect+
		" WHERE p.is_active = 1 AND p.sales_revenue > 0 ORDER BY "+order+", p.id ASC LIMIT ?", limit)
	return products, errors.Wrap(err, "top products")
}

// RecentUsers returns the newest users regardless of state.
func (r *AnalyticsRepo) RecentUsers(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "recent users")
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan recent user")
		}
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterate recent users")
}

// RecentProducts returns the newest products regardless of state.
func (r *AnalyticsRepo) RecentProducts(ctx context.Context, limit int) ([]model.Product, error) {
	pr := ProductRepo{DB: r.DB}
	products, err := pr.queryProducts(ctx, productSelect+" ORDER BY p.created_at DESC, p.id DESC LIMIT ?", limit)
	return products, errors.Wrap(err, "recent products")
}
