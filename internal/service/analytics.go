package service

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/repository"
)

// AnalyticsStore is the read-only view of the store used by Analytics.
type AnalyticsStore interface {
	UserSummary(ctx context.Context) (repository.UserSummary, error)
	CountUsersCreated(ctx context.Context, from, to time.Time) (int64, error)
	CountEngagedUsers(ctx context.Context, since time.Time) (int64, error)
	ProductSummary(ctx context.Context, lowStock int64) (repository.ProductSummary, error)
	SalesSince(ctx context.Context, since time.Time) ([]repository.SalesPoint, error)
	SignupsSince(ctx context.Context, since time.Time) ([]repository.Signup, error)
	CategoryTotals(ctx context.Context) ([]repository.CategoryTotal, error)
	TopProducts(ctx context.Context, by repository.TopSort, limit int) ([]model.Product, error)
	RecentUsers(ctx context.Context, limit int) ([]model.User, error)
	RecentProducts(ctx context.Context, limit int) ([]model.Product, error)
}

// Reporting periods accepted by SalesTrends and UserGrowth.
const (
	Period7Days    = "7days"
	Period30Days   = "30days"
	Period6Months  = "6months"
	Period12Months = "12months"
)

const (
	defaultTopLimit    = 10
	defaultRecentLimit = 20
	maxReportLimit     = 100
)

type DashboardUsers struct {
	Total        int64   `json:"total"`
	Active       int64   `json:"active"`
	Inactive     int64   `json:"inactive"`
	NewThisMonth int64   `json:"newThisMonth"`
	Growth       float64 `json:"growth"`
}

type DashboardProducts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	LowStock int64 `json:"lowStock"`
}

type DashboardSales struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalSales        int64   `json:"totalSales"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

// Dashboard is the overview shown on the landing page.
type Dashboard struct {
	Users    DashboardUsers    `json:"users"`
	Products DashboardProducts `json:"products"`
	Sales    DashboardSales    `json:"sales"`
}

// TrendPoint is one time bucket of the sales trend.
type TrendPoint struct {
	Period   string  `json:"period"`
	Revenue  float64 `json:"revenue"`
	Sales    int64   `json:"sales"`
	Products int64   `json:"products"`
}

// GrowthPoint is one month of user signups.
type GrowthPoint struct {
	Period      string `json:"period"`
	NewUsers    int64  `json:"newUsers"`
	ActiveUsers int64  `json:"activeUsers"`
}

// CategoryShare is one category of the distribution chart.
type CategoryShare struct {
	Category   model.Category `json:"category"`
	Count      int64          `json:"count"`
	Percentage float64        `json:"percentage"`
	Revenue    float64        `json:"revenue"`
	Sales      int64          `json:"sales"`
	AvgPrice   float64        `json:"avgPrice"`
}

// TopProduct is the reduced product projection of the ranking.
type TopProduct struct {
	ID        uint64         `json:"id"`
	Name      string         `json:"name"`
	Category  model.Category `json:"category"`
	Price     float64        `json:"price"`
	Sales     model.Sales    `json:"sales"`
	Ratings   model.Ratings  `json:"ratings"`
	Stock     int64          `json:"stock"`
	CreatedBy *model.UserRef `json:"createdBy"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	Item      string    `json:"item"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

type Inventory struct {
	Total       int64   `json:"total"`
	LowStock    int64   `json:"lowStock"`
	OutOfStock  int64   `json:"outOfStock"`
	HealthScore float64 `json:"healthScore"`
}

// Performance holds the percentage metrics of the dashboard.
type Performance struct {
	ConversionRate float64   `json:"conversionRate"`
	EngagementRate float64   `json:"engagementRate"`
	Inventory      Inventory `json:"inventory"`
}

// Analytics is the reporting engine. It holds no state of its own; every
// call recomputes from the store.
type Analytics struct {
	store AnalyticsStore
	now   func() time.Time
}

// NewAnalytics builds the engine. now supplies the clock; its location
// decides bucket boundaries.
func NewAnalytics(store AnalyticsStore, now func() time.Time) *Analytics {
	if now == nil {
		now = time.Now
	}
	return &Analytics{store: store, now: now}
}

func (a *Analytics) Dashboard(ctx context.Context) (Dashboard, error) {
	now := a.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := monthStart.AddDate(0, -1, 0)
	nextStart := monthStart.AddDate(0, 1, 0)

	var (
		users           repository.UserSummary
		products        repository.ProductSummary
		thisMonth, prev int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = a.store.UserSummary(gctx)
		return err
	})
	g.Go(func() (err error) {
		thisMonth, err = a.store.CountUsersCreated(gctx, monthStart, nextStart)
		return err
	})
	g.Go(func() (err error) {
		prev, err = a.store.CountUsersCreated(gctx, prevStart, monthStart)
		return err
	})
	g.Go(func() (err error) {
		products, err = a.store.ProductSummary(gctx, model.LowStockThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, errors.Wrap(err, "dashboard")
	}

	return Dashboard{
		Users: DashboardUsers{
			Total:        users.Total,
			Active:       users.Active,
			Inactive:     users.Total - users.Active,
			NewThisMonth: thisMonth,
			Growth:       growthPercent(thisMonth, prev),
		},
		Products: DashboardProducts{
			Total:    products.Total,
			Active:   products.Active,
			Inactive: products.Total - products.Active,
			LowStock: products.LowStock,
		},
		Sales: DashboardSales{
			TotalRevenue:      products.Revenue,
			TotalSales:        products.Units,
			AverageOrderValue: averageOrderValue(products.Revenue, products.Units),
		},
	}, nil
}

// SalesTrends buckets the revenue of recently updated products. Unknown
// periods fall back to six months.
func (a *Analytics) SalesTrends(ctx context.Context, period string) ([]TrendPoint, error) {
	now := a.now()
	since, daily := salesWindow(period, now)

	points, err := a.store.SalesSince(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "sales trends")
	}

	byStart := map[time.Time]*TrendPoint{}
	for _, p := range points {
		if p.Revenue <= 0 || p.UpdatedAt.Before(since) {
			continue
		}
		start := bucketStart(p.UpdatedAt.In(now.Location()), daily)
		tp, ok := byStart[start]
		if !ok {
			tp = &TrendPoint{Period: bucketLabel(start, daily)}
			byStart[start] = tp
		}
		tp.Revenue += p.Revenue
		tp.Sales += p.Units
		tp.Products++
	}

	out := make([]TrendPoint, 0, len(byStart))
	for _, start := range sortedKeys(byStart) {
		out = append(out, *byStart[start])
	}
	return out, nil
}

// UserGrowth groups recent signups by month. Anything but "6months" means
// twelve months.
func (a *Analytics) UserGrowth(ctx context.Context, period string) ([]GrowthPoint, error) {
	now := a.now()
	months := 12
	if period == Period6Months {
		months = 6
	}
	since := now.AddDate(0, -months, 0)

	signups, err := a.store.SignupsSince(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "user growth")
	}

	byStart := map[time.Time]*GrowthPoint{}
	for _, s := range signups {
		if s.CreatedAt.Before(since) {
			continue
		}
		start := bucketStart(s.CreatedAt.In(now.Location()), false)
		gp, ok := byStart[start]
		if !ok {
			gp = &GrowthPoint{Period: bucketLabel(start, false)}
			byStart[start] = gp
		}
		gp.NewUsers++
		if s.IsActive {
			gp.ActiveUsers++
		}
	}

	out := make([]GrowthPoint, 0, len(byStart))
	for _, start := range sortedKeys(byStart) {
		out = append(out, *byStart[start])
	}
	return out, nil
}

// CategoryDistribution reports the share of active products per category,
// largest first.
func (a *Analytics) CategoryDistribution(ctx context.Context) ([]CategoryShare, error) {
	totals, err := a.store.CategoryTotals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "category distribution")
	}

	var all int64
	for _, t := range totals {
		all += t.Count
	}

	out := make([]CategoryShare, 0, len(totals))
	for _, t := range totals {
		out = append(out, CategoryShare{
			Category:   t.Category,
			Count:      t.Count,
			Percentage: percent(t.Count, all),
			Revenue:    t.Revenue,
			Sales:      t.Sales,
			AvgPrice:   round(t.AvgPrice, 2),
		})
	}
	slices.SortStableFunc(out, func(x, y CategoryShare) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Category, y.Category)
	})
	return out, nil
}

// TopProducts ranks active products with revenue by sortBy ("revenue",
// "sales" or "rating"). A zero limit selects the default.
func (a *Analytics) TopProducts(ctx context.Context, limit int, sortBy string) ([]TopProduct, error) {
	by := repository.TopByRevenue
	switch sortBy {
	case string(repository.TopBySales):
		by = repository.TopBySales
	case string(repository.TopByRating):
		by = repository.TopByRating
	}

	products, err := a.store.TopProducts(ctx, by, clampLimit(limit, defaultTopLimit))
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}

	out := make([]TopProduct, 0, len(products))
	for _, p := range products {
		if !p.IsActive || p.Sales.Revenue <= 0 {
			continue
		}
		tp := TopProduct{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
			Sales:    p.Sales,
			Ratings:  p.Ratings,
			Stock:    p.Stock,
		}
		if p.CreatedBy != nil {
			tp.CreatedBy = &model.UserRef{ID: p.CreatedBy.ID, Name: p.CreatedBy.Name}
		}
		out = append(out, tp)
	}
	return out, nil
}

// RecentActivities merges the newest user and product creations into one
// feed, newest first. A zero limit selects the default.
func (a *Analytics) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	limit = clampLimit(limit, defaultRecentLimit)
	half := (limit + 1) / 2

	var (
		users    []model.User
		products []model.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = a.store.RecentUsers(gctx, half)
		return err
	})
	g.Go(func() (err error) {
		products, err = a.store.RecentProducts(gctx, half)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "recent activities")
	}

	feed := make([]Activity, 0, len(users)+len(products))
	for _, u := range users {
		feed = append(feed, Activity{
			Type:      "user",
			Action:    "created",
			Item:      u.Name,
			Details:   "New " + string(u.Role) + " registered",
			Timestamp: u.CreatedAt,
			User:      u.Email,
		})
	}
	for _, p := range products {
		by := "System"
		if p.CreatedBy != nil && p.CreatedBy.Name != "" {
			by = p.CreatedBy.Name
		}
		feed = append(feed, Activity{
			Type:      "product",
			Action:    "created",
			Item:      p.Name,
			Details:   "New product in " + string(p.Category),
			Timestamp: p.CreatedAt,
			User:      by,
		})
	}

	slices.SortStableFunc(feed, func(x, y Activity) int {
		return y.Timestamp.Compare(x.Timestamp)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

func (a *Analytics) PerformanceMetrics(ctx context.Context) (Performance, error) {
	now := a.now()

	var (
		users    repository.UserSummary
		products repository.ProductSummary
		engaged  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = a.store.UserSummary(gctx)
		return err
	})
	g.Go(func() (err error) {
		engaged, err = a.store.CountEngagedUsers(gctx, now.AddDate(0, -1, 0))
		return err
	})
	g.Go(func() (err error) {
		products, err = a.store.ProductSummary(gctx, model.LowStockThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return Performance{}, errors.Wrap(err, "performance metrics")
	}

	return Performance{
		ConversionRate: percent(products.WithSales, products.Active),
		EngagementRate: percent(engaged, users.Active),
		Inventory: Inventory{
			Total:       products.Stock,
			LowStock:    products.LowStock,
			OutOfStock:  products.OutOfStock,
			HealthScore: percent(products.Stock-products.OutOfStock, products.Stock),
		},
	}, nil
}

// salesWindow returns the window start and whether buckets are daily.
func salesWindow(period string, now time.Time) (time.Time, bool) {
	switch period {
	case Period7Days:
		return now.Add(-7 * 24 * time.Hour), true
	case Period30Days:
		return now.Add(-30 * 24 * time.Hour), true
	case Period12Months:
		return now.AddDate(0, -12, 0), false
	default:
		return now.AddDate(0, -6, 0), false
	}
}

func bucketStart(t time.Time, daily bool) time.Time {
	if daily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func bucketLabel(start time.Time, daily bool) string {
	if daily {
		return start.Format(time.DateOnly)
	}
	return start.Format("Jan 2006")
}

func sortedKeys[V any](m map[time.Time]V) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y time.Time) int { return x.Compare(y) })
	return keys
}

// growthPercent is the month-over-month change. Growth from nothing is
// reported as 100.
func growthPercent(cur, prev int64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return round(float64(cur-prev)/float64(prev)*100, 1)
}

func averageOrderValue(revenue float64, units int64) float64 {
	if units <= 0 {
		return 0
	}
	return round(revenue/float64(units), 2)
}

// percent is part/whole as a percentage with one decimal, clamped to
// [0, 100]. A zero whole yields 0.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return round(min(max(float64(part)/float64(whole)*100, 0), 100), 1)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// clampLimit maps 0 to def and anything else into [1, maxReportLimit].
func clampLimit(n, def int) int {
	if n == 0 {
		return def
	}
	return min(max(n, 1), maxReportLimit)
}
