package service

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/queue"
	"github.com/iliyamo/admin-dashboard/internal/repository"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// memAnalytics answers the reporting queries from in-memory rows.
type memAnalytics struct {
	users    []model.User
	products []model.Product
	err      error
}

func (m *memAnalytics) UserSummary(context.Context) (repository.UserSummary, error) {
	var s repository.UserSummary
	for _, u := range m.users {
		s.Total++
		if u.IsActive {
			s.Active++
		}
	}
	return s, m.err
}

func (m *memAnalytics) CountUsersCreated(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, u := range m.users {
		if !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, m.err
}

func (m *memAnalytics) CountEngagedUsers(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.IsActive && u.LastLogin != nil && !u.LastLogin.Before(since) {
			n++
		}
	}
	return n, m.err
}

func (m *memAnalytics) ProductSummary(_ context.Context, lowStock int64) (repository.ProductSummary, error) {
	var s repository.ProductSummary
	for _, p := range m.products {
		s.Total++
		if !p.IsActive {
			continue
		}
		s.Active++
		if p.Stock <= lowStock {
			s.LowStock++
		}
		if p.Stock == 0 {
			s.OutOfStock++
		}
		if p.Sales.TotalSold > 0 {
			s.WithSales++
		}
		s.Stock += p.Stock
		s.Revenue += p.Sales.Revenue
		s.Units += p.Sales.TotalSold
	}
	return s, m.err
}

func (m *memAnalytics) SalesSince(_ context.Context, since time.Time) ([]repository.SalesPoint, error) {
	var out []repository.SalesPoint
	for _, p := range m.products {
		if p.Sales.Revenue > 0 && !p.UpdatedAt.Before(since) {
			out = append(out, repository.SalesPoint{UpdatedAt: p.UpdatedAt, Revenue: p.Sales.Revenue, Units: p.Sales.TotalSold})
		}
	}
	return out, m.err
}

func (m *memAnalytics) SignupsSince(_ context.Context, since time.Time) ([]repository.Signup, error) {
	var out []repository.Signup
	for _, u := range m.users {
		if !u.CreatedAt.Before(since) {
			out = append(out, repository.Signup{CreatedAt: u.CreatedAt, IsActive: u.IsActive})
		}
	}
	return out, m.err
}

func (m *memAnalytics) CategoryTotals(context.Context) ([]repository.CategoryTotal, error) {
	byCat := map[model.Category]*repository.CategoryTotal{}
	var order []model.Category
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		ct, ok := byCat[p.Category]
		if !ok {
			ct = &repository.CategoryTotal{Category: p.Category}
			byCat[p.Category] = ct
			order = append(order, p.Category)
		}
		ct.Count++
		ct.Revenue += p.Sales.Revenue
		ct.Sales += p.Sales.TotalSold
		ct.AvgPrice += p.Price
	}
	out := make([]repository.CategoryTotal, 0, len(order))
	for _, c := range order {
		ct := *byCat[c]
		ct.AvgPrice /= float64(ct.Count)
		out = append(out, ct)
	}
	return out, m.err
}

func (m *memAnalytics) TopProducts(_ context.Context, by repository.TopSort, limit int) ([]model.Product, error) {
	var out []model.Product
	for _, p := range m.products {
		if p.IsActive && p.Sales.Revenue > 0 {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Product) int {
		switch by {
		case repository.TopBySales:
			return cmp.Compare(b.Sales.TotalSold, a.Sales.TotalSold)
		case repository.TopByRating:
			if c := cmp.Compare(b.Ratings.Average, a.Ratings.Average); c != 0 {
				return c
			}
			return cmp.Compare(b.Ratings.Count, a.Ratings.Count)
		default:
			return cmp.Compare(b.Sales.Revenue, a.Sales.Revenue)
		}
	})
	return out[:min(limit, len(out))], m.err
}

func (m *memAnalytics) RecentUsers(_ context.Context, limit int) ([]model.User, error) {
	out := slices.Clone(m.users)
	slices.SortStableFunc(out, func(a, b model.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out[:min(limit, len(out))], m.err
}

func (m *memAnalytics) RecentProducts(_ context.Context, limit int) ([]model.Product, error) {
	out := slices.Clone(m.products)
	slices.SortStableFunc(out, func(a, b model.Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out[:min(limit, len(out))], m.err
}

// memUsers is a UserStore over a map.
type memUsers struct {
	mu      sync.Mutex
	rows    map[uint64]model.User
	nextID  uint64
	creates int
	now     time.Time
}

func newMemUsers(now time.Time, users ...model.User) *memUsers {
	m := &memUsers{rows: map[uint64]model.User{}, now: now}
	for _, u := range users {
		m.nextID = max(m.nextID, u.ID)
		m.rows[u.ID] = u
	}
	return m
}

func (m *memUsers) List(_ context.Context, q repository.UserQuery) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.rows {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if q.IsActive != nil && u.IsActive != *q.IsActive {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(q.Search)) {
			continue
		}
		all = append(all, u)
	}
	slices.SortFunc(all, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	start := min((q.Page.Page-1)*q.Limit, len(all))
	end := min(start+q.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == model.NormalizeEmail(email) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) EmailTaken(_ context.Context, email string, excludeID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == model.NormalizeEmail(email) && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt, u.UpdatedAt = m.now, m.now
	m.rows[u.ID] = u
	return u.ID, nil
}

func (m *memUsers) Update(_ context.Context, id uint64, p repository.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	m.rows[id] = u
	return nil
}

func (m *memUsers) SetActive(_ context.Context, id uint64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.IsActive = active
	m.rows[id] = u
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.LastLogin = &at
	m.rows[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.PasswordHash = hash
	m.rows[id] = u
	return nil
}

func (m *memUsers) Stats(_ context.Context, recentSince, _ time.Time) (repository.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := repository.UserStats{Growth: []repository.MonthCount{}}
	for _, u := range m.rows {
		s.Total++
		if u.IsActive {
			s.Active++
		}
		if u.Role == model.RoleAdmin {
			s.Admins++
		}
		if !u.CreatedAt.Before(recentSince) {
			s.Recent++
		}
	}
	return s, nil
}

// memProducts is a ProductStore over a map.
type memProducts struct {
	mu      sync.Mutex
	rows    map[uint64]model.Product
	nextID  uint64
	creates int
	updates []repository.ProductPatch
}

func newMemProducts(products ...model.Product) *memProducts {
	m := &memProducts{rows: map[uint64]model.Product{}}
	for _, p := range products {
		m.nextID = max(m.nextID, p.ID)
		m.rows[p.ID] = p
	}
	return m
}

func (m *memProducts) List(context.Context, repository.ProductQuery) ([]model.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Product, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (m *memProducts) GetByID(_ context.Context, id uint64) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) SKUTaken(_ context.Context, sku string, excludeID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.SKU == model.NormalizeSKU(sku) && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) Create(_ context.Context, p model.Product, createdBy uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.nextID++
	p.ID = m.nextID
	p.CreatedBy = &model.UserRef{ID: createdBy}
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *memProducts) Update(_ context.Context, id uint64, patch repository.ProductPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, patch)
	p := m.rows[id]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Sales != nil {
		p.Sales = *patch.Sales
	}
	if patch.Discount != nil {
		p.Discount = *patch.Discount
	}
	p.UpdatedBy = &model.UserRef{ID: patch.UpdatedBy}
	m.rows[id] = p
	return nil
}

func (m *memProducts) SetActive(_ context.Context, id uint64, active bool, by uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[id]
	p.IsActive = active
	p.UpdatedBy = &model.UserRef{ID: by}
	m.rows[id] = p
	return nil
}

func (m *memProducts) Categories(context.Context) ([]string, error) { return []string{}, nil }
func (m *memProducts) Brands(context.Context) ([]string, error) { return []string{}, nil }

func (m *memProducts) LowStock(_ context.Context, threshold int64) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, p := range m.rows {
		if p.IsActive && p.Stock <= threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Popular(context.Context, int) ([]model.Product, error) { return nil, nil }

func (m *memProducts) Stats(context.Context, int64, time.Time) (repository.ProductStats, error) {
	return repository.ProductStats{}, nil
}

// memTokens is a TokenStore over a map keyed by hash.
type memTokens struct {
	mu   sync.Mutex
	rows map[string]memToken
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]memToken{}} }

func (m *memTokens) Store(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[hash] = memToken{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) Consume(_ context.Context, hash string, now time.Time) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[hash]
	if !ok || t.revoked || !now.Before(t.exp) {
		return 0, repository.ErrNotFound
	}
	t.revoked = true
	m.rows[hash] = t
	return t.userID, nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, t := range m.rows {
		if t.userID == userID {
			t.revoked = true
			m.rows[h] = t
		}
	}
	return nil
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type + "." + ev.Action
	}
	return out
}
