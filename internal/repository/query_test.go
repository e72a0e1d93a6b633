package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/admin-dashboard/internal/model"
)

func TestOrderBy(t *testing.T) {
	assert.Equal(t, " ORDER BY name ASC, id ASC",
		orderBy(userSortColumns, "name", "ASC", "createdAt", "id"))
	assert.Equal(t, " ORDER BY created_at DESC, id DESC",
		orderBy(userSortColumns, "password_hash; DROP TABLE users", "", "createdAt", "id"))
	assert.Equal(t, " ORDER BY p.sales_revenue DESC, p.id DESC",
		orderBy(productSortColumns, "sales.revenue", "desc", "createdAt", "p.id"))
}

func TestUserWhere(t *testing.T) {
	assert.Empty(t, userWhere(UserQuery{}).String())

	active := false
	w := userWhere(UserQuery{Search: " 50%_off ", Role: model.RoleAdmin, IsActive: &active})
	assert.Equal(t, " WHERE (name LIKE ? OR email LIKE ?) AND role = ? AND is_active = ?", w.String())
	assert.Equal(t, []any{`%50\%\_off%`, `%50\%\_off%`, "admin", false}, w.args)
}

func TestProductWhere(t *testing.T) {
	minP, maxP := 10.0, 99.5
	active := true
	w := productWhere(ProductQuery{
		Search:   "Phone",
		Category: model.CategoryElectronics,
		Brand:    "acme",
		MinPrice: &minP,
		MaxPrice: &maxP,
		IsActive: &active,
	})
	assert.Equal(t, " WHERE (p.name LIKE ? OR p.description LIKE ? OR p.brand LIKE ? OR JSON_SEARCH(p.tags, 'one', ?) IS NOT NULL)"+
		" AND p.category = ? AND p.brand LIKE ? AND p.price >= ? AND p.price <= ? AND p.is_active = ?", w.String())
	assert.Equal(t, []any{"%Phone%", "%Phone%", "%Phone%", "%phone%", "Electronics", "%acme%", 10.0, 99.5, true}, w.args)
}

func TestAssignmentsAndOffset(t *testing.T) {
	var a assignments
	a.set("name", "x")
	a.set("updated_by", uint64(3))
	assert.Equal(t, "name=?, updated_by=?", a.String())
	assert.Equal(t, []any{"x", uint64(3)}, a.args)

	assert.Equal(t, 0, Page{Page: 1, Limit: 10}.offset())
	assert.Equal(t, 20, Page{Page: 3, Limit: 10}.offset())
	assert.Equal(t, 0, Page{Page: 0, Limit: 10}.offset())
}

func TestNullTimeAndLists(t *testing.T) {
	assert.Nil(t, nullTime(nil))
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, ts.UTC(), nullTime(&ts))

	s, err := encodeList(nil)
	assert.NoError(t, err)
	assert.Equal(t, "[]", s)

	var out []string
	assert.NoError(t, decodeList([]byte(`["a","b"]`), &out))
	assert.Equal(t, []string{"a", "b"}, out)
	assert.NoError(t, decodeList(nil, &out))
	assert.Equal(t, []string{}, out)
}
