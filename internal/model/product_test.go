package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProduct_StockStatus(t *testing.T) {
	cases := []struct {
		stock int64
		want  string
	}{
		{0, StockOut},
		{1, StockLow},
		{10, StockLow},
		{11, StockIn},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Product{Stock: tc.stock}.StockStatus(), "stock=%d", tc.stock)
	}
}

func TestProduct_DiscountedPrice(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-24 * time.Hour)
	after := now.Add(24 * time.Hour)

	p := Product{Price: 200}
	assert.Equal(t, 200.0, p.DiscountedPrice(now), "no discount")

	p.Discount = Discount{Percentage: 25}
	assert.Equal(t, 150.0, p.DiscountedPrice(now), "open window")

	p.Discount = Discount{Percentage: 25, StartDate: &before, EndDate: &after}
	assert.Equal(t, 150.0, p.DiscountedPrice(now), "inside window")

	p.Discount = Discount{Percentage: 25, StartDate: &after}
	assert.Equal(t, 200.0, p.DiscountedPrice(now), "not started")

	p.Discount = Discount{Percentage: 25, EndDate: &before}
	assert.Equal(t, 200.0, p.DiscountedPrice(now), "expired")
}

func TestCategoryAndRoleValid(t *testing.T) {
	assert.True(t, Category("Home & Garden").Valid())
	assert.False(t, Category("home & garden").Valid())
	assert.True(t, RoleModerator.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABC-1", NormalizeSKU("  abc-1 "))
	assert.Equal(t, "jane@example.com", NormalizeEmail(" Jane@Example.COM"))
	assert.Equal(t, []string{"new", "sale"}, NormalizeTags([]string{" New", "", "SALE "}))
}
