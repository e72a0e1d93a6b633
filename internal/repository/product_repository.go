package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/admin-dashboard/internal/model"
)

const productSelect = `SELECT p.id, p.name, p.description, p.price, p.category, p.brand, p.sku, p.stock,
       p.images, p.tags, p.is_active,
       p.discount_percentage, p.discount_start, p.discount_end,
       p.ratings_average, p.ratings_count, p.sales_total_sold, p.sales_revenue,
       p.created_at, p.updated_at,
       cu.id, cu.name, cu.email, uu.id, uu.name, uu.email
FROM products p
LEFT JOIN users cu ON cu.id = p.created_by
LEFT JOIN users uu ON uu.id = p.updated_by`

// ProductRepo reads and writes the `products` table.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

func userRef(id sql.NullInt64, name, email sql.NullString) *model.UserRef {
	if !id.Valid {
		return nil
	}
	return &model.UserRef{ID: uint64(id.Int64), Name: name.String, Email: email.String}
}

func scanProduct(s scanner) (model.Product, error) {
	var (
		p            model.Product
		images, tags []byte
		start, end   sql.NullTime
		cID, uID     sql.NullInt64
		cName, cMail sql.NullString
		uName, uMail sql.NullString
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Brand, &p.SKU, &p.Stock,
		&images, &tags, &p.IsActive,
		&p.Discount.Percentage, &start, &end,
		&p.Ratings.Average, &p.Ratings.Count, &p.Sales.TotalSold, &p.Sales.Revenue,
		&p.CreatedAt, &p.UpdatedAt,
		&cID, &cName, &cMail, &uID, &uName, &uMail)
	if err != nil {
		return model.Product{}, err
	}
	if err := decodeList(images, &p.Images); err != nil {
		return model.Product{}, errors.Wrap(err, "decode images")
	}
	if err := decodeList(tags, &p.Tags); err != nil {
		return model.Product{}, errors.Wrap(err, "decode tags")
	}
	if start.Valid {
		t := start.Time
		p.Discount.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		p.Discount.EndDate = &t
	}
	p.CreatedBy = userRef(cID, cName, cMail)
	p.UpdatedBy = userRef(uID, uName, uMail)
	return p, nil
}

func decodeList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func (r *ProductRepo) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// List returns one page of products matching q and the total number of matches.
func (r *ProductRepo) List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	w := productWhere(q)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	query := productSelect + w.String() +
		orderBy(productSortColumns, q.SortBy, q.SortOrder, "createdAt", "p.id") + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, w.args...), q.Limit, q.offset())
	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return products, total, nil
}

// GetByID fetches a product with its creator and updater.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	p, err := scanProduct(r.DB.QueryRowContext(ctx, productSelect+" WHERE p.id=? LIMIT 1", id))
	return p, mapErr(err)
}

// SKUTaken reports whether another product (id != excludeID) owns sku.
func (r *ProductRepo) SKUTaken(ctx context.Context, sku string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE sku=? AND id<>?", model.NormalizeSKU(sku), excludeID).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "check sku")
	}
	return n > 0, nil
}

// Create inserts p stamped with createdBy and returns its id. ErrDuplicate is
// returned when the SKU already exists.
func (r *ProductRepo) Create(ctx context.Context, p model.Product, createdBy uint64) (uint64, error) {
	images, err := encodeList(p.Images)
	if err != nil {
		return 0, err
	}
	tags, err := encodeList(model.NormalizeTags(p.Tags))
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO products (name, description, price, category, brand, sku, stock, images, tags, is_active,
		                      discount_percentage, discount_start, discount_end, created_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Description, p.Price, string(p.Category), p.Brand, model.NormalizeSKU(p.SKU), p.Stock,
		images, tags, p.IsActive,
		p.Discount.Percentage, nullTime(p.Discount.StartDate), nullTime(p.Discount.EndDate), createdBy)
	if err != nil {
		return 0, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update applies the non-nil fields of p and stamps the updater.
func (r *ProductRepo) Update(ctx context.Context, id uint64, p ProductPatch) error {
	var a assignments
	if p.Name != nil {
		a.set("name", *p.Name)
	}
	if p.Description != nil {
		a.set("description", *p.Description)
	}
	if p.Price != nil {
		a.set("price", *p.Price)
	}
	if p.Category != nil {
		a.set("category", string(*p.Category))
	}
	if p.Brand != nil {
		a.set("brand", *p.Brand)
	}
	if p.SKU != nil {
		a.set("sku", model.NormalizeSKU(*p.SKU))
	}
	if p.Stock != nil {
		a.set("stock", *p.Stock)
	}
	if p.Images != nil {
		s, err := encodeList(*p.Images)
		if err != nil {
			return err
		}
		a.set("images", s)
	}
	if p.Tags != nil {
		s, err := encodeList(model.NormalizeTags(*p.Tags))
		if err != nil {
			return err
		}
		a.set("tags", s)
	}
	if p.IsActive != nil {
		a.set("is_active", *p.IsActive)
	}
	if p.Discount != nil {
		a.set("discount_percentage", p.Discount.Percentage)
		a.set("discount_start", nullTime(p.Discount.StartDate))
		a.set("discount_end", nullTime(p.Discount.EndDate))
	}
	if p.Ratings != nil {
		a.set("ratings_average", p.Ratings.Average)
		a.set("ratings_count", p.Ratings.Count)
	}
	if p.Sales != nil {
		a.set("sales_total_sold", p.Sales.TotalSold)
		a.set("sales_revenue", p.Sales.Revenue)
	}
	a.set("updated_by", p.UpdatedBy)

	_, err := r.DB.ExecContext(ctx, "UPDATE products SET "+a.String()+" WHERE id=?", append(a.args, id)...)
	return mapErr(err)
}

// SetActive toggles the soft-delete flag and stamps the updater.
func (r *ProductRepo) SetActive(ctx context.Context, id uint64, active bool, by uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE products SET is_active=?, updated_by=? WHERE id=?", active, by, id)
	return err
}

// Categories lists the distinct categories in use.
func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "SELECT DISTINCT category FROM products ORDER BY category")
}

// Brands lists the distinct non-empty brands.
func (r *ProductRepo) Brands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "SELECT DISTINCT brand FROM products WHERE brand <> '' ORDER BY brand")
}

func (r *ProductRepo) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LowStock lists active products with stock at or below threshold, lowest first.
func (r *ProductRepo) LowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	return r.queryProducts(ctx, productSelect+" WHERE p.is_active=1 AND p.stock<=? ORDER BY p.stock ASC, p.id ASC", threshold)
}

// Popular lists active products by units sold, then rating.
func (r *ProductRepo) Popular(ctx context.Context, limit int) ([]model.Product, error) {
	return r.queryProducts(ctx, productSelect+
		" WHERE p.is_active=1 ORDER BY p.sales_total_sold DESC, p.ratings_average DESC, p.id ASC LIMIT ?", limit)
}

// Stats counts products for the overview endpoint.
func (r *ProductRepo) Stats(ctx context.Context, lowStock int64, recentSince time.Time) (ProductStats, error) {
	var s ProductStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_active = 1), 0),
		       COALESCE(SUM(is_active = 1 AND stock <= ?), 0),
		       COALESCE(SUM(is_active = 1 AND stock = 0), 0),
		       COALESCE(SUM(created_at >= ?), 0)
		FROM products`, lowStock, recentSince.UTC()).
		Scan(&s.Total, &s.Active, &s.LowStock, &s.OutOfStock, &s.Recent)
	if err != nil {
		return ProductStats{}, errors.Wrap(err, "product totals")
	}

	err = r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(sales_revenue), 0), COALESCE(SUM(sales_total_sold), 0), COALESCE(AVG(price), 0)
		FROM products WHERE is_active = 1`).
		Scan(&s.Revenue.TotalRevenue, &s.Revenue.TotalSold, &s.Revenue.AvgPrice)
	if err != nil {
		return ProductStats{}, errors.Wrap(err, "product revenue")
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT category, COUNT(*) AS n FROM products
		WHERE is_active = 1
		GROUP BY category
		ORDER BY n DESC, category ASC`)
	if err != nil {
		return ProductStats{}, errors.Wrap(err, "product categories")
	}
	defer rows.Close()

	s.Categories = []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return ProductStats{}, errors.Wrap(err, "scan category count")
		}
		s.Categories = append(s.Categories, c)
	}
	return s, errors.Wrap(rows.Err(), "iterate categories")
}
