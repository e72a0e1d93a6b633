package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/admin-dashboard/internal/model"
)

const userColumns = "id,name,email,password_hash,role,avatar,is_active,last_login,created_at,updated_at"

// UserRepo reads and writes the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Avatar,
		&u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

// List returns one page of users matching q and the total number of matches.
func (r *UserRepo) List(ctx context.Context, q UserQuery) ([]model.User, int64, error) {
	w := userWhere(q)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	query := "SELECT " + userColumns + " FROM users" + w.String() +
		orderBy(userSortColumns, q.SortBy, q.SortOrder, "createdAt", "id") + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, w.args...), q.Limit, q.offset())
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	users := make([]model.User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan user")
		}
		users = append(users, u)
	}
	return users, total, errors.Wrap(rows.Err(), "iterate users")
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, mapErr(err)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email)))
	return u, mapErr(err)
}

// EmailTaken reports whether another user (id != excludeID) owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? AND id<>?", model.NormalizeEmail(email), excludeID).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "check email")
	}
	return n > 0, nil
}

// Create inserts u and returns its id. ErrDuplicate is returned when the
// email is already registered.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, avatar, is_active) VALUES (?,?,?,?,?,?)",
		u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.Avatar, u.IsActive)
	if err != nil {
		return 0, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update applies the non-nil fields of p.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	var a assignments
	if p.Name != nil {
		a.set("name", *p.Name)
	}
	if p.Email != nil {
		a.set("email", model.NormalizeEmail(*p.Email))
	}
	if p.Role != nil {
		a.set("role", string(*p.Role))
	}
	if p.Avatar != nil {
		a.set("avatar", *p.Avatar)
	}
	if p.IsActive != nil {
		a.set("is_active", *p.IsActive)
	}
	if len(a.cols) == 0 {
		return nil
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET "+a.String()+" WHERE id=?", append(a.args, id)...)
	return mapErr(err)
}

// SetActive toggles the soft-delete flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login=? WHERE id=?", at.UTC(), id)
	return err
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// Stats counts users for the overview endpoint. Recent counts users created
// since recentSince; Growth groups users created since growthSince by month.
func (r *UserRepo) Stats(ctx context.Context, recentSince, growthSince time.Time) (UserStats, error) {
	var s UserStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_active = 1), 0),
		       COALESCE(SUM(role = 'admin'), 0),
		       COALESCE(SUM(created_at >= ?), 0)
		FROM users`, recentSince.UTC()).Scan(&s.Total, &s.Active, &s.Admins, &s.Recent)
	if err != nil {
		return UserStats{}, errors.Wrap(err, "user totals")
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT YEAR(created_at) AS y, MONTH(created_at) AS m, COUNT(*)
		FROM users
		WHERE created_at >= ?
		GROUP BY y, m
		ORDER BY y, m`, growthSince.UTC())
	if err != nil {
		return UserStats{}, errors.Wrap(err, "user growth")
	}
	defer rows.Close()

	s.Growth = []MonthCount{}
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Year, &mc.Month, &mc.Count); err != nil {
			return UserStats{}, errors.Wrap(err, "scan user growth")
		}
		s.Growth = append(s.Growth, mc)
	}
	return s, errors.Wrap(rows.Err(), "iterate user growth")
}
