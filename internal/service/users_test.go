package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/utils"
)

func newUsersService(store *memUsers, rec *recorder) *Users {
	return NewUsers(store, rec, bcrypt.MinCost, fixedClock(now), discardLog)
}

func TestUsers_Create(t *testing.T) {
	store := newMemUsers(now)
	rec := &recorder{}
	svc := newUsersService(store, rec)

	u, err := svc.Create(t.Context(), CreateUserInput{Name: " Ada ", Email: " Ada@Example.COM ", Password: "secret1"}, 99)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "secret1"))
	assert.Equal(t, []string{"user.created"}, rec.actions())
	assert.Equal(t, uint64(99), rec.events[0].ActorID)
}

func TestUsers_CreateDuplicateEmail(t *testing.T) {
	store := newMemUsers(now, model.User{ID: 1, Email: "ada@example.com"})
	svc := newUsersService(store, &recorder{})

	_, err := svc.Create(t.Context(), CreateUserInput{Name: "Ada", Email: "ADA@example.com", Password: "secret1"}, 1)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Zero(t, store.creates)
}

func TestUsers_UpdateEmailConflict(t *testing.T) {
	store := newMemUsers(now,
		model.User{ID: 1, Email: "ada@example.com"},
		model.User{ID: 2, Email: "bob@example.com"},
	)
	svc := newUsersService(store, &recorder{})

	_, err := svc.Update(t.Context(), 2, UpdateUserInput{Email: ptr("Ada@example.com")}, 1)
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Re-submitting your own address is not a conflict.
	u, err := svc.Update(t.Context(), 2, UpdateUserInput{Email: ptr("BOB@example.com"), Role: ptr(model.RoleModerator)}, 1)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, model.RoleModerator, u.Role)
}

func TestUsers_UpdateMissing(t *testing.T) {
	svc := newUsersService(newMemUsers(now), &recorder{})
	_, err := svc.Update(t.Context(), 42, UpdateUserInput{Name: ptr("x")}, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsers_DeactivateAndActivate(t *testing.T) {
	store := newMemUsers(now,
		model.User{ID: 1, Name: "admin", IsActive: true, Role: model.RoleAdmin},
		model.User{ID: 2, Name: "bob", IsActive: true},
	)
	rec := &recorder{}
	svc := newUsersService(store, rec)

	assert.ErrorIs(t, svc.Deactivate(t.Context(), 1, 1), ErrSelfDeactivate)
	assert.ErrorIs(t, svc.Deactivate(t.Context(), 3, 1), ErrUserNotFound)

	require.NoError(t, svc.Deactivate(t.Context(), 2, 1))
	assert.False(t, store.rows[2].IsActive)

	u, err := svc.Activate(t.Context(), 2, 1)
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Equal(t, []string{"user.deactivated", "user.activated"}, rec.actions())
}

func TestUsers_PublishFailureDoesNotFailRequest(t *testing.T) {
	store := newMemUsers(now)
	svc := newUsersService(store, &recorder{err: assert.AnError})

	_, err := svc.Create(t.Context(), CreateUserInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"}, 1)
	assert.NoError(t, err)
}

func TestUsers_ListPagination(t *testing.T) {
	var rows []model.User
	for i := range 23 {
		rows = append(rows, model.User{ID: uint64(i + 1), Email: "u@example.com", IsActive: true})
	}
	svc := newUsersService(newMemUsers(now, rows...), &recorder{})

	users, page, err := svc.List(t.Context(), ListUsersInput{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, Pagination{CurrentPage: 3, TotalPages: 3, Total: 23, HasNextPage: false, HasPrevPage: true, Limit: 10}, page)

	_, page, err = svc.List(t.Context(), ListUsersInput{Page: -1, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 100, page.Limit)
	assert.False(t, page.HasPrevPage)
}

func TestUsers_Overview(t *testing.T) {
	store := newMemUsers(now,
		model.User{ID: 1, Role: model.RoleAdmin, IsActive: true, CreatedAt: now.AddDate(0, 0, -3)},
		model.User{ID: 2, Role: model.RoleUser, IsActive: false, CreatedAt: now.AddDate(-1, 0, 0)},
	)
	o, err := newUsersService(store, &recorder{}).Overview(t.Context())
	require.NoError(t, err)
	assert.Equal(t, UserOverview{
		TotalUsers: 2, ActiveUsers: 1, InactiveUsers: 1,
		AdminUsers: 1, RegularUsers: 1, RecentUsers: 1,
		UserGrowth: o.UserGrowth,
	}, o)
}
