package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/queue"
	"github.com/iliyamo/admin-dashboard/internal/repository"
	"github.com/iliyamo/admin-dashboard/internal/utils"
)

// UserStore is the persistence used by Users and Auth.
type UserStore interface {
	List(ctx context.Context, q repository.UserQuery) ([]model.User, int64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)
	Create(ctx context.Context, u model.User) (uint64, error)
	Update(ctx context.Context, id uint64, p repository.UserPatch) error
	SetActive(ctx context.Context, id uint64, active bool) error
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Stats(ctx context.Context, recentSince, growthSince time.Time) (repository.UserStats, error)
}

type CreateUserInput struct {
	Name     string     `json:"name" validate:"required,max=50"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"omitempty,role"`
	Avatar   string     `json:"avatar" validate:"omitempty,url"`
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string     `json:"name" validate:"omitempty,min=1,max=50"`
	Email    *string     `json:"email" validate:"omitempty,email"`
	Role     *model.Role `json:"role" validate:"omitempty,role"`
	Avatar   *string     `json:"avatar" validate:"omitempty,url"`
	IsActive *bool       `json:"isActive"`
}

// ListUsersInput is the parsed query string of the user listing.
type ListUsersInput struct {
	Page      int
	Limit     int
	Search    string
	Role      model.Role
	IsActive  *bool
	SortBy    string
	SortOrder string
}

// UserOverview backs GET /users/stats/overview.
type UserOverview struct {
	TotalUsers    int64                   `json:"totalUsers"`
	ActiveUsers   int64                   `json:"activeUsers"`
	InactiveUsers int64                   `json:"inactiveUsers"`
	AdminUsers    int64                   `json:"adminUsers"`
	RegularUsers  int64                   `json:"regularUsers"`
	RecentUsers   int64                   `json:"recentUsers"`
	UserGrowth    []repository.MonthCount `json:"userGrowth"`
}

// Users manages dashboard accounts.
type Users struct {
	store  UserStore
	events queue.Publisher
	cost   int
	now    func() time.Time
	log    *slog.Logger
}

func NewUsers(store UserStore, events queue.Publisher, bcryptCost int, now func() time.Time, log *slog.Logger) *Users {
	return &Users{store: store, events: events, cost: bcryptCost, now: now, log: log}
}

func (s *Users) List(ctx context.Context, in ListUsersInput) ([]model.User, Pagination, error) {
	page, limit := normalizePage(in.Page, in.Limit)
	users, total, err := s.store.List(ctx, repository.UserQuery{
		Page:      repository.Page{Page: page, Limit: limit},
		Search:    in.Search,
		Role:      in.Role,
		IsActive:  in.IsActive,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
	})
	if err != nil {
		return nil, Pagination{}, errors.Wrap(err, "list users")
	}
	return users, newPagination(page, limit, total), nil
}

func (s *Users) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	return u, errors.Wrap(err, "get user")
}

func (s *Users) Create(ctx context.Context, in CreateUserInput, actorID uint64) (model.User, error) {
	email := model.NormalizeEmail(in.Email)
	taken, err := s.store.EmailTaken(ctx, email, 0)
	if err != nil {
		return model.User{}, err
	}
	if taken {
		return model.User{}, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return model.User{}, errors.Wrap(err, "hash password")
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	id, err := s.store.Create(ctx, model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Avatar:       in.Avatar,
		IsActive:     true,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, ErrEmailTaken.Wrap(err)
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "create user")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	publish(ctx, s.events, s.log, queue.TypeUser, queue.ActionCreated, u.ID, u.Name, actorID, s.now())
	return u, nil
}

func (s *Users) Update(ctx context.Context, id uint64, in UpdateUserInput, actorID uint64) (model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.User{}, err
	}

	patch := repository.UserPatch{Role: in.Role, Avatar: in.Avatar, IsActive: in.IsActive}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
	}
	if in.Email != nil {
		email := model.NormalizeEmail(*in.Email)
		taken, err := s.store.EmailTaken(ctx, email, id)
		if err != nil {
			return model.User{}, err
		}
		if taken {
			return model.User{}, ErrEmailTaken
		}
		patch.Email = &email
	}

	err := s.store.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, ErrEmailTaken.Wrap(err)
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "update user")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	publish(ctx, s.events, s.log, queue.TypeUser, queue.ActionUpdated, u.ID, u.Name, actorID, s.now())
	return u, nil
}

// Deactivate soft-deletes a user. Admins cannot deactivate themselves.
func (s *Users) Deactivate(ctx context.Context, id, actorID uint64) error {
	if id == actorID {
		return ErrSelfDeactivate
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, false); err != nil {
		return errors.Wrap(err, "deactivate user")
	}
	publish(ctx, s.events, s.log, queue.TypeUser, queue.ActionDeactivated, u.ID, u.Name, actorID, s.now())
	return nil
}

func (s *Users) Activate(ctx context.Context, id, actorID uint64) (model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.User{}, err
	}
	if err := s.store.SetActive(ctx, id, true); err != nil {
		return model.User{}, errors.Wrap(err, "activate user")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	publish(ctx, s.events, s.log, queue.TypeUser, queue.ActionActivated, u.ID, u.Name, actorID, s.now())
	return u, nil
}

// Overview counts users; recent means the last 30 days and growth covers
// the last six calendar months.
func (s *Users) Overview(ctx context.Context) (UserOverview, error) {
	now := s.now()
	st, err := s.store.Stats(ctx, now.Add(-30*24*time.Hour), now.AddDate(0, -6, 0))
	if err != nil {
		return UserOverview{}, errors.Wrap(err, "user overview")
	}
	return UserOverview{
		TotalUsers:    st.Total,
		ActiveUsers:   st.Active,
		InactiveUsers: st.Total - st.Active,
		AdminUsers:    st.Admins,
		RegularUsers:  st.Total - st.Admins,
		RecentUsers:   st.Recent,
		UserGrowth:    st.Growth,
	}, nil
}
