package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/config"
	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/queue"
	"github.com/iliyamo/admin-dashboard/internal/repository"
	"github.com/iliyamo/admin-dashboard/internal/utils"
)

// Session failures.
var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	ErrInvalidToken       = apperr.Unauthorized("Invalid token.")
	ErrInvalidRefresh     = apperr.Unauthorized("Invalid refresh token")
	ErrUnknownUser        = apperr.Unauthorized("Token is valid but user not found.")
	ErrInactiveUser       = apperr.Unauthorized("User account is inactive.")
	ErrWrongPassword      = apperr.BadRequest("Current password is incorrect")
)

// TokenStore persists refresh token hashes.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the caller's own account. NewPassword requires
// CurrentPassword.
type ProfileInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=50"`
	Avatar          *string `json:"avatar" validate:"omitempty,url"`
	CurrentPassword string  `json:"currentPassword" validate:"required_with=NewPassword"`
	NewPassword     string  `json:"newPassword" validate:"omitempty,min=6"`
}

// Session is an issued credential pair.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Auth issues and verifies sessions.
type Auth struct {
	users  UserStore
	tokens TokenStore
	events queue.Publisher
	cfg    config.Auth
	now    func() time.Time
	log    *slog.Logger
}

func NewAuth(users UserStore, tokens TokenStore, events queue.Publisher, cfg config.Auth, now func() time.Time, log *slog.Logger) *Auth {
	return &Auth{users: users, tokens: tokens, events: events, cfg: cfg, now: now, log: log}
}

// Register creates a regular user and signs them in.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := model.NormalizeEmail(in.Email)
	taken, err := a.users.EmailTaken(ctx, email, 0)
	if err != nil {
		return Session{}, err
	}
	if taken {
		return Session{}, ErrEmailTaken
	}
	hash, err := utils.HashPassword(in.Password, a.cfg.BcryptCost)
	if err != nil {
		return Session{}, errors.Wrap(err, "hash password")
	}
	id, err := a.users.Create(ctx, model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return Session{}, ErrEmailTaken.Wrap(err)
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "register user")
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return Session{}, errors.Wrap(err, "load registered user")
	}
	publish(ctx, a.events, a.log, queue.TypeUser, queue.ActionCreated, u.ID, u.Name, u.ID, a.now())
	return a.issue(ctx, u)
}

// Login checks the password and the active flag, then records the login.
func (a *Auth) Login(ctx context.Context, in LoginInput) (Session, error) {
	u, err := a.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, ErrInactiveUser
	}

	now := a.now()
	if err := a.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return Session{}, errors.Wrap(err, "touch last login")
	}
	u.LastLogin = &now
	return a.issue(ctx, u)
}

// Refresh exchanges a refresh token for a new pair. The old token is revoked.
func (a *Auth) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrInvalidRefresh
	}
	userID, err := a.tokens.Consume(ctx, utils.HashRefreshRaw(raw), a.now())
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "consume refresh token")
	}
	u, err := a.activeUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return a.issue(ctx, u)
}

// Logout revokes every refresh token of userID.
func (a *Auth) Logout(ctx context.Context, userID uint64) error {
	return a.tokens.RevokeAllForUser(ctx, userID, a.now())
}

// Authenticate resolves an access token to an active user.
func (a *Auth) Authenticate(ctx context.Context, raw string) (model.User, error) {
	claims, err := utils.ParseAccessToken(a.cfg.JWTSecret, raw)
	if err != nil {
		return model.User{}, ErrInvalidToken
	}
	id, _ := claims.UserID()
	return a.activeUser(ctx, id)
}

// UpdateProfile changes the caller's name, avatar or password.
func (a *Auth) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (model.User, error) {
	u, err := a.activeUser(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	if in.NewPassword != "" {
		if !utils.VerifyPassword(u.PasswordHash, in.CurrentPassword) {
			return model.User{}, ErrWrongPassword
		}
		hash, err := utils.HashPassword(in.NewPassword, a.cfg.BcryptCost)
		if err != nil {
			return model.User{}, errors.Wrap(err, "hash password")
		}
		if err := a.users.UpdatePassword(ctx, userID, hash); err != nil {
			return model.User{}, errors.Wrap(err, "update password")
		}
	}

	if in.Name != nil || in.Avatar != nil {
		if err := a.users.Update(ctx, userID, repository.UserPatch{Name: trimmed(in.Name), Avatar: in.Avatar}); err != nil {
			return model.User{}, errors.Wrap(err, "update profile")
		}
	}

	u, err = a.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, errors.Wrap(err, "reload user")
	}
	publish(ctx, a.events, a.log, queue.TypeUser, queue.ActionUpdated, u.ID, u.Name, u.ID, a.now())
	return u, nil
}

func (a *Auth) activeUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := a.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnknownUser
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "load user")
	}
	if !u.IsActive {
		return model.User{}, ErrInactiveUser
	}
	return u, nil
}

func (a *Auth) issue(ctx context.Context, u model.User) (Session, error) {
	now := a.now()
	access, err := utils.NewAccessToken(a.cfg.JWTSecret, u.ID, string(u.Role), a.cfg.AccessTTL, now)
	if err != nil {
		return Session{}, errors.Wrap(err, "issue access token")
	}
	refresh, err := utils.NewRefreshToken(a.cfg.RefreshTTL, now)
	if err != nil {
		return Session{}, errors.Wrap(err, "issue refresh token")
	}
	if err := a.tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}
