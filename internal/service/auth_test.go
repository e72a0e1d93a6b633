package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/admin-dashboard/internal/config"
	"github.com/iliyamo/admin-dashboard/internal/model"
	"github.com/iliyamo/admin-dashboard/internal/utils"
)

var authCfg = config.Auth{
	JWTSecret:  "test-secret",
	AccessTTL:  time.Hour,
	RefreshTTL: 24 * time.Hour,
	BcryptCost: bcrypt.MinCost,
}

func newAuthService(t *testing.T, users ...model.User) (*Auth, *memUsers, *memTokens) {
	t.Helper()
	store := newMemUsers(now, users...)
	tokens := newMemTokens()
	return NewAuth(store, tokens, &recorder{}, authCfg, time.Now, discardLog), store, tokens
}

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := utils.HashPassword(plain, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestAuth_RegisterAndAuthenticate(t *testing.T) {
	auth, _, _ := newAuthService(t)

	s, err := auth.Register(t.Context(), RegisterInput{Name: "Ada", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, s.User.Role)
	assert.NotEmpty(t, s.Access.Token)
	assert.Len(t, s.Refresh.Raw, 96)

	u, err := auth.Authenticate(t.Context(), s.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = auth.Register(t.Context(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuth_Login(t *testing.T) {
	auth, store, _ := newAuthService(t,
		model.User{ID: 1, Email: "ada@example.com", PasswordHash: hashed(t, "secret1"), Role: model.RoleAdmin, IsActive: true},
		model.User{ID: 2, Email: "old@example.com", PasswordHash: hashed(t, "secret1"), IsActive: false},
	)

	_, err := auth.Login(t.Context(), LoginInput{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(t.Context(), LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(t.Context(), LoginInput{Email: "old@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInactiveUser)

	s, err := auth.Login(t.Context(), LoginInput{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.User.ID)
	assert.NotNil(t, store.rows[1].LastLogin)

	claims, err := utils.ParseAccessToken(authCfg.JWTSecret, s.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestAuth_RefreshRotates(t *testing.T) {
	auth, _, _ := newAuthService(t,
		model.User{ID: 1, Email: "ada@example.com", PasswordHash: hashed(t, "secret1"), IsActive: true},
	)
	s, err := auth.Login(t.Context(), LoginInput{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	next, err := auth.Refresh(t.Context(), s.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, s.Refresh.Raw, next.Refresh.Raw)

	_, err = auth.Refresh(t.Context(), s.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = auth.Refresh(t.Context(), "")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	require.NoError(t, auth.Logout(t.Context(), 1))
	_, err = auth.Refresh(t.Context(), next.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestAuth_AuthenticateRejects(t *testing.T) {
	auth, store, _ := newAuthService(t, model.User{ID: 1, IsActive: true})

	_, err := auth.Authenticate(t.Context(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tok, err := utils.NewAccessToken(authCfg.JWTSecret, 77, "admin", time.Hour, time.Now())
	require.NoError(t, err)
	_, err = auth.Authenticate(t.Context(), tok.Token)
	assert.ErrorIs(t, err, ErrUnknownUser)

	tok, err = utils.NewAccessToken(authCfg.JWTSecret, 1, "user", time.Hour, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.SetActive(t.Context(), 1, false))
	_, err = auth.Authenticate(t.Context(), tok.Token)
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestAuth_UpdateProfile(t *testing.T) {
	auth, store, _ := newAuthService(t,
		model.User{ID: 1, Name: "Ada", PasswordHash: hashed(t, "secret1"), IsActive: true},
	)

	_, err := auth.UpdateProfile(t.Context(), 1, ProfileInput{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	u, err := auth.UpdateProfile(t.Context(), 1, ProfileInput{Name: ptr(" Ada L "), CurrentPassword: "secret1", NewPassword: "secret2"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", u.Name)
	assert.True(t, utils.VerifyPassword(store.rows[1].PasswordHash, "secret2"))
}
