package service

import (
	"context"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, RegisterRequest{Name: "Carol", Email: " Carol@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", reg.User.Email)
	assert.Equal(t, model.RoleUser, reg.User.Role)
	assert.Empty(t, reg.User.HashedPassword)
	assert.NotEmpty(t, reg.Token)

	login, err := env.auth.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	token, err := jwtauth.VerifyToken(env.tokens.JWTAuth(), login.Token)
	require.NoError(t, err)
	claims, err := token.AsMap(ctx)
	require.NoError(t, err)

	p, err := env.auth.Authenticate(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, p.ID)
	assert.Equal(t, model.RoleUser, p.Role)

	profile, err := env.auth.Profile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Carol", profile.Name)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.Register(ctx, RegisterRequest{Name: "D", Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, RegisterRequest{Name: "D2", Email: "DUP@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.Register(ctx, RegisterRequest{Name: "E", Email: "e@example.com", Password: "right-pass"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "e@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "right-pass"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.auth.Login(ctx, LoginRequest{})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A token claiming admin for a regular user does not grant admin.
	forged, err := env.tokens.GenerateToken(env.alice.ID, model.RoleAdmin)
	require.NoError(t, err)
	token, err := jwtauth.VerifyToken(env.tokens.JWTAuth(), forged)
	require.NoError(t, err)
	claims, err := token.AsMap(ctx)
	require.NoError(t, err)

	p, err := env.auth.Authenticate(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, p.Role)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.Authenticate(context.Background(), map[string]any{"user_id": "9999"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.auth.Authenticate(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.createUser(context.Background(), "Mallory", "mallory@example.com", "secret-pass", "superuser")
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.Equal(t, 3, env.count(t, "users"))
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.auth.EnsureAdmin(ctx, "Root", "root@example.com", "toor-toor"))
	require.NoError(t, env.auth.EnsureAdmin(ctx, "Root", "ROOT@example.com", "other"))

	login, err := env.auth.Login(ctx, LoginRequest{Email: "root@example.com", Password: "toor-toor"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, login.User.Role)
	assert.Equal(t, 4, env.count(t, "users"))
}
