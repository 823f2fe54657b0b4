package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/edutest/internal/model"
)

func signToken(t *testing.T, userID string, role model.Role, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

type fakeProfiler struct {
	user *model.User
	err  error
}

func (f fakeProfiler) Profile(ctx context.Context) (*model.User, error) {
	return f.user, f.err
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	token := signToken(t, "u-1", model.RoleStudent, exp)

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.SubjectID())
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.False(t, claims.ExpiredAt(exp.Add(-time.Second)))
	assert.True(t, claims.ExpiredAt(exp))

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)

	_, err = ParseClaims("")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSession_LoginAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := NewSession(store, zerolog.Nop())

	token := signToken(t, "u-1", model.RoleStudent, time.Now().Add(time.Hour))
	require.NoError(t, s.Login(ctx, &model.AuthResponse{
		Token: token,
		User:  model.User{ID: "u-1", Email: "ana@example.com", Role: model.RoleStudent},
	}))

	assert.Equal(t, token, s.Token())
	assert.Equal(t, model.RoleStudent, s.Role())
	assert.Equal(t, "u-1", s.UserID())

	stored, user, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
	assert.Equal(t, "ana@example.com", user.Email)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	stored, _, _ = store.Load(ctx)
	assert.Empty(t, stored)
}

func TestSession_ClearHooks(t *testing.T) {
	ctx := context.Background()
	s := NewSession(NewMemoryStore(), zerolog.Nop())
	calls := 0
	s.OnClear(func() { calls++ })

	// Nothing to clear while signed out.
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, calls)

	login := func(id string) {
		require.NoError(t, s.Login(ctx, &model.AuthResponse{
			Token: signToken(t, id, model.RoleStudent, time.Now().Add(time.Hour)),
			User:  model.User{ID: id, Role: model.RoleStudent},
		}))
	}

	login("u-1")
	assert.Equal(t, 0, calls)
	login("u-1")
	assert.Equal(t, 0, calls)
	login("u-2")
	assert.Equal(t, 1, calls)

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 2, calls)
}

func TestSession_OpaqueTokenFallsBackToUser(t *testing.T) {
	s := NewSession(NewMemoryStore(), zerolog.Nop())
	require.NoError(t, s.Login(context.Background(), &model.AuthResponse{
		Token: "opaque",
		User:  model.User{ID: "u-2", Role: model.RoleTeacher},
	}))

	assert.Nil(t, s.Claims())
	assert.Equal(t, model.RoleTeacher, s.Role())
	assert.Equal(t, "u-2", s.UserID())
}

func TestSession_Init(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored token", func(t *testing.T) {
		s := NewSession(NewMemoryStore(), zerolog.Nop())
		require.NoError(t, s.Init(ctx, fakeProfiler{err: errors.New("unreachable")}))
		assert.Empty(t, s.Token())
	})

	t.Run("valid token refreshes user", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, "tok", &model.User{ID: "u-1", FirstName: "Old"}))
		s := NewSession(store, zerolog.Nop())

		require.NoError(t, s.Init(ctx, fakeProfiler{user: &model.User{ID: "u-1", FirstName: "New"}}))
		assert.Equal(t, "tok", s.Token())
		assert.Equal(t, "New", s.User().FirstName)

		_, user, _ := store.Load(ctx)
		assert.Equal(t, "New", user.FirstName)
	})

	t.Run("profile failure clears", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, "tok", nil))
		s := NewSession(store, zerolog.Nop())

		err := s.Init(ctx, fakeProfiler{err: errors.New("401")})
		assert.Error(t, err)
		assert.Empty(t, s.Token())
		stored, _, _ := store.Load(ctx)
		assert.Empty(t, stored)
	})
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewRedisStore(rdb)

	token, user, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)

	require.NoError(t, store.Save(ctx, "tok", &model.User{ID: "u-1", Role: model.RoleStudent}))
	token, user, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	require.NotNil(t, user)
	assert.Equal(t, model.RoleStudent, user.Role)

	require.NoError(t, store.Clear(ctx))
	token, user, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)
}
