package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/models"
)

func TestGuard(t *testing.T) {
	t.Run("should reject anonymous callers", func(t *testing.T) {
		assert.True(t, apperr.Is(RequireUser(nil), apperr.Unauthorized))
		assert.True(t, apperr.Is(RequireAdmin(nil), apperr.Unauthorized))
	})

	t.Run("should reject non-admins from admin operations", func(t *testing.T) {
		user := &models.User{ID: 1, Role: models.RoleUser}
		assert.NoError(t, RequireUser(user))
		assert.True(t, apperr.Is(RequireAdmin(user), apperr.Unauthorized))
	})

	t.Run("should let admins through", func(t *testing.T) {
		admin := &models.User{ID: 2, Role: models.RoleAdmin}
		assert.NoError(t, RequireAdmin(admin))
	})
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, UserFrom(ctx))
	assert.Nil(t, ClaimsFrom(ctx))

	user := &models.User{ID: 5}
	claims := &Claims{OpenID: "open-5"}
	ctx = WithClaims(WithUser(ctx, user), claims)
	assert.Same(t, user, UserFrom(ctx))
	assert.Same(t, claims, ClaimsFrom(ctx))
}

func TestSessions(t *testing.T) {
	t.Run("should round trip a token", func(t *testing.T) {
		sessions := NewSessions("secret", time.Hour)

		token, issued, err := sessions.Issue("open-1", "Ada", "ada@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, issued.Id)

		claims, err := sessions.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "open-1", claims.OpenID)
		assert.Equal(t, "Ada", claims.Name)
		assert.Equal(t, issued.Id, claims.Id)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		token, _, err := NewSessions("other", time.Hour).Issue("open-1", "", "")
		require.NoError(t, err)

		_, err = NewSessions("secret", time.Hour).Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		sessions := NewSessions("secret", time.Hour)
		sessions.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

		token, _, err := sessions.Issue("open-1", "", "")
		require.NoError(t, err)

		_, err = sessions.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject a token without an open id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = NewSessions("secret", time.Hour).Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should refuse to issue without an open id", func(t *testing.T) {
		_, _, err := NewSessions("secret", time.Hour).Issue("", "", "")
		assert.Error(t, err)
	})
}

func TestNoopRevoker(t *testing.T) {
	var r Revoker = NoopRevoker{}
	require.NoError(t, r.Revoke(context.Background(), "id", time.Now().Add(time.Hour)))

	revoked, err := r.Revoked(context.Background(), "id")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationKey(t *testing.T) {
	assert.Equal(t, "planner:session:revoked:abc", revocationKey("abc"))
}
