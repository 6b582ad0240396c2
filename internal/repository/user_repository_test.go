package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ContentPlanner/internal/models"
)

var userRowColumns = []string{"id", "open_id", "name", "email", "login_method", "role", "created_at", "updated_at", "last_signed_in"}

func TestUserRepositoryUpsert(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	t.Run("should insert a regular user", func(t *testing.T) {
		handle, mock := setupHandle(t)
		repo := NewUserRepository(handle)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("open-1", "Ada", "ada@example.com", "", "user", now, false).
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE open_id = ?")).
			WithArgs("open-1").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(3, "open-1", "Ada", "ada@example.com", "", "user", now, now, now))

		user, err := repo.Upsert(context.Background(), &models.User{
			OpenID:       "open-1",
			Name:         "Ada",
			Email:        "ada@example.com",
			LastSignedIn: now,
		}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.False(t, user.IsAdmin())
	})

	t.Run("should promote the owner", func(t *testing.T) {
		handle, mock := setupHandle(t)
		repo := NewUserRepository(handle)

		mock.ExpectExec(regexp.QuoteMeta("role = IF(?, 'admin', role)")).
			WithArgs("owner", "", "", "", "admin", now, true).
			WillReturnResult(sqlmock.NewResult(1, 2))
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE open_id = ?")).
			WithArgs("owner").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(1, "owner", "", "", "", "admin", now, now, now))

		user, err := repo.Upsert(context.Background(), &models.User{OpenID: "owner", LastSignedIn: now}, true)
		require.NoError(t, err)
		assert.True(t, user.IsAdmin())
	})
}

func TestUserRepositoryTouchLastSignedIn(t *testing.T) {
	handle, mock := setupHandle(t)
	repo := NewUserRepository(handle)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_signed_in = ? WHERE id = ?")).
		WithArgs(now, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastSignedIn(context.Background(), 3, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
