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

var subscriptionRowColumns = []string{"id", "user_id", "plan", "status", "current_period_start", "current_period_end", "created_at", "updated_at"}

func TestSubscriptionRepositoryFindByUser(t *testing.T) {
	t.Run("should return the stored row", func(t *testing.T) {
		handle, mock := setupHandle(t)
		repo := NewSubscriptionRepository(handle)
		start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(30 * 24 * time.Hour)

		mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE user_id = ? LIMIT 1")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(subscriptionRowColumns).
				AddRow(1, 7, "business", "active", start, end, start, start))

		sub, err := repo.FindByUser(context.Background(), 7)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, models.PlanBusiness, sub.Plan)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		assert.Equal(t, end, *sub.CurrentPeriodEnd)
	})

	t.Run("should return nil without a row", func(t *testing.T) {
		handle, mock := setupHandle(t)
		repo := NewSubscriptionRepository(handle)

		mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE user_id = ?")).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))

		sub, err := repo.FindByUser(context.Background(), 7)
		assert.NoError(t, err)
		assert.Nil(t, sub)
	})
}

func TestSubscriptionRepositoryUpsert(t *testing.T) {
	handle, mock := setupHandle(t)
	repo := NewSubscriptionRepository(handle)
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WithArgs(int64(7), "pro", "canceled", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns).
			AddRow(1, 7, "pro", "canceled", nil, nil, now, now))

	sub, err := repo.Upsert(context.Background(), &models.Subscription{
		UserID: 7,
		Plan:   models.PlanPro,
		Status: models.SubscriptionCanceled,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCanceled, sub.Status)
	assert.Nil(t, sub.CurrentPeriodStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}
