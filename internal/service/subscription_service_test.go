package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/models"
)

func TestSubscriptionCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("should default to an active free plan without writing", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.subs.Current(ctx, alice)
		require.NoError(t, err)
		second, err := f.subs.Current(ctx, alice)
		require.NoError(t, err)

		assert.Equal(t, models.PlanFree, first.Plan)
		assert.Equal(t, models.SubscriptionActive, first.Status)
		assert.Nil(t, first.CurrentPeriodStart)
		assert.Equal(t, first, second)
		_, ok := f.store.Subscription(alice.ID)
		assert.False(t, ok)
	})

	t.Run("should require a caller", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.subs.Current(ctx, nil)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})
}

func TestSubscriptionUpdate(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	t.Run("should create an active row by default", func(t *testing.T) {
		f := newFixture(t)

		sub, err := f.subs.Update(ctx, alice, UpdateSubscriptionInput{Plan: models.PlanPro})
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, sub.Plan)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
	})

	t.Run("should keep omitted fields", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.subs.Update(ctx, alice, UpdateSubscriptionInput{
			Plan:               models.PlanBusiness,
			Status:             ptr(models.SubscriptionCanceled),
			CurrentPeriodStart: &start,
			CurrentPeriodEnd:   &end,
		})
		require.NoError(t, err)

		sub, err := f.subs.Update(ctx, alice, UpdateSubscriptionInput{Plan: models.PlanPro})
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, sub.Plan)
		assert.Equal(t, models.SubscriptionCanceled, sub.Status)
		assert.Equal(t, start, *sub.CurrentPeriodStart)
		assert.Equal(t, end, *sub.CurrentPeriodEnd)
	})

	t.Run("should validate the input before writing", func(t *testing.T) {
		f := newFixture(t)

		cases := []UpdateSubscriptionInput{
			{Plan: "platinum"},
			{Plan: models.PlanPro, Status: ptr(models.SubscriptionStatus("paused"))},
			{Plan: models.PlanPro, CurrentPeriodStart: &end, CurrentPeriodEnd: &start},
		}
		for _, in := range cases {
			_, err := f.subs.Update(ctx, alice, in)
			assert.True(t, apperr.Is(err, apperr.Validation), "%+v", in)
		}
		_, ok := f.store.Subscription(alice.ID)
		assert.False(t, ok)
	})

	t.Run("should reject an end before the stored start", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.subs.Update(ctx, alice, UpdateSubscriptionInput{Plan: models.PlanPro, CurrentPeriodStart: &end})
		require.NoError(t, err)

		_, err = f.subs.Update(ctx, alice, UpdateSubscriptionInput{Plan: models.PlanPro, CurrentPeriodEnd: &start})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("should require a caller", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.subs.Update(ctx, nil, UpdateSubscriptionInput{Plan: models.PlanPro})
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})
}
