package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/memstore"
	"github.com/digkill/ContentPlanner/internal/models"
)

func TestContentService(t *testing.T) {
	ctx := context.Background()
	october := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	november := time.Date(2026, 11, 2, 12, 0, 0, 0, time.UTC)

	newService := func() *ContentService {
		store := memstore.New()
		return NewContentService(discardLogger(), store.Content(), store.Templates())
	}

	t.Run("should create drafts with cleaned platforms", func(t *testing.T) {
		svc := newService()

		post, err := svc.Create(ctx, alice, CreatePostInput{
			Title:     " Launch ",
			Content:   "We are live",
			Platforms: []string{"Instagram", " ", "linkedin"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Launch", post.Title)
		assert.Equal(t, models.PostDraft, post.Status)
		assert.Equal(t, []string{"instagram", "linkedin"}, post.Platforms)
	})

	t.Run("should validate new posts", func(t *testing.T) {
		svc := newService()

		_, err := svc.Create(ctx, alice, CreatePostInput{Content: "x", Platforms: []string{"x"}})
		assert.True(t, apperr.Is(err, apperr.Validation))
		_, err = svc.Create(ctx, alice, CreatePostInput{Title: "x", Content: "x"})
		assert.True(t, apperr.Is(err, apperr.Validation))
		_, err = svc.Create(ctx, nil, CreatePostInput{Title: "x", Content: "x", Platforms: []string{"x"}})
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})

	t.Run("should only link the caller's own templates", func(t *testing.T) {
		store := memstore.New()
		svc := NewContentService(discardLogger(), store.Content(), store.Templates())
		tpl, err := store.Templates().Create(ctx, &models.ContentTemplate{UserID: bob.ID, Name: "Promo", Content: "x"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, alice, CreatePostInput{Title: "a", Content: "a", Platforms: []string{"x"}, TemplateID: &tpl.ID})
		assert.True(t, apperr.Is(err, apperr.NotFound))

		missing := int64(999)
		_, err = svc.Create(ctx, bob, CreatePostInput{Title: "a", Content: "a", Platforms: []string{"x"}, TemplateID: &missing})
		assert.True(t, apperr.Is(err, apperr.NotFound))

		post, err := svc.Create(ctx, bob, CreatePostInput{Title: "a", Content: "a", Platforms: []string{"x"}, TemplateID: &tpl.ID})
		require.NoError(t, err)
		assert.Equal(t, tpl.ID, *post.TemplateID)
	})

	t.Run("should filter by month", func(t *testing.T) {
		svc := newService()
		_, err := svc.Create(ctx, alice, CreatePostInput{Title: "a", Content: "a", Platforms: []string{"x"}, ScheduledAt: &october})
		require.NoError(t, err)
		_, err = svc.Create(ctx, alice, CreatePostInput{Title: "b", Content: "b", Platforms: []string{"x"}, ScheduledAt: &november})
		require.NoError(t, err)
		_, err = svc.Create(ctx, bob, CreatePostInput{Title: "c", Content: "c", Platforms: []string{"x"}, ScheduledAt: &october})
		require.NoError(t, err)

		inOctober, err := svc.List(ctx, alice, october)
		require.NoError(t, err)
		require.Len(t, inOctober, 1)
		assert.Equal(t, "a", inOctober[0].Title)

		all, err := svc.List(ctx, alice, time.Time{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("should update only the owner's posts", func(t *testing.T) {
		svc := newService()
		post, err := svc.Create(ctx, alice, CreatePostInput{Title: "a", Content: "a", Platforms: []string{"x"}})
		require.NoError(t, err)

		_, err = svc.Update(ctx, bob, UpdatePostInput{ID: post.ID, Title: ptr("mine now")})
		assert.True(t, apperr.Is(err, apperr.NotFound))

		updated, err := svc.Update(ctx, alice, UpdatePostInput{ID: post.ID, Status: ptr(models.PostScheduled), ScheduledAt: &october})
		require.NoError(t, err)
		assert.Equal(t, models.PostScheduled, updated.Status)
		assert.Equal(t, "a", updated.Title)
		assert.Equal(t, october, *updated.ScheduledAt)

		_, err = svc.Update(ctx, alice, UpdatePostInput{ID: post.ID, Status: ptr(models.PostStatus("archived"))})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("should delete only the owner's posts", func(t *testing.T) {
		svc := newService()
		post, err := svc.Create(ctx, alice, CreatePostInput{Title: "a", Content: "a", Platforms: []string{"x"}})
		require.NoError(t, err)

		assert.True(t, apperr.Is(svc.Delete(ctx, bob, post.ID), apperr.NotFound))
		require.NoError(t, svc.Delete(ctx, alice, post.ID))
		assert.True(t, apperr.Is(svc.Delete(ctx, alice, post.ID), apperr.NotFound))
	})
}

func TestTemplateService(t *testing.T) {
	ctx := context.Background()
	svc := NewTemplateService(discardLogger(), memstore.New().Templates())

	tpl, err := svc.Create(ctx, alice, CreateTemplateInput{Name: "Promo", Content: "Save 20%", Category: ptr("  ")})
	require.NoError(t, err)
	assert.Nil(t, tpl.Category)

	_, err = svc.Create(ctx, alice, CreateTemplateInput{Name: "", Content: "x"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	own, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	others, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, others)

	assert.True(t, apperr.Is(svc.Delete(ctx, bob, tpl.ID), apperr.NotFound))
	require.NoError(t, svc.Delete(ctx, alice, tpl.ID))
}
