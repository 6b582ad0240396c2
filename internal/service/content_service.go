package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/models"
)

const maxTitleLength = 255

type ContentService struct {
	log       *slog.Logger
	posts     ContentStore
	templates TemplateStore
}

type CreatePostInput struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Platforms   []string   `json:"platforms"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	TemplateID  *int64     `json:"templateId"`
}

type UpdatePostInput struct {
	ID          int64              `json:"id"`
	Title       *string            `json:"title"`
	Content     *string            `json:"content"`
	Platforms   []string           `json:"platforms"`
	ScheduledAt *time.Time         `json:"scheduledAt"`
	Status      *models.PostStatus `json:"status"`
}

func NewContentService(log *slog.Logger, posts ContentStore, templates TemplateStore) *ContentService {
	return &ContentService{log: log, posts: posts, templates: templates}
}

// List returns the caller's posts. A non-zero month keeps only posts
// scheduled inside that calendar month (UTC).
func (s *ContentService) List(ctx context.Context, caller *models.User, month time.Time) ([]models.ContentPost, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	var from, to *time.Time
	if !month.IsZero() {
		start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		from, to = &start, &end
	}
	posts, err := s.posts.ListByUser(ctx, caller.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list content posts: %w", err)
	}
	return posts, nil
}

func (s *ContentService) Create(ctx context.Context, caller *models.User, in CreatePostInput) (*models.ContentPost, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	title, err := requireText("title", in.Title, maxTitleLength)
	if err != nil {
		return nil, err
	}
	content, err := requireText("content", in.Content, 0)
	if err != nil {
		return nil, err
	}
	platforms := cleanPlatforms(in.Platforms)
	if len(platforms) == 0 {
		return nil, apperr.New(apperr.Validation, "at least one platform is required")
	}
	if in.TemplateID != nil {
		if err := s.checkTemplate(ctx, caller, *in.TemplateID); err != nil {
			return nil, err
		}
	}

	post, err := s.posts.Create(ctx, &models.ContentPost{
		UserID:      caller.ID,
		Title:       title,
		Content:     content,
		Platforms:   platforms,
		ScheduledAt: in.ScheduledAt,
		Status:      models.PostDraft,
		TemplateID:  in.TemplateID,
	})
	if err != nil {
		return nil, fmt.Errorf("create content post: %w", err)
	}
	s.log.Info("content post created", "post_id", post.ID, "user_id", caller.ID)
	return post, nil
}

func (s *ContentService) Update(ctx context.Context, caller *models.User, in UpdatePostInput) (*models.ContentPost, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	post, err := s.ownedPost(ctx, caller, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if post.Title, err = requireText("title", *in.Title, maxTitleLength); err != nil {
			return nil, err
		}
	}
	if in.Content != nil {
		if post.Content, err = requireText("content", *in.Content, 0); err != nil {
			return nil, err
		}
	}
	if in.Platforms != nil {
		post.Platforms = cleanPlatforms(in.Platforms)
		if len(post.Platforms) == 0 {
			return nil, apperr.New(apperr.Validation, "at least one platform is required")
		}
	}
	if in.ScheduledAt != nil {
		post.ScheduledAt = in.ScheduledAt
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Newf(apperr.Validation, "unknown post status %q", *in.Status)
		}
		post.Status = *in.Status
	}

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("update content post: %w", err)
	}
	if updated == nil {
		return nil, apperr.Newf(apperr.NotFound, "post %d not found", in.ID)
	}
	return updated, nil
}

func (s *ContentService) Delete(ctx context.Context, caller *models.User, id int64) error {
	if err := auth.RequireUser(caller); err != nil {
		return err
	}
	deleted, err := s.posts.Delete(ctx, id, caller.ID)
	if err != nil {
		return fmt.Errorf("delete content post: %w", err)
	}
	if !deleted {
		return apperr.Newf(apperr.NotFound, "post %d not found", id)
	}
	return nil
}

func (s *ContentService) ownedPost(ctx context.Context, caller *models.User, id int64) (*models.ContentPost, error) {
	if id <= 0 {
		return nil, apperr.New(apperr.Validation, "id is required")
	}
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get content post: %w", err)
	}
	if post == nil || post.UserID != caller.ID {
		return nil, apperr.Newf(apperr.NotFound, "post %d not found", id)
	}
	return post, nil
}

// checkTemplate accepts only templates owned by the caller; others are
// reported as missing.
func (s *ContentService) checkTemplate(ctx context.Context, caller *models.User, id int64) error {
	tpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get content template: %w", err)
	}
	if tpl == nil || tpl.UserID != caller.ID {
		return apperr.Newf(apperr.NotFound, "template %d not found", id)
	}
	return nil
}

func requireText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperr.Newf(apperr.Validation, "%s is required", field)
	}
	if maxLen > 0 && len(value) > maxLen {
		return "", apperr.Newf(apperr.Validation, "%s must be at most %d characters", field, maxLen)
	}
	return value, nil
}

func cleanPlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
