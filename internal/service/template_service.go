package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/models"
)

type TemplateService struct {
	log       *slog.Logger
	templates TemplateStore
}

type CreateTemplateInput struct {
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Category  *string  `json:"category"`
	Platforms []string `json:"platforms"`
}

func NewTemplateService(log *slog.Logger, templates TemplateStore) *TemplateService {
	return &TemplateService{log: log, templates: templates}
}

func (s *TemplateService) List(ctx context.Context, caller *models.User) ([]models.ContentTemplate, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	tpls, err := s.templates.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tpls, nil
}

func (s *TemplateService) Create(ctx context.Context, caller *models.User, in CreateTemplateInput) (*models.ContentTemplate, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	name, err := requireText("name", in.Name, maxTitleLength)
	if err != nil {
		return nil, err
	}
	content, err := requireText("content", in.Content, 0)
	if err != nil {
		return nil, err
	}
	var category *string
	if in.Category != nil {
		if c := strings.TrimSpace(*in.Category); c != "" {
			category = &c
		}
	}

	tpl, err := s.templates.Create(ctx, &models.ContentTemplate{
		UserID:    caller.ID,
		Name:      name,
		Content:   content,
		Category:  category,
		Platforms: cleanPlatforms(in.Platforms),
	})
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, caller *models.User, id int64) error {
	if err := auth.RequireUser(caller); err != nil {
		return err
	}
	deleted, err := s.templates.Delete(ctx, id, caller.ID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if !deleted {
		return apperr.Newf(apperr.NotFound, "template %d not found", id)
	}
	s.log.Info("template deleted", "template_id", id, "user_id", caller.ID)
	return nil
}
