package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/internal/models"
)

const templateColumns = `id, user_id, name, content, category, platforms, created_at, updated_at`

type TemplateRepository struct {
	db *database.Handle
}

func NewTemplateRepository(db *database.Handle) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *models.ContentTemplate) (*models.ContentTemplate, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `
INSERT INTO content_templates (user_id, name, content, category, platforms)
VALUES (?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, tpl.UserID, tpl.Name, tpl.Content, tpl.Category, joinPlatforms(tpl.Platforms))
	if err != nil {
		return nil, fmt.Errorf("insert content template: %w", database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("content template last insert id: %w", err)
	}

	query2 := `SELECT ` + templateColumns + ` FROM content_templates WHERE id = ?`
	created, err := scanTemplate(db.QueryRowContext(ctx, query2, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content template %d vanished after insert", id)
		}
		return nil, fmt.Errorf("get content template: %w", database.Classify(err))
	}
	return created, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id int64) (*models.ContentTemplate, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + templateColumns + ` FROM content_templates WHERE id = ?`
	tpl, err := scanTemplate(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get content template: %w", database.Classify(err))
	}
	return tpl, nil
}

// ListByUser returns the user's templates, newest first.
func (r *TemplateRepository) ListByUser(ctx context.Context, userID int64) ([]models.ContentTemplate, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + templateColumns + ` FROM content_templates WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list content templates: %w", database.Classify(err))
	}
	defer rows.Close()

	templates := []models.ContentTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content template: %w", err)
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

// Delete removes the template when userID owns it and reports whether a row went away.
func (r *TemplateRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM content_templates WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete content template: %w", database.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete content template rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanTemplate(row rowScanner) (*models.ContentTemplate, error) {
	var t models.ContentTemplate
	var category sql.NullString
	var platforms string
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Content, &category, &platforms, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Category = nullString(category)
	t.Platforms = splitPlatforms(platforms)
	return &t, nil
}
