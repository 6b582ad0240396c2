package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/internal/models"
)

const postColumns = `id, user_id, title, content, platforms, scheduled_at, status, template_id, created_at, updated_at`

type ContentRepository struct {
	db *database.Handle
}

func NewContentRepository(db *database.Handle) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) Create(ctx context.Context, post *models.ContentPost) (*models.ContentPost, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `
INSERT INTO content_posts (user_id, title, content, platforms, scheduled_at, status, template_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, post.UserID, post.Title, post.Content, joinPlatforms(post.Platforms), post.ScheduledAt, post.Status, post.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("insert content post: %w", database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("content post last insert id: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *ContentRepository) FindByID(ctx context.Context, id int64) (*models.ContentPost, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + postColumns + ` FROM content_posts WHERE id = ?`
	post, err := scanPost(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get content post: %w", database.Classify(err))
	}
	return post, nil
}

// ListByUser returns the user's posts ordered by schedule, latest first. When
// from and to are set only posts scheduled within [from, to) are returned.
func (r *ContentRepository) ListByUser(ctx context.Context, userID int64, from, to *time.Time) ([]models.ContentPost, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + postColumns + ` FROM content_posts WHERE user_id = ?`
	args := []any{userID}
	if from != nil && to != nil {
		query += ` AND scheduled_at >= ? AND scheduled_at < ?`
		args = append(args, *from, *to)
	}
	query += ` ORDER BY scheduled_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content posts: %w", database.Classify(err))
	}
	defer rows.Close()

	posts := []models.ContentPost{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *ContentRepository) Update(ctx context.Context, post *models.ContentPost) (*models.ContentPost, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `
UPDATE content_posts
SET title = ?, content = ?, platforms = ?, scheduled_at = ?, status = ?, updated_at = NOW()
WHERE id = ? AND user_id = ?`
	if _, err := db.ExecContext(ctx, query, post.Title, post.Content, joinPlatforms(post.Platforms), post.ScheduledAt, post.Status, post.ID, post.UserID); err != nil {
		return nil, fmt.Errorf("update content post: %w", database.Classify(err))
	}
	return r.FindByID(ctx, post.ID)
}

// Delete removes the post when userID owns it and reports whether a row went away.
func (r *ContentRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM content_posts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete content post: %w", database.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete content post rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanPost(row rowScanner) (*models.ContentPost, error) {
	var p models.ContentPost
	var platforms string
	var scheduledAt sql.NullTime
	var templateID sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &platforms, &scheduledAt, &p.Status, &templateID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Platforms = splitPlatforms(platforms)
	p.ScheduledAt = nullTime(scheduledAt)
	if templateID.Valid {
		p.TemplateID = &templateID.Int64
	}
	return &p, nil
}

// Platforms are stored comma-separated, e.g. "instagram,facebook,linkedin".
func joinPlatforms(platforms []string) string {
	return strings.Join(platforms, ",")
}

func splitPlatforms(raw string) []string {
	platforms := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, p)
		}
	}
	return platforms
}
