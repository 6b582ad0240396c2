package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/internal/models"
)

type SubscriptionRepository struct {
	db *database.Handle
}

func NewSubscriptionRepository(db *database.Handle) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindByUser returns nil, nil when the user has no subscription row.
func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `
SELECT id, user_id, plan, status, current_period_start, current_period_end, created_at, updated_at
FROM subscriptions WHERE user_id = ? LIMIT 1`
	var s models.Subscription
	var start, end sql.NullTime
	row := db.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &start, &end, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", database.Classify(err))
	}
	s.CurrentPeriodStart = nullTime(start)
	s.CurrentPeriodEnd = nullTime(end)
	return &s, nil
}

// Upsert writes sub as the user's only subscription row and returns the stored row.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	if err := upsertSubscription(ctx, db, sub); err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, sub.UserID)
}

// upsertSubscription relies on the unique key on user_id so concurrent
// activations for one user collapse into a single row.
func upsertSubscription(ctx context.Context, q database.Querier, sub *models.Subscription) error {
	const query = `
INSERT INTO subscriptions (user_id, plan, status, current_period_start, current_period_end)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    plan = VALUES(plan),
    status = VALUES(status),
    current_period_start = VALUES(current_period_start),
    current_period_end = VALUES(current_period_end),
    updated_at = NOW()`
	if _, err := q.ExecContext(ctx, query, sub.UserID, sub.Plan, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd); err != nil {
		return fmt.Errorf("upsert subscription: %w", database.Classify(err))
	}
	return nil
}
