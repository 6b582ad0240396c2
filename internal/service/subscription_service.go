package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/models"
)

// BillingPeriod is the length of a period started by an approved payment.
const BillingPeriod = 30 * 24 * time.Hour

type SubscriptionService struct {
	log  *slog.Logger
	subs SubscriptionStore
}

// UpdateSubscriptionInput is the explicit input of a manual subscription edit.
// Nil fields keep the stored value.
type UpdateSubscriptionInput struct {
	Plan               models.Plan                `json:"plan"`
	Status             *models.SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time                 `json:"currentPeriodStart"`
	CurrentPeriodEnd   *time.Time                 `json:"currentPeriodEnd"`
}

func (in UpdateSubscriptionInput) Validate() error {
	if !in.Plan.Valid() {
		return apperr.Newf(apperr.Validation, "unknown plan %q", in.Plan)
	}
	if in.Status != nil && !in.Status.Valid() {
		return apperr.Newf(apperr.Validation, "unknown subscription status %q", *in.Status)
	}
	if in.CurrentPeriodStart != nil && in.CurrentPeriodEnd != nil && in.CurrentPeriodEnd.Before(*in.CurrentPeriodStart) {
		return apperr.New(apperr.Validation, "currentPeriodEnd must not precede currentPeriodStart")
	}
	return nil
}

func NewSubscriptionService(log *slog.Logger, subs SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{log: log, subs: subs}
}

// Current returns the caller's subscription, or the implicit free plan when
// no row exists. It never writes.
func (s *SubscriptionService) Current(ctx context.Context, caller *models.User) (*models.Subscription, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	sub, err := s.subs.FindByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return &models.Subscription{UserID: caller.ID, Plan: models.PlanFree, Status: models.SubscriptionActive}, nil
	}
	return sub, nil
}

func (s *SubscriptionService) Update(ctx context.Context, caller *models.User, in UpdateSubscriptionInput) (*models.Subscription, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.subs.FindByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	next := models.Subscription{UserID: caller.ID, Plan: in.Plan, Status: models.SubscriptionActive}
	if existing != nil {
		next.Status = existing.Status
		next.CurrentPeriodStart = existing.CurrentPeriodStart
		next.CurrentPeriodEnd = existing.CurrentPeriodEnd
	}
	if in.Status != nil {
		next.Status = *in.Status
	}
	if in.CurrentPeriodStart != nil {
		next.CurrentPeriodStart = in.CurrentPeriodStart
	}
	if in.CurrentPeriodEnd != nil {
		next.CurrentPeriodEnd = in.CurrentPeriodEnd
	}
	if next.CurrentPeriodStart != nil && next.CurrentPeriodEnd != nil && next.CurrentPeriodEnd.Before(*next.CurrentPeriodStart) {
		return nil, apperr.New(apperr.Validation, "currentPeriodEnd must not precede currentPeriodStart")
	}

	updated, err := s.subs.Upsert(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	s.log.Info("subscription updated", "user_id", caller.ID, "plan", updated.Plan, "status", updated.Status)
	return updated, nil
}

// activation builds the subscription an approved request for plan grants,
// with a period starting at start.
func activation(userID int64, plan models.Plan, start time.Time) *models.Subscription {
	end := start.Add(BillingPeriod)
	return &models.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
}
