package service

import (
	"context"
	"time"

	"github.com/digkill/ContentPlanner/internal/models"
)

// The store interfaces below are satisfied by the repository package.

type UserStore interface {
	FindByOpenID(ctx context.Context, openID string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User, promote bool) (*models.User, error)
	TouchLastSignedIn(ctx context.Context, userID int64, at time.Time) error
}

type SubscriptionStore interface {
	FindByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
}

type PaymentStore interface {
	Create(ctx context.Context, req *models.PaymentRequest) (*models.PaymentRequest, error)
	FindByID(ctx context.Context, id int64) (*models.PaymentRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]models.PaymentRequest, error)
	ListByStatus(ctx context.Context, status models.PaymentStatus) ([]models.PaymentRequest, error)
	AttachProof(ctx context.Context, id, userID int64, proof, notes *string) (bool, error)
	Decide(ctx context.Context, id int64, status models.PaymentStatus, approvedAt *time.Time, activation *models.Subscription) error
}

type ContentStore interface {
	Create(ctx context.Context, post *models.ContentPost) (*models.ContentPost, error)
	FindByID(ctx context.Context, id int64) (*models.ContentPost, error)
	ListByUser(ctx context.Context, userID int64, from, to *time.Time) ([]models.ContentPost, error)
	Update(ctx context.Context, post *models.ContentPost) (*models.ContentPost, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

type TemplateStore interface {
	Create(ctx context.Context, tpl *models.ContentTemplate) (*models.ContentTemplate, error)
	FindByID(ctx context.Context, id int64) (*models.ContentTemplate, error)
	ListByUser(ctx context.Context, userID int64) ([]models.ContentTemplate, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// ProofStorage persists an uploaded receipt and returns its public URL.
type ProofStorage interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}
