package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/models"
)

const (
	// MaxProofSize bounds an uploaded receipt.
	MaxProofSize = 10 << 20

	maxProofRefLength = 2048
)

var proofContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

// PaymentService drives payment requests through
// pending → pending with proof → approved | rejected.
type PaymentService struct {
	log           *slog.Logger
	payments      PaymentStore
	subscriptions *SubscriptionService
	plans         *PlanService
	proofs        ProofStorage
	now           func() time.Time
}

type SubmitProofInput struct {
	ID           int64   `json:"id"`
	PaymentProof *string `json:"paymentProof"`
	Notes        *string `json:"notes"`
}

type DecideInput struct {
	PaymentID int64 `json:"paymentId"`
	Approved  bool  `json:"approved"`
}

// NewPaymentService wires the state machine. proofs may be nil when no
// object storage is configured; uploads then fail with Unavailable.
func NewPaymentService(log *slog.Logger, payments PaymentStore, subscriptions *SubscriptionService, plans *PlanService, proofs ProofStorage) *PaymentService {
	return &PaymentService{
		log:           log,
		payments:      payments,
		subscriptions: subscriptions,
		plans:         plans,
		proofs:        proofs,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RequestUpgrade opens a pending request for plan priced from the catalogue.
// The caller's subscription is not touched.
func (s *PaymentService) RequestUpgrade(ctx context.Context, caller *models.User, plan models.Plan) (*models.PaymentRequest, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	if !plan.Upgradable() {
		return nil, apperr.Newf(apperr.Validation, "plan must be pro or business, got %q", plan)
	}

	current, err := s.subscriptions.Current(ctx, caller)
	if err != nil {
		return nil, err
	}
	if current.Plan == plan {
		return nil, apperr.Newf(apperr.InvalidState, "already on the %s plan", plan)
	}

	offer, err := s.plans.Offer(plan)
	if err != nil {
		return nil, err
	}
	created, err := s.payments.Create(ctx, &models.PaymentRequest{
		UserID:      caller.ID,
		Plan:        plan,
		Amount:      offer.Price,
		Currency:    offer.Currency,
		Status:      models.PaymentPending,
		RequestedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	s.log.Info("payment request created", "payment_id", created.ID, "user_id", caller.ID, "plan", plan, "amount", created.Amount)
	return created, nil
}

// SubmitProof attaches a proof reference and/or notes to the caller's own
// pending request. Requests of other users are reported as missing.
func (s *PaymentService) SubmitProof(ctx context.Context, caller *models.User, in SubmitProofInput) (*models.PaymentRequest, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	if err := normalizeProofInput(&in); err != nil {
		return nil, err
	}

	req, err := s.payments.FindByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	if req == nil || req.UserID != caller.ID {
		return nil, apperr.Newf(apperr.NotFound, "payment request %d not found", in.ID)
	}
	if req.Status.Terminal() {
		return nil, apperr.Newf(apperr.InvalidState, "payment request is already %s", req.Status)
	}

	ok, err := s.payments.AttachProof(ctx, in.ID, caller.ID, in.PaymentProof, in.Notes)
	if err != nil {
		return nil, fmt.Errorf("attach payment proof: %w", err)
	}
	if !ok {
		return nil, apperr.New(apperr.InvalidState, "payment request is no longer pending")
	}

	updated, err := s.payments.FindByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	if updated == nil {
		return nil, apperr.Newf(apperr.NotFound, "payment request %d not found", in.ID)
	}
	s.log.Info("payment proof submitted", "payment_id", in.ID, "user_id", caller.ID, "has_proof", updated.PaymentProof != nil)
	return updated, nil
}

func normalizeProofInput(in *SubmitProofInput) error {
	if in.ID <= 0 {
		return apperr.New(apperr.Validation, "id is required")
	}
	if in.PaymentProof == nil && in.Notes == nil {
		return apperr.New(apperr.Validation, "paymentProof or notes is required")
	}
	if in.PaymentProof != nil {
		proof := strings.TrimSpace(*in.PaymentProof)
		if proof == "" {
			return apperr.New(apperr.Validation, "paymentProof must not be empty")
		}
		if len(proof) > maxProofRefLength {
			return apperr.New(apperr.Validation, "paymentProof is too long")
		}
		in.PaymentProof = &proof
	}
	return nil
}

// AdminDecide approves or rejects a pending request. The request is read
// once; the status change and, on approval, the subscription activation for
// the request's user and plan are written in one transaction.
func (s *PaymentService) AdminDecide(ctx context.Context, caller *models.User, in DecideInput) (*models.PaymentRequest, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if in.PaymentID <= 0 {
		return nil, apperr.New(apperr.Validation, "paymentId is required")
	}

	req, err := s.payments.FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	if req == nil {
		return nil, apperr.Newf(apperr.NotFound, "payment request %d not found", in.PaymentID)
	}
	if req.Status.Terminal() {
		return nil, apperr.Newf(apperr.InvalidState, "payment request is already %s", req.Status)
	}

	now := s.now()
	decided := *req
	decided.UpdatedAt = now
	var sub *models.Subscription
	if in.Approved {
		decided.Status = models.PaymentApproved
		decided.ApprovedAt = &now
		sub = activation(req.UserID, req.Plan, now)
	} else {
		decided.Status = models.PaymentRejected
		decided.ApprovedAt = nil
	}

	if err := s.payments.Decide(ctx, req.ID, decided.Status, decided.ApprovedAt, sub); err != nil {
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("decide payment request: %w", err)
	}

	s.log.Info("payment request decided",
		"payment_id", req.ID,
		"user_id", req.UserID,
		"plan", req.Plan,
		"status", decided.Status,
		"admin_id", caller.ID,
	)
	return &decided, nil
}

func (s *PaymentService) ListPending(ctx context.Context, caller *models.User) ([]models.PaymentRequest, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	reqs, err := s.payments.ListByStatus(ctx, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("list pending payment requests: %w", err)
	}
	return reqs, nil
}

func (s *PaymentService) ListForUser(ctx context.Context, caller *models.User) ([]models.PaymentRequest, error) {
	if err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	reqs, err := s.payments.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	return reqs, nil
}

// UploadProof stores a receipt file and returns the URL to submit as proof.
func (s *PaymentService) UploadProof(ctx context.Context, caller *models.User, data []byte) (string, error) {
	if err := auth.RequireUser(caller); err != nil {
		return "", err
	}
	if s.proofs == nil {
		return "", apperr.New(apperr.Unavailable, "proof storage is not configured")
	}
	if len(data) == 0 {
		return "", apperr.New(apperr.Validation, "file is empty")
	}
	if len(data) > MaxProofSize {
		return "", apperr.New(apperr.Validation, "file exceeds 10 MiB")
	}
	contentType := http.DetectContentType(data)
	if !proofContentTypes[contentType] {
		return "", apperr.Newf(apperr.Validation, "unsupported file type %q", contentType)
	}

	url, err := s.proofs.Upload(ctx, data, contentType)
	if err != nil {
		return "", apperr.Wrap(apperr.Unavailable, err, "proof storage failed")
	}
	s.log.Info("payment proof uploaded", "user_id", caller.ID, "content_type", contentType, "size", len(data))
	return url, nil
}
