package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/internal/models"
)

const paymentColumns = `id, user_id, plan, amount, currency, status, payment_proof, notes, requested_at, approved_at, created_at, updated_at`

type PaymentRepository struct {
	db *database.Handle
}

func NewPaymentRepository(db *database.Handle) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, req *models.PaymentRequest) (*models.PaymentRequest, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	const query = `
INSERT INTO payment_requests (user_id, plan, amount, currency, status, payment_proof, notes, requested_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, req.UserID, req.Plan, req.Amount, req.Currency, req.Status, req.PaymentProof, req.Notes, req.RequestedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment request: %w", database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("payment request last insert id: %w", err)
	}
	return r.FindByID(ctx, id)
}

// FindByID returns nil, nil when no request has the given id.
func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*models.PaymentRequest, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = ?`
	p, err := scanPayment(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment request: %w", database.Classify(err))
	}
	return p, nil
}

// ListByUser returns the user's requests, most recently requested first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE user_id = ? ORDER BY requested_at DESC, id DESC`
	return r.list(ctx, "list user payment requests", query, userID)
}

// ListByStatus returns requests of every user in the given status, most recently requested first.
func (r *PaymentRepository) ListByStatus(ctx context.Context, status models.PaymentStatus) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE status = ? ORDER BY requested_at DESC, id DESC`
	return r.list(ctx, "list payment requests by status", query, status)
}

// AttachProof sets the proof and notes of a pending request owned by userID.
// A nil field keeps the stored value. It reports false when no pending request
// owned by userID matched.
func (r *PaymentRepository) AttachProof(ctx context.Context, id, userID int64, proof, notes *string) (bool, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return false, err
	}
	const query = `
UPDATE payment_requests
SET payment_proof = COALESCE(?, payment_proof), notes = COALESCE(?, notes), updated_at = NOW()
WHERE id = ? AND user_id = ? AND status = 'pending'`
	res, err := db.ExecContext(ctx, query, proof, notes, id, userID)
	if err != nil {
		return false, fmt.Errorf("attach payment proof: %w", database.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach proof rows affected: %w", err)
	}
	return affected > 0, nil
}

// Decide moves a pending request to status and, when activation is set,
// upserts that subscription in the same transaction. The status change only
// applies while the request is still pending; otherwise nothing is written
// and an InvalidState error is returned.
func (r *PaymentRepository) Decide(ctx context.Context, id int64, status models.PaymentStatus, approvedAt *time.Time, activation *models.Subscription) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		const query = `
UPDATE payment_requests
SET status = ?, approved_at = ?, updated_at = NOW()
WHERE id = ? AND status = 'pending'`
		res, err := tx.ExecContext(ctx, query, status, approvedAt, id)
		if err != nil {
			return fmt.Errorf("decide payment request: %w", database.Classify(err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("decide rows affected: %w", err)
		}
		if affected == 0 {
			return apperr.New(apperr.InvalidState, "payment request is no longer pending")
		}
		if activation == nil {
			return nil
		}
		return upsertSubscription(ctx, tx, activation)
	})
}

func (r *PaymentRepository) list(ctx context.Context, op, query string, args ...any) ([]models.PaymentRequest, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, database.Classify(err))
	}
	defer rows.Close()

	requests := []models.PaymentRequest{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment request: %w", err)
		}
		requests = append(requests, *p)
	}
	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.PaymentRequest, error) {
	var p models.PaymentRequest
	var proof, notes sql.NullString
	var approvedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.Plan, &p.Amount, &p.Currency, &p.Status, &proof, &notes, &p.RequestedAt, &approvedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PaymentProof = nullString(proof)
	p.Notes = nullString(notes)
	p.ApprovedAt = nullTime(approvedAt)
	return &p, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
