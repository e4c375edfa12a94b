package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"errand-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the store operations of the post-match
// workflow. CreatePaymentAndAdvance is the one composite write: payment
// insert and status advance commit together or not at all.
type RepositoryInterface interface {
	FindRequest(ctx context.Context, requestID string) (*models.Request, error)
	LatestMatch(ctx context.Context, requestID string) (*models.Match, error)
	// CreatePaymentAndAdvance inserts the payment row and flips the request
	// on_progress -> receipt_uploaded in a single transaction. A zero-row
	// guarded update rolls everything back and returns ErrConflict.
	CreatePaymentAndAdvance(ctx context.Context, p *models.Payment) error
	// AdvanceToCompleted flips receipt_uploaded -> completed, guarded on the
	// current status. Returns false when zero rows were affected.
	AdvanceToCompleted(ctx context.Context, requestID string) (bool, error)
	CurrentPayment(ctx context.Context, requestID string) (*models.Payment, error)
}

// Repository implements RepositoryInterface over PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new fulfillment repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// FindRequest reads the fields the workflow checks before advancing.
func (r *Repository) FindRequest(ctx context.Context, requestID string) (*models.Request, error) {
	query := `
		SELECT request_id, buyer_id, tip, status, helper_id, created_at
		FROM "Requests"
		WHERE request_id = $1`
	var req models.Request
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&req.ID, &req.BuyerID, &req.Tip, &req.Status, &req.HelperID, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindRequest: %w", err)
	}
	return &req, nil
}

// LatestMatch returns the newest match row for the request.
func (r *Repository) LatestMatch(ctx context.Context, requestID string) (*models.Match, error) {
	query := `
		SELECT request_id, helper_id, buyer_id, accepted_at
		FROM "Matches"
		WHERE request_id = $1
		ORDER BY accepted_at DESC
		LIMIT 1`
	var m models.Match
	err := r.db.QueryRow(ctx, query, requestID).Scan(&m.RequestID, &m.HelperID, &m.BuyerID, &m.AcceptedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.LatestMatch: %w", err)
	}
	return &m, nil
}

// CreatePaymentAndAdvance performs the receipt-upload write pair.
func (r *Repository) CreatePaymentAndAdvance(ctx context.Context, p *models.Payment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.CreatePaymentAndAdvance: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO "Payments" (request_id, helper_id, final_price, amount_total, receipt_url, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, insert, p.RequestID, p.HelperID, p.FinalPrice, p.AmountTotal, p.ReceiptURL).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreatePaymentAndAdvance: insert: %w", err)
	}
	p.Status = "pending"

	advance := `
		UPDATE "Requests"
		SET status = 'receipt_uploaded'
		WHERE request_id = $1 AND status = 'on_progress'`
	cmdTag, err := tx.Exec(ctx, advance, p.RequestID)
	if err != nil {
		return fmt.Errorf("repository.CreatePaymentAndAdvance: advance: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.CreatePaymentAndAdvance: commit: %w", err)
	}
	return nil
}

// AdvanceToCompleted is the final lifecycle transition.
func (r *Repository) AdvanceToCompleted(ctx context.Context, requestID string) (bool, error) {
	query := `
		UPDATE "Requests"
		SET status = 'completed'
		WHERE request_id = $1 AND status = 'receipt_uploaded'`
	cmdTag, err := r.db.Exec(ctx, query, requestID)
	if err != nil {
		return false, fmt.Errorf("repository.AdvanceToCompleted: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// CurrentPayment returns the newest payment row for the request; earlier
// rows are superseded history.
func (r *Repository) CurrentPayment(ctx context.Context, requestID string) (*models.Payment, error) {
	query := `
		SELECT id, request_id, helper_id, final_price, amount_total, receipt_url, status, created_at
		FROM "Payments"
		WHERE request_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	var p models.Payment
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&p.ID, &p.RequestID, &p.HelperID, &p.FinalPrice, &p.AmountTotal,
		&p.ReceiptURL, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.CurrentPayment: %w", err)
	}
	return &p, nil
}
