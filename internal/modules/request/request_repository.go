package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"errand-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the request repository.
type RepositoryInterface interface {
	Create(ctx context.Context, buyerID string, req models.CreateRequestRequest) (*models.Request, error)
	FindByID(ctx context.Context, requestID string) (*models.Request, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*models.Request, error)
	ListOpen(ctx context.Context, excludeBuyerID string) ([]*models.Request, error)
	UpdatePending(ctx context.Context, requestID, buyerID string, req models.UpdateRequestRequest) error
	CancelPending(ctx context.Context, requestID, buyerID string) error
}

// Repository implements RepositoryInterface over PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new request repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const requestColumns = `r.request_id, r.buyer_id, r.item_list, r.delivery_address,
	r.latitude, r.longitude, r.tip, r.estimated_price, r.payment_method,
	r.product_purchase_location, r.category_id, r.status, r.helper_id, r.created_at`

// aliasless strips the "r." query alias from requestColumns so the same
// column list works in a RETURNING clause.
func aliasless(cols string) string {
	return strings.ReplaceAll(cols, "r.", "")
}

// scanRequest scans one Requests row, decoding the item_list JSON document.
// An extra buyerName target is scanned when the query joined Users.
func scanRequest(row pgx.Row, withBuyerName bool) (*models.Request, error) {
	var r models.Request
	var itemList []byte
	dest := []any{
		&r.ID, &r.BuyerID, &itemList, &r.DeliveryAddress,
		&r.Latitude, &r.Longitude, &r.Tip, &r.EstimatedPrice, &r.PaymentMethod,
		&r.PurchaseLocation, &r.CategoryID, &r.Status, &r.HelperID, &r.CreatedAt,
	}
	if withBuyerName {
		dest = append(dest, &r.BuyerName)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}
	if len(itemList) > 0 {
		if err := json.Unmarshal(itemList, &r.Items); err != nil {
			// Legacy rows may carry malformed item lists; surface an empty
			// list instead of failing the whole read.
			r.Items = nil
		}
	}
	return &r, nil
}

// Create inserts a new request in the pending state.
func (r *Repository) Create(ctx context.Context, buyerID string, req models.CreateRequestRequest) (*models.Request, error) {
	itemList, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("repository.Create: marshal item list: %w", err)
	}

	query := `
		INSERT INTO "Requests" (buyer_id, item_list, delivery_address, latitude, longitude,
			tip, estimated_price, payment_method, product_purchase_location, category_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending')
		RETURNING ` + aliasless(requestColumns)

	row := r.db.QueryRow(ctx, query, buyerID, itemList, req.DeliveryAddress,
		req.Latitude, req.Longitude, req.Tip, req.EstimatedPrice,
		req.PaymentMethod, req.PurchaseLocation, req.CategoryID)
	created, err := scanRequest(row, false)
	if err != nil {
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return created, nil
}

// FindByID retrieves a single request by its ID.
func (r *Repository) FindByID(ctx context.Context, requestID string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM "Requests" r WHERE r.request_id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID), false)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return req, nil
}

// ListByBuyer retrieves every request a buyer has posted, newest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM "Requests" r
		WHERE r.buyer_id = $1
		ORDER BY r.created_at DESC`
	rows, err := r.db.Query(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListByBuyer.Query: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows, false)
		if err != nil {
			return nil, fmt.Errorf("repository.ListByBuyer.scan: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ListOpen retrieves all pending requests not authored by excludeBuyerID,
// joined with the buyer's display name, newest first.
func (r *Repository) ListOpen(ctx context.Context, excludeBuyerID string) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + `, u.name
		FROM "Requests" r
		JOIN "Users" u ON u.user_id = r.buyer_id
		WHERE r.status = 'pending' AND r.buyer_id <> $1
		ORDER BY r.created_at DESC`
	rows, err := r.db.Query(ctx, query, excludeBuyerID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListOpen.Query: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows, true)
		if err != nil {
			return nil, fmt.Errorf("repository.ListOpen.scan: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// UpdatePending edits a request, guarded on ownership and the pending
// status. Zero rows affected means the request was claimed, cancelled or
// never belonged to the caller.
func (r *Repository) UpdatePending(ctx context.Context, requestID, buyerID string, req models.UpdateRequestRequest) error {
	itemList, err := json.Marshal(req.Items)
	if err != nil {
		return fmt.Errorf("repository.UpdatePending: marshal item list: %w", err)
	}

	query := `
		UPDATE "Requests"
		SET item_list = $1, delivery_address = $2, tip = $3
		WHERE request_id = $4 AND buyer_id = $5 AND status = 'pending'`
	cmdTag, err := r.db.Exec(ctx, query, itemList, req.DeliveryAddress, req.Tip, requestID, buyerID)
	if err != nil {
		return fmt.Errorf("repository.UpdatePending: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

// CancelPending withdraws a request, guarded the same way as UpdatePending.
// Cancelled is terminal; rows are never physically deleted once posted.
func (r *Repository) CancelPending(ctx context.Context, requestID, buyerID string) error {
	query := `
		UPDATE "Requests"
		SET status = 'cancelled'
		WHERE request_id = $1 AND buyer_id = $2 AND status = 'pending'`
	cmdTag, err := r.db.Exec(ctx, query, requestID, buyerID)
	if err != nil {
		return fmt.Errorf("repository.CancelPending: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}
