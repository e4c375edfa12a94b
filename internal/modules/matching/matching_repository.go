package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"errand-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the store operations the matching engine
// needs. ClaimRequest and ReleaseRequest are the two guarded conditional
// updates; everything else is plain reads and one insert.
type RepositoryInterface interface {
	FindRequest(ctx context.Context, requestID string) (*models.Request, error)
	// ClaimRequest flips pending -> on_progress guarded on the status still
	// being pending. Returns false when zero rows were affected, i.e. a
	// concurrent caller won the race.
	ClaimRequest(ctx context.Context, requestID string) (bool, error)
	// ReleaseRequest flips on_progress -> pending, guarded the same way.
	// Used by Reject and by the Accept compensation path.
	ReleaseRequest(ctx context.Context, requestID string) (bool, error)
	InsertMatch(ctx context.Context, m *models.Match) error
	LatestMatch(ctx context.Context, requestID string) (*models.Match, error)
	ListAssignments(ctx context.Context, helperID string) ([]*models.Assignment, error)
	BuyerContact(ctx context.Context, userID string) (email, name string, err error)
}

// Repository implements RepositoryInterface over PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new matching repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// FindRequest reads the request row the claim is about.
func (r *Repository) FindRequest(ctx context.Context, requestID string) (*models.Request, error) {
	query := `
		SELECT request_id, buyer_id, item_list, delivery_address, tip, status, helper_id, created_at
		FROM "Requests"
		WHERE request_id = $1`
	var req models.Request
	var itemList []byte
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&req.ID, &req.BuyerID, &itemList, &req.DeliveryAddress,
		&req.Tip, &req.Status, &req.HelperID, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindRequest: %w", err)
	}
	if len(itemList) > 0 {
		_ = json.Unmarshal(itemList, &req.Items)
	}
	return &req, nil
}

// ClaimRequest is the accept compare-and-swap. The WHERE clause re-checks
// the status at commit time; the store serializes concurrent claims and
// exactly one caller sees a row affected.
func (r *Repository) ClaimRequest(ctx context.Context, requestID string) (bool, error) {
	query := `
		UPDATE "Requests"
		SET status = 'on_progress'
		WHERE request_id = $1 AND status = 'pending'`
	cmdTag, err := r.db.Exec(ctx, query, requestID)
	if err != nil {
		return false, fmt.Errorf("repository.ClaimRequest: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// ReleaseRequest undoes a claim, guarded on the request still being
// on_progress.
func (r *Repository) ReleaseRequest(ctx context.Context, requestID string) (bool, error) {
	query := `
		UPDATE "Requests"
		SET status = 'pending'
		WHERE request_id = $1 AND status = 'on_progress'`
	cmdTag, err := r.db.Exec(ctx, query, requestID)
	if err != nil {
		return false, fmt.Errorf("repository.ReleaseRequest: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// InsertMatch records the successful claim. A duplicate active match (unique
// violation on request_id + helper_id + accepted_at) is reported as a
// conflict rather than a raw driver error.
func (r *Repository) InsertMatch(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO "Matches" (request_id, helper_id, buyer_id, accepted_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, m.RequestID, m.HelperID, m.BuyerID, m.AcceptedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("repository.InsertMatch: %w", err)
	}
	return nil
}

// LatestMatch returns the most recent match row for a request, or
// ErrNotFound when the request was never claimed.
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

// ListAssignments returns every request the helper has claimed together with
// the match metadata, newest claim first. Historical matches whose request
// was reclaimed by someone else are filtered out by comparing against the
// newest match per request.
func (r *Repository) ListAssignments(ctx context.Context, helperID string) ([]*models.Assignment, error) {
	query := `
		SELECT m.request_id, m.helper_id, m.buyer_id, m.accepted_at,
		       r.request_id, r.buyer_id, r.item_list, r.delivery_address, r.tip, r.status, r.created_at,
		       u.name
		FROM "Matches" m
		JOIN "Requests" r ON r.request_id = m.request_id
		JOIN "Users" u ON u.user_id = r.buyer_id
		WHERE m.helper_id = $1
		  AND m.accepted_at = (SELECT MAX(accepted_at) FROM "Matches" WHERE request_id = m.request_id)
		ORDER BY m.accepted_at DESC`
	rows, err := r.db.Query(ctx, query, helperID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAssignments.Query: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		var a models.Assignment
		var itemList []byte
		err := rows.Scan(
			&a.Match.RequestID, &a.Match.HelperID, &a.Match.BuyerID, &a.Match.AcceptedAt,
			&a.Request.ID, &a.Request.BuyerID, &itemList, &a.Request.DeliveryAddress,
			&a.Request.Tip, &a.Request.Status, &a.Request.CreatedAt,
			&a.Request.BuyerName,
		)
		if err != nil {
			return nil, fmt.Errorf("repository.ListAssignments.scan: %w", err)
		}
		if len(itemList) > 0 {
			_ = json.Unmarshal(itemList, &a.Request.Items)
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// BuyerContact fetches the email and display name used for the accept
// notification.
func (r *Repository) BuyerContact(ctx context.Context, userID string) (string, string, error) {
	query := `SELECT email, name FROM "Users" WHERE user_id = $1`
	var email, name string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&email, &name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", models.ErrNotFound
		}
		return "", "", fmt.Errorf("repository.BuyerContact: %w", err)
	}
	return email, name, nil
}
