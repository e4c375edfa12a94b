package chat

import (
	"context"
	"errors"
	"fmt"

	"errand-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the store operations of the messaging
// channel. Messages are append-only; MarkSeen is the single permitted
// mutation and is monotonic.
type RepositoryInterface interface {
	Insert(ctx context.Context, m *models.Message) error
	ListByRequest(ctx context.Context, requestID string) ([]models.Message, error)
	// MarkSeen flips every unseen message in the request not sent by
	// viewerID and returns the updated rows. Calling it again is a no-op.
	MarkSeen(ctx context.Context, requestID, viewerID string) ([]models.Message, error)
	FindRequest(ctx context.Context, requestID string) (*models.Request, error)
	LatestMatch(ctx context.Context, requestID string) (*models.Match, error)
	FindUser(ctx context.Context, userID string) (*models.User, error)
}

// Repository implements RepositoryInterface over PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new chat repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Insert appends one message. ID and creation timestamp are store-assigned;
// ordering across senders is defined by created_at, not client clocks.
func (r *Repository) Insert(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO "Messages" (request_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, seen`
	err := r.db.QueryRow(ctx, query, m.RequestID, m.SenderID, m.Content).
		Scan(&m.ID, &m.CreatedAt, &m.Seen)
	if err != nil {
		return fmt.Errorf("repository.Insert: %w", err)
	}
	return nil
}

// ListByRequest returns the full message log, oldest first.
func (r *Repository) ListByRequest(ctx context.Context, requestID string) ([]models.Message, error) {
	query := `
		SELECT id, request_id, sender_id, content, created_at, seen, seen_at
		FROM "Messages"
		WHERE request_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListByRequest.Query: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RequestID, &m.SenderID, &m.Content, &m.CreatedAt, &m.Seen, &m.SeenAt); err != nil {
			return nil, fmt.Errorf("repository.ListByRequest.scan: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkSeen is a single batched write; seen_at is set exactly when seen flips
// to true, so the two stay consistent by construction.
func (r *Repository) MarkSeen(ctx context.Context, requestID, viewerID string) ([]models.Message, error) {
	query := `
		UPDATE "Messages"
		SET seen = TRUE, seen_at = NOW()
		WHERE request_id = $1 AND sender_id <> $2 AND seen = FALSE
		RETURNING id, request_id, sender_id, content, created_at, seen, seen_at`
	rows, err := r.db.Query(ctx, query, requestID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("repository.MarkSeen.Query: %w", err)
	}
	defer rows.Close()

	var updated []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RequestID, &m.SenderID, &m.Content, &m.CreatedAt, &m.Seen, &m.SeenAt); err != nil {
			return nil, fmt.Errorf("repository.MarkSeen.scan: %w", err)
		}
		updated = append(updated, m)
	}
	return updated, rows.Err()
}

// FindRequest reads the participant fields of the request the chat belongs
// to.
func (r *Repository) FindRequest(ctx context.Context, requestID string) (*models.Request, error) {
	query := `SELECT request_id, buyer_id, status, helper_id FROM "Requests" WHERE request_id = $1`
	var req models.Request
	err := r.db.QueryRow(ctx, query, requestID).Scan(&req.ID, &req.BuyerID, &req.Status, &req.HelperID)
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

// FindUser reads the public profile fields of a chat participant.
func (r *Repository) FindUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT user_id, name, phone, profile_pic FROM "Users" WHERE user_id = $1`
	var u models.User
	err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Phone, &u.ProfilePic)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindUser: %w", err)
	}
	return &u, nil
}
