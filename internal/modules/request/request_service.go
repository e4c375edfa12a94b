package request

import (
	"context"
	"fmt"

	"errand-market/internal/models"
)

// ServiceInterface defines the contract for the request service.
type ServiceInterface interface {
	CreateRequest(ctx context.Context, buyerID string, req models.CreateRequestRequest) (*models.Request, error)
	GetRequest(ctx context.Context, requestID string) (*models.Request, error)
	ListMyRequests(ctx context.Context, buyerID, status string) ([]*models.Request, error)
	UpdateRequest(ctx context.Context, requestID, buyerID string, req models.UpdateRequestRequest) error
	CancelRequest(ctx context.Context, requestID, buyerID string) error
}

// Service implements the buyer-side request logic.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new request service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// CreateRequest posts a new pending request for the buyer.
func (s *Service) CreateRequest(ctx context.Context, buyerID string, req models.CreateRequestRequest) (*models.Request, error) {
	// Coordinates travel as a pair; a lone latitude cannot be ranked and a
	// lone longitude is almost certainly a client bug.
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, models.ErrValidationFailed
	}
	created, err := s.repo.Create(ctx, buyerID, req)
	if err != nil {
		return nil, fmt.Errorf("service.CreateRequest: %w", err)
	}
	return created, nil
}

// GetRequest retrieves a single request. Pending requests are public to any
// signed-in helper, so no ownership check happens here.
func (s *Service) GetRequest(ctx context.Context, requestID string) (*models.Request, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListMyRequests returns the buyer's own requests, newest first. A non-empty
// status narrows the list to one lifecycle state (the activity screen tabs).
func (s *Service) ListMyRequests(ctx context.Context, buyerID, status string) ([]*models.Request, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, models.ErrValidationFailed
	}
	requests, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("service.ListMyRequests: %w", err)
	}
	if status == "" {
		return requests, nil
	}
	filtered := requests[:0]
	for _, r := range requests {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// UpdateRequest edits a request while it is still pending. Once a helper
// claims it the edit window closes; the guarded update reports that as a
// conflict, which is mapped onto Forbidden/NotFound by looking at the row.
func (s *Service) UpdateRequest(ctx context.Context, requestID, buyerID string, req models.UpdateRequestRequest) error {
	if err := s.repo.UpdatePending(ctx, requestID, buyerID, req); err != nil {
		return s.explainGuardFailure(ctx, requestID, buyerID, err)
	}
	return nil
}

// CancelRequest withdraws a still-pending request.
func (s *Service) CancelRequest(ctx context.Context, requestID, buyerID string) error {
	if err := s.repo.CancelPending(ctx, requestID, buyerID); err != nil {
		return s.explainGuardFailure(ctx, requestID, buyerID, err)
	}
	return nil
}

// explainGuardFailure turns a zero-rows guarded update into the precise
// domain error: missing row, foreign row, or a request that already left
// pending.
func (s *Service) explainGuardFailure(ctx context.Context, requestID, buyerID string, guardErr error) error {
	if guardErr != models.ErrConflict {
		return guardErr
	}
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.BuyerID != buyerID {
		return models.ErrForbidden
	}
	return models.ErrConflict
}
