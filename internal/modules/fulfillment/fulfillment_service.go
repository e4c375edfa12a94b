package fulfillment

import (
	"context"
	"fmt"
	"time"

	"errand-market/internal/models"
)

// UploaderInterface stores a binary object and returns its URL.
type UploaderInterface interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

// ServiceInterface defines the contract for the fulfillment workflow.
type ServiceInterface interface {
	MarkReceiptUploaded(ctx context.Context, requestID, helperID string, finalPrice float64, image []byte, contentType string) (*models.Payment, error)
	MarkCompleted(ctx context.Context, requestID, actorID string) error
	GetPayment(ctx context.Context, requestID, viewerID string) (*models.Payment, error)
}

// Service drives the post-match stages: in progress -> receipt uploaded ->
// completed.
type Service struct {
	repo          RepositoryInterface
	uploader      UploaderInterface
	receiptBucket string
	now           func() time.Time
}

// NewService creates a new fulfillment service.
func NewService(repo RepositoryInterface, uploader UploaderInterface, receiptBucket string) *Service {
	return &Service{repo: repo, uploader: uploader, receiptBucket: receiptBucket, now: time.Now}
}

// extensionFor maps the receipt content type onto an object-key suffix.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// MarkReceiptUploaded records the helper's purchase: the receipt image goes
// to object storage first (a failed upload leaves no trace in the store),
// then the payment row and the status advance commit as one unit.
func (s *Service) MarkReceiptUploaded(ctx context.Context, requestID, helperID string, finalPrice float64, image []byte, contentType string) (*models.Payment, error) {
	if finalPrice <= 0 || len(image) == 0 {
		return nil, models.ErrValidationFailed
	}

	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	helper, err := s.matchedHelper(ctx, req)
	if err != nil {
		return nil, err
	}
	if helper != helperID {
		return nil, models.ErrForbidden
	}
	if !models.CanTransition(req.Status, models.StatusReceiptUploaded) {
		return nil, models.ErrConflict
	}

	key := fmt.Sprintf("%s_%d.%s", requestID, s.now().UnixMilli(), extensionFor(contentType))
	receiptURL, err := s.uploader.Upload(ctx, s.receiptBucket, key, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("service.MarkReceiptUploaded: upload: %w", err)
	}

	payment := &models.Payment{
		RequestID:   requestID,
		HelperID:    helperID,
		FinalPrice:  finalPrice,
		AmountTotal: finalPrice + req.Tip,
		ReceiptURL:  receiptURL,
	}
	if err := s.repo.CreatePaymentAndAdvance(ctx, payment); err != nil {
		if err == models.ErrConflict {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("service.MarkReceiptUploaded: %w", err)
	}
	return payment, nil
}

// MarkCompleted closes the request. Both participants may confirm: the buyer
// after reviewing the receipt, or the helper on handover.
func (s *Service) MarkCompleted(ctx context.Context, requestID, actorID string) error {
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return err
	}
	helper, err := s.matchedHelper(ctx, req)
	if err != nil {
		return err
	}
	if actorID != req.BuyerID && actorID != helper {
		return models.ErrForbidden
	}

	advanced, err := s.repo.AdvanceToCompleted(ctx, requestID)
	if err != nil {
		return fmt.Errorf("service.MarkCompleted: %w", err)
	}
	if !advanced {
		return models.ErrConflict
	}
	return nil
}

// GetPayment returns the current payment record to either participant.
func (s *Service) GetPayment(ctx context.Context, requestID, viewerID string) (*models.Payment, error) {
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	helper, err := s.matchedHelper(ctx, req)
	if err != nil {
		return nil, err
	}
	if viewerID != req.BuyerID && viewerID != helper {
		return nil, models.ErrForbidden
	}
	return s.repo.CurrentPayment(ctx, requestID)
}

// matchedHelper resolves the active helper, match table first with the
// legacy denormalized column as fallback.
func (s *Service) matchedHelper(ctx context.Context, req *models.Request) (string, error) {
	latest, err := s.repo.LatestMatch(ctx, req.ID)
	if err != nil && err != models.ErrNotFound {
		return "", fmt.Errorf("service.matchedHelper: %w", err)
	}
	return req.ResolvedHelper(latest), nil
}
