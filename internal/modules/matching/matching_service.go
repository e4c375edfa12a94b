package matching

import (
	"context"
	"fmt"
	"log"
	"time"

	"errand-market/internal/models"
)

// NotifierInterface delivers best-effort notifications to users. A nil
// notifier disables them.
type NotifierInterface interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ServiceInterface defines the contract for the matching engine.
type ServiceInterface interface {
	Accept(ctx context.Context, requestID, helperID string) (*models.Match, error)
	Reject(ctx context.Context, requestID, helperID string) error
	ListAssignments(ctx context.Context, helperID string) ([]*models.Assignment, error)
}

// Service owns the accept/claim protocol. Correctness under concurrent
// accepts rests entirely on the store's guarded conditional update; the
// service holds no state of its own.
type Service struct {
	repo     RepositoryInterface
	notifier NotifierInterface
	now      func() time.Time
}

// NewService creates a new matching service. notifier may be nil.
func NewService(repo RepositoryInterface, notifier NotifierInterface) *Service {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// Accept claims a pending request for a helper. Two helpers racing on the
// same request get exactly one winner: whichever guarded update the store
// commits first. The loser gets ErrAlreadyClaimed, never a stale success.
func (s *Service) Accept(ctx context.Context, requestID, helperID string) (*models.Match, error) {
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err // ErrNotFound or a store failure
	}
	if req.BuyerID == helperID {
		return nil, models.ErrForbidden // self-acceptance, regardless of status
	}

	claimed, err := s.repo.ClaimRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("service.Accept: %w", err)
	}
	if !claimed {
		// The row exists (fetched above) but was no longer pending at
		// commit time: a concurrent caller won, or the request already
		// moved further along its lifecycle.
		return nil, models.ErrAlreadyClaimed
	}

	match := &models.Match{
		RequestID:  requestID,
		HelperID:   helperID,
		BuyerID:    req.BuyerID,
		AcceptedAt: s.now().UTC(),
	}
	if err := s.repo.InsertMatch(ctx, match); err != nil {
		// The status flip already committed. Compensate by releasing the
		// claim; only when that fails too is the row left inconsistent.
		released, rbErr := s.repo.ReleaseRequest(ctx, requestID)
		if rbErr != nil || !released {
			log.Printf("CRITICAL: request %s claimed but match insert and rollback both failed: insert=%v rollback=%v", requestID, err, rbErr)
			return nil, models.ErrPartialCommit
		}
		return nil, fmt.Errorf("service.Accept: insert match: %w", err)
	}

	s.notifyAccepted(ctx, req)
	return match, nil
}

// notifyAccepted emails the buyer that a helper took the request. Failures
// are logged, never surfaced; the claim already committed.
func (s *Service) notifyAccepted(ctx context.Context, req *models.Request) {
	if s.notifier == nil {
		return
	}
	email, name, err := s.repo.BuyerContact(ctx, req.BuyerID)
	if err != nil {
		log.Printf("service.Accept: buyer contact lookup failed for %s: %v", req.BuyerID, err)
		return
	}
	body := fmt.Sprintf("Hi %s, a helper accepted your request and is on it. Open the app to chat.", name)
	if err := s.notifier.Send(ctx, email, "Your request was accepted", body); err != nil {
		log.Printf("service.Accept: notification to %s failed: %v", email, err)
	}
}

// Reject lets the matched helper back out, returning the request to the
// open pool. The match row stays behind as an audit artifact, so the same
// helper may accept again later.
func (s *Service) Reject(ctx context.Context, requestID, helperID string) error {
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return err
	}

	latest, err := s.repo.LatestMatch(ctx, requestID)
	if err != nil && err != models.ErrNotFound {
		return fmt.Errorf("service.Reject: %w", err)
	}
	if req.ResolvedHelper(latest) != helperID {
		return models.ErrForbidden
	}

	released, err := s.repo.ReleaseRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("service.Reject: %w", err)
	}
	if !released {
		// Not on_progress anymore; the fulfillment already advanced.
		return models.ErrConflict
	}
	return nil
}

// ListAssignments returns the helper's current workload plus history.
func (s *Service) ListAssignments(ctx context.Context, helperID string) ([]*models.Assignment, error) {
	assignments, err := s.repo.ListAssignments(ctx, helperID)
	if err != nil {
		return nil, fmt.Errorf("service.ListAssignments: %w", err)
	}
	return assignments, nil
}
