package chat

import (
	"context"
	"fmt"
	"strings"

	"errand-market/internal/models"
	"errand-market/internal/realtime"
)

// ServiceInterface defines the contract for the messaging channel.
type ServiceInterface interface {
	Send(ctx context.Context, requestID, senderID, body string) (*models.Message, error)
	Thread(ctx context.Context, requestID, viewerID string) ([]models.Message, string, error)
	MarkSeen(ctx context.Context, requestID, viewerID string) error
	ThreadInfo(ctx context.Context, requestID, viewerID string) (*models.ThreadInfo, error)
	Subscribe(ctx context.Context, requestID, viewerID string) (*realtime.Subscriber, error)
	Unsubscribe(sub *realtime.Subscriber)
}

// Service implements the per-request chat log with delivery and read-receipt
// semantics. Live fan-out goes through the realtime hub.
type Service struct {
	repo RepositoryInterface
	hub  *realtime.Hub
}

// NewService creates a new chat service.
func NewService(repo RepositoryInterface, hub *realtime.Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// participants returns buyer and resolved helper for a request.
func (s *Service) participants(ctx context.Context, requestID string) (req *models.Request, helper string, err error) {
	req, err = s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	latest, err := s.repo.LatestMatch(ctx, requestID)
	if err != nil && err != models.ErrNotFound {
		return nil, "", fmt.Errorf("service.participants: %w", err)
	}
	return req, req.ResolvedHelper(latest), nil
}

// requireParticipant rejects viewers that are neither the buyer nor the
// matched helper of the request.
func (s *Service) requireParticipant(ctx context.Context, requestID, viewerID string) (*models.Request, string, error) {
	req, helper, err := s.participants(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	if viewerID != req.BuyerID && viewerID != helper {
		return nil, "", models.ErrForbidden
	}
	return req, helper, nil
}

// Send appends a message and fans the insert event out to subscribers.
// Empty or whitespace-only bodies are rejected.
func (s *Service) Send(ctx context.Context, requestID, senderID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.ErrValidationFailed
	}
	if _, _, err := s.requireParticipant(ctx, requestID, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{RequestID: requestID, SenderID: senderID, Content: body}
	if err := s.repo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("service.Send: %w", err)
	}
	s.hub.Publish(realtime.Event{Type: realtime.EventInsert, Message: *msg})
	return msg, nil
}

// Thread returns the ordered log plus the id of the viewer's latest seen
// message (the one the "Seen" indicator attaches to).
func (s *Service) Thread(ctx context.Context, requestID, viewerID string) ([]models.Message, string, error) {
	if _, _, err := s.requireParticipant(ctx, requestID, viewerID); err != nil {
		return nil, "", err
	}
	messages, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, "", fmt.Errorf("service.Thread: %w", err)
	}
	return messages, LastSeenOwnMessage(messages, viewerID), nil
}

// MarkSeen flips every unseen peer message in one batched write and fans the
// resulting update events out. Idempotent: a second call finds nothing to
// flip and publishes nothing.
func (s *Service) MarkSeen(ctx context.Context, requestID, viewerID string) error {
	if _, _, err := s.requireParticipant(ctx, requestID, viewerID); err != nil {
		return err
	}
	updated, err := s.repo.MarkSeen(ctx, requestID, viewerID)
	if err != nil {
		return fmt.Errorf("service.MarkSeen: %w", err)
	}
	for _, m := range updated {
		s.hub.Publish(realtime.Event{Type: realtime.EventUpdate, Message: m})
	}
	return nil
}

// ThreadInfo describes the peer and the viewer's affordances. The call
// affordance is exposed only when the viewer resolves as the helper of the
// active match.
func (s *Service) ThreadInfo(ctx context.Context, requestID, viewerID string) (*models.ThreadInfo, error) {
	req, helper, err := s.requireParticipant(ctx, requestID, viewerID)
	if err != nil {
		return nil, err
	}

	info := &models.ThreadInfo{RequestID: requestID}
	info.IsHelper = viewerID == helper && helper != ""
	peerID := req.BuyerID
	if !info.IsHelper {
		peerID = helper
	}
	info.PeerID = peerID

	if peerID != "" {
		peer, err := s.repo.FindUser(ctx, peerID)
		if err != nil && err != models.ErrNotFound {
			return nil, fmt.Errorf("service.ThreadInfo: %w", err)
		}
		if peer != nil {
			info.PeerName = peer.Name
			info.PeerPhone = peer.Phone
			info.PeerPic = peer.ProfilePic
		}
	}
	info.CanCall = info.IsHelper && info.PeerPhone != nil
	return info, nil
}

// Subscribe attaches a live event stream for the request's message log.
func (s *Service) Subscribe(ctx context.Context, requestID, viewerID string) (*realtime.Subscriber, error) {
	if _, _, err := s.requireParticipant(ctx, requestID, viewerID); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(requestID), nil
}

// Unsubscribe detaches a live stream.
func (s *Service) Unsubscribe(sub *realtime.Subscriber) {
	s.hub.Unsubscribe(sub)
}
