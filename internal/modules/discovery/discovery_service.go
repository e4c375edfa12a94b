package discovery

import (
	"context"
	"fmt"

	"errand-market/internal/models"
	"errand-market/pkg/geo"
)

// Discovery modes. NearMe ranks against the device location supplied by the
// client; NearHome ranks against the viewer's stored home coordinate.
const (
	ModeNearMe   = "near_me"
	ModeNearHome = "near_home"
	ModeLatest   = "latest"
)

// RequestListerInterface is the slice of the request store the discovery
// view reads from.
type RequestListerInterface interface {
	ListOpen(ctx context.Context, excludeBuyerID string) ([]*models.Request, error)
}

// HomeLocatorInterface resolves a viewer's stored home coordinate.
type HomeLocatorInterface interface {
	HomeLocation(ctx context.Context, userID string) (*geo.Point, error)
}

// OpenRequest is one entry of the helper's discovery list. DistanceKm is nil
// for requests without a coordinate (they are appended unranked, not
// dropped).
type OpenRequest struct {
	Request    *models.Request `json:"request"`
	DistanceKm *float64        `json:"distance_km,omitempty"`
}

// ServiceInterface defines the contract for the discovery view.
type ServiceInterface interface {
	ListOpenRequests(ctx context.Context, viewerID string, refPoint *geo.Point, mode string) ([]OpenRequest, error)
}

// Service composes the request store and the geospatial ranker into the
// helper's sorted, filtered list of open requests.
type Service struct {
	requests RequestListerInterface
	homes    HomeLocatorInterface
}

// NewService creates a new discovery service.
func NewService(requests RequestListerInterface, homes HomeLocatorInterface) *Service {
	return &Service{requests: requests, homes: homes}
}

// ListOpenRequests returns every pending request not authored by the viewer.
// With a reference point the located requests come first by ascending
// distance and unlocated ones follow in creation order; without one the list
// stays in creation-time descending order.
func (s *Service) ListOpenRequests(ctx context.Context, viewerID string, refPoint *geo.Point, mode string) ([]OpenRequest, error) {
	if mode == ModeNearHome {
		home, err := s.homes.HomeLocation(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("service.ListOpenRequests: home lookup: %w", err)
		}
		refPoint = home // nil when the viewer never stored a home coordinate
	}

	candidates, err := s.requests.ListOpen(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("service.ListOpenRequests: %w", err)
	}

	if refPoint == nil {
		out := make([]OpenRequest, 0, len(candidates))
		for _, r := range candidates {
			out = append(out, OpenRequest{Request: r})
		}
		return out, nil
	}

	ranked := geo.RankByDistance(*refPoint, candidates)
	out := make([]OpenRequest, 0, len(candidates))
	seen := make(map[int]bool, len(ranked))
	for _, entry := range ranked {
		d := entry.DistanceKm
		out = append(out, OpenRequest{Request: candidates[entry.Index], DistanceKm: &d})
		seen[entry.Index] = true
	}
	// Product policy: requests the buyer did not geotag stay visible at the
	// end instead of being dropped like the raw ranker does.
	for i, r := range candidates {
		if !seen[i] {
			out = append(out, OpenRequest{Request: r})
		}
	}
	return out, nil
}
