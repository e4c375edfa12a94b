package discovery

import (
	"context"
	"log"
	"time"

	"errand-market/pkg/geo"
)

// Poller periodically re-runs a discovery query and delivers fresh
// snapshots. Screens outside chat refresh by polling rather than push.
type Poller struct {
	svc      ServiceInterface
	viewerID string
	refPoint *geo.Point
	mode     string
	interval time.Duration
	// maxRetries bounds consecutive transient failures before a cycle is
	// abandoned until the next tick.
	maxRetries int

	snapshots chan []OpenRequest
}

// NewPoller creates a poller for one viewer's discovery query.
func NewPoller(svc ServiceInterface, viewerID string, refPoint *geo.Point, mode string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		svc:        svc,
		viewerID:   viewerID,
		refPoint:   refPoint,
		mode:       mode,
		interval:   interval,
		maxRetries: 3,
		snapshots:  make(chan []OpenRequest, 1),
	}
}

// Snapshots delivers each successful re-fetch. The channel is closed when
// Run returns. Only the latest snapshot is retained if the consumer lags.
func (p *Poller) Snapshots() <-chan []OpenRequest {
	return p.snapshots
}

// Run polls until ctx is cancelled. The first fetch happens immediately.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.snapshots)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

// fetch retries transient failures a bounded number of times with doubling
// backoff, then gives up until the next tick.
func (p *Poller) fetch(ctx context.Context) {
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		open, err := p.svc.ListOpenRequests(ctx, p.viewerID, p.refPoint, p.mode)
		if err == nil {
			// Drop the stale snapshot if the consumer has not drained it.
			select {
			case <-p.snapshots:
			default:
			}
			select {
			case p.snapshots <- open:
			case <-ctx.Done():
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("discovery.Poller: fetch attempt %d failed: %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
