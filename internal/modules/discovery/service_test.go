package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"errand-market/internal/models"
	"errand-market/pkg/geo"
)

type fakeLister struct {
	requests []*models.Request
	err      error
	calls    int
}

func (f *fakeLister) ListOpen(ctx context.Context, excludeBuyerID string) ([]*models.Request, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Request
	for _, r := range f.requests {
		if r.BuyerID == excludeBuyerID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

type fakeHomes struct {
	homes map[string]*geo.Point
}

func (f *fakeHomes) HomeLocation(ctx context.Context, userID string) (*geo.Point, error) {
	if f.homes == nil {
		return nil, models.ErrNotFound
	}
	return f.homes[userID], nil
}

func openRequest(id, buyerID string, lat, lon float64) *models.Request {
	return &models.Request{
		ID:        id,
		BuyerID:   buyerID,
		Status:    models.StatusPending,
		Latitude:  &lat,
		Longitude: &lon,
	}
}

func TestListOpenRequestsExcludesOwn(t *testing.T) {
	fl := &fakeLister{requests: []*models.Request{
		openRequest("r1", "viewer", 0, 0),
		openRequest("r2", "other", 0, 0),
	}}
	svc := NewService(fl, &fakeHomes{})

	got, err := svc.ListOpenRequests(context.Background(), "viewer", nil, ModeLatest)
	if err != nil {
		t.Fatalf("ListOpenRequests error: %v", err)
	}
	if len(got) != 1 || got[0].Request.ID != "r2" {
		t.Errorf("got %d entries; want only r2", len(got))
	}
}

func TestListOpenRequestsNearMeRanking(t *testing.T) {
	// Viewer at the origin; r-far ~10 km east, r-near ~3 km east, r-unlocated
	// has no coordinate.
	unlocated := &models.Request{ID: "r-unlocated", BuyerID: "b3", Status: models.StatusPending}
	fl := &fakeLister{requests: []*models.Request{
		openRequest("r-far", "b1", 0, 0.09),
		unlocated,
		openRequest("r-near", "b2", 0, 0.027),
	}}
	svc := NewService(fl, &fakeHomes{})
	ref := &geo.Point{Latitude: 0, Longitude: 0}

	got, err := svc.ListOpenRequests(context.Background(), "viewer", ref, ModeNearMe)
	if err != nil {
		t.Fatalf("ListOpenRequests error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d; want 3", len(got))
	}
	if got[0].Request.ID != "r-near" || got[1].Request.ID != "r-far" {
		t.Errorf("ranked order = [%s %s]; want [r-near r-far]", got[0].Request.ID, got[1].Request.ID)
	}
	if got[0].DistanceKm == nil || got[1].DistanceKm == nil {
		t.Fatal("ranked entries missing distances")
	}
	if *got[0].DistanceKm >= *got[1].DistanceKm {
		t.Errorf("distances not ascending: %.2f then %.2f", *got[0].DistanceKm, *got[1].DistanceKm)
	}
	// The unlocated request trails the ranked ones with no distance.
	if got[2].Request.ID != "r-unlocated" || got[2].DistanceKm != nil {
		t.Errorf("trailing entry = %+v; want unlocated r-unlocated", got[2])
	}
}

func TestListOpenRequestsNearHome(t *testing.T) {
	fl := &fakeLister{requests: []*models.Request{
		openRequest("r-far", "b1", 0, 0.09),
		openRequest("r-near", "b2", 0, 0.027),
	}}
	fh := &fakeHomes{homes: map[string]*geo.Point{
		"viewer": {Latitude: 0, Longitude: 0},
	}}
	svc := NewService(fl, fh)

	got, err := svc.ListOpenRequests(context.Background(), "viewer", nil, ModeNearHome)
	if err != nil {
		t.Fatalf("ListOpenRequests error: %v", err)
	}
	if got[0].Request.ID != "r-near" {
		t.Errorf("first = %s; want r-near", got[0].Request.ID)
	}
}

func TestListOpenRequestsNearHomeWithoutStoredHome(t *testing.T) {
	fl := &fakeLister{requests: []*models.Request{
		openRequest("r1", "b1", 0, 0.09),
		openRequest("r2", "b2", 0, 0.027),
	}}
	fh := &fakeHomes{homes: map[string]*geo.Point{}} // viewer has no home set
	svc := NewService(fl, fh)

	// Falls back to unranked creation order instead of failing.
	got, err := svc.ListOpenRequests(context.Background(), "viewer", nil, ModeNearHome)
	if err != nil {
		t.Fatalf("ListOpenRequests error: %v", err)
	}
	if len(got) != 2 || got[0].Request.ID != "r1" {
		t.Errorf("fallback order = %+v; want input order", got)
	}
	if got[0].DistanceKm != nil {
		t.Error("fallback entries must carry no distance")
	}
}

func TestPollerDeliversSnapshotsUntilCancelled(t *testing.T) {
	fl := &fakeLister{requests: []*models.Request{
		openRequest("r1", "b1", 0, 0),
	}}
	svc := NewService(fl, &fakeHomes{})
	p := NewPoller(svc, "viewer", nil, ModeLatest, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// First snapshot arrives from the immediate fetch.
	select {
	case snap := <-p.Snapshots():
		if len(snap) != 1 || snap[0].Request.ID != "r1" {
			t.Errorf("snapshot = %+v; want [r1]", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot before timeout")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	// The snapshot channel closes with Run.
	for range p.Snapshots() {
	}
}

func TestPollerRetriesTransientFailures(t *testing.T) {
	fl := &fakeLister{err: errors.New("store down")}
	svc := NewService(fl, &fakeHomes{})
	p := NewPoller(svc, "viewer", nil, ModeLatest, time.Hour)
	p.maxRetries = 2

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Give the immediate fetch time to exhaust its retries.
		time.Sleep(1200 * time.Millisecond)
		cancel()
	}()
	p.Run(ctx)

	if fl.calls < 2 {
		t.Errorf("fetch attempts = %d; want at least 2", fl.calls)
	}
	select {
	case _, open := <-p.Snapshots():
		if open {
			t.Error("got a snapshot from a failing fetch")
		}
	default:
		t.Error("snapshot channel not closed after Run")
	}
}
