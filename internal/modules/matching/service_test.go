package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"errand-market/internal/models"
)

// fakeRepo simulates the store, including the guarded conditional updates.
// ClaimRequest and ReleaseRequest flip the status under a mutex so concurrent
// accept tests exercise the single-winner guarantee.
type fakeRepo struct {
	mu       sync.Mutex
	requests map[string]*models.Request
	matches  []*models.Match
	contacts map[string][2]string

	failInsertMatch error
	failRelease     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests: make(map[string]*models.Request),
		contacts: make(map[string][2]string),
	}
}

func (f *fakeRepo) FindRequest(ctx context.Context, requestID string) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRepo) ClaimRequest(ctx context.Context, requestID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.Status != models.StatusPending {
		return false, nil
	}
	req.Status = models.StatusOnProgress
	return true, nil
}

func (f *fakeRepo) ReleaseRequest(ctx context.Context, requestID string) (bool, error) {
	if f.failRelease != nil {
		return false, f.failRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.Status != models.StatusOnProgress {
		return false, nil
	}
	req.Status = models.StatusPending
	return true, nil
}

func (f *fakeRepo) InsertMatch(ctx context.Context, m *models.Match) error {
	if f.failInsertMatch != nil {
		return f.failInsertMatch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.matches = append(f.matches, &cp)
	return nil
}

func (f *fakeRepo) LatestMatch(ctx context.Context, requestID string) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Match
	for _, m := range f.matches {
		if m.RequestID != requestID {
			continue
		}
		if latest == nil || m.AcceptedAt.After(latest.AcceptedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeRepo) ListAssignments(ctx context.Context, helperID string) ([]*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Assignment
	for _, m := range f.matches {
		if m.HelperID != helperID {
			continue
		}
		req := f.requests[m.RequestID]
		out = append(out, &models.Assignment{Match: *m, Request: *req})
	}
	return out, nil
}

func (f *fakeRepo) BuyerContact(ctx context.Context, userID string) (string, string, error) {
	c, ok := f.contacts[userID]
	if !ok {
		return "", "", models.ErrNotFound
	}
	return c[0], c[1], nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

func pendingRequest(id, buyerID string) *models.Request {
	return &models.Request{
		ID:      id,
		BuyerID: buyerID,
		Status:  models.StatusPending,
	}
}

func TestAcceptClaimsPendingRequest(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	fr.contacts["buyer-1"] = [2]string{"buyer@example.com", "Ada"}
	notifier := &fakeNotifier{}
	svc := NewService(fr, notifier)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	match, err := svc.Accept(context.Background(), "r1", "helper-1")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if match.HelperID != "helper-1" || match.BuyerID != "buyer-1" {
		t.Errorf("match = %+v; want helper-1 / buyer-1", match)
	}
	if got := fr.requests["r1"].Status; got != models.StatusOnProgress {
		t.Errorf("request status = %s; want %s", got, models.StatusOnProgress)
	}
	if len(fr.matches) != 1 {
		t.Fatalf("fakeRepo.matches length = %d; want 1", len(fr.matches))
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "buyer@example.com" {
		t.Errorf("notifier.sent = %v; want [buyer@example.com]", notifier.sent)
	}
}

func TestAcceptConcurrentSingleWinner(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	svc := NewService(fr, nil)

	const helpers = 8
	results := make(chan error, helpers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < helpers; i++ {
		go func(n int) {
			start.Wait()
			_, err := svc.Accept(context.Background(), "r1", string(rune('a'+n)))
			results <- err
		}(i)
	}
	start.Done()

	var wins, losses int
	for i := 0; i < helpers; i++ {
		switch err := <-results; {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrAlreadyClaimed):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d; want exactly 1", wins)
	}
	if losses != helpers-1 {
		t.Errorf("losers = %d; want %d", losses, helpers-1)
	}
	if len(fr.matches) != 1 {
		t.Errorf("fakeRepo.matches length = %d; want 1", len(fr.matches))
	}
}

func TestAcceptOwnRequestForbidden(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	svc := NewService(fr, nil)

	// Self-acceptance is rejected before the claim attempt, for any status.
	for _, status := range []string{models.StatusPending, models.StatusOnProgress, models.StatusCompleted} {
		fr.requests["r1"].Status = status
		if _, err := svc.Accept(context.Background(), "r1", "buyer-1"); !errors.Is(err, models.ErrForbidden) {
			t.Errorf("Accept own request (status %s) = %v; want ErrForbidden", status, err)
		}
	}
	if len(fr.matches) != 0 {
		t.Errorf("fakeRepo.matches length = %d; want 0", len(fr.matches))
	}
}

func TestAcceptMissingRequest(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	if _, err := svc.Accept(context.Background(), "nope", "helper-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Accept missing request = %v; want ErrNotFound", err)
	}
}

func TestAcceptNonPendingRequest(t *testing.T) {
	fr := newFakeRepo()
	req := pendingRequest("r1", "buyer-1")
	req.Status = models.StatusCompleted
	fr.requests["r1"] = req
	svc := NewService(fr, nil)

	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Errorf("Accept completed request = %v; want ErrAlreadyClaimed", err)
	}
}

func TestAcceptInsertFailureReleasesClaim(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	fr.failInsertMatch = errors.New("store down")
	svc := NewService(fr, nil)

	_, err := svc.Accept(context.Background(), "r1", "helper-1")
	if err == nil || errors.Is(err, models.ErrPartialCommit) {
		t.Fatalf("Accept = %v; want plain insert failure", err)
	}
	// The compensation put the request back in the open pool.
	if got := fr.requests["r1"].Status; got != models.StatusPending {
		t.Errorf("request status after rollback = %s; want %s", got, models.StatusPending)
	}
}

func TestAcceptInsertAndRollbackFailure(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	fr.failInsertMatch = errors.New("store down")
	fr.failRelease = errors.New("still down")
	svc := NewService(fr, nil)

	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); !errors.Is(err, models.ErrPartialCommit) {
		t.Errorf("Accept = %v; want ErrPartialCommit", err)
	}
}

func TestRejectReleasesRequest(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	svc := NewService(fr, nil)

	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if err := svc.Reject(context.Background(), "r1", "helper-1"); err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if got := fr.requests["r1"].Status; got != models.StatusPending {
		t.Errorf("request status = %s; want %s", got, models.StatusPending)
	}
	// The match row is kept for history; the same helper may accept again.
	if len(fr.matches) != 1 {
		t.Errorf("fakeRepo.matches length = %d; want 1", len(fr.matches))
	}
	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); err != nil {
		t.Errorf("re-Accept after Reject error: %v", err)
	}
}

func TestRejectByWrongHelper(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	svc := NewService(fr, nil)

	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if err := svc.Reject(context.Background(), "r1", "helper-2"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("Reject by stranger = %v; want ErrForbidden", err)
	}
	if got := fr.requests["r1"].Status; got != models.StatusOnProgress {
		t.Errorf("request status = %s; want %s", got, models.StatusOnProgress)
	}
}

func TestRejectLegacyHelperColumn(t *testing.T) {
	fr := newFakeRepo()
	req := pendingRequest("r1", "buyer-1")
	req.Status = models.StatusOnProgress
	legacy := "helper-old"
	req.HelperID = &legacy
	fr.requests["r1"] = req
	svc := NewService(fr, nil)

	// No match row exists; the helper column on the request decides.
	if err := svc.Reject(context.Background(), "r1", "helper-old"); err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if got := fr.requests["r1"].Status; got != models.StatusPending {
		t.Errorf("request status = %s; want %s", got, models.StatusPending)
	}
}

func TestRejectAfterFulfillmentAdvanced(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	svc := NewService(fr, nil)

	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	fr.requests["r1"].Status = models.StatusReceiptUploaded

	if err := svc.Reject(context.Background(), "r1", "helper-1"); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Reject after receipt = %v; want ErrConflict", err)
	}
}

func TestListAssignments(t *testing.T) {
	fr := newFakeRepo()
	fr.requests["r1"] = pendingRequest("r1", "buyer-1")
	fr.requests["r2"] = pendingRequest("r2", "buyer-2")
	svc := NewService(fr, nil)

	if _, err := svc.Accept(context.Background(), "r1", "helper-1"); err != nil {
		t.Fatalf("Accept r1 error: %v", err)
	}
	if _, err := svc.Accept(context.Background(), "r2", "helper-2"); err != nil {
		t.Fatalf("Accept r2 error: %v", err)
	}

	got, err := svc.ListAssignments(context.Background(), "helper-1")
	if err != nil {
		t.Fatalf("ListAssignments error: %v", err)
	}
	if len(got) != 1 || got[0].Request.ID != "r1" {
		t.Errorf("ListAssignments = %+v; want only r1", got)
	}
}
