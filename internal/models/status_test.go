package models

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusOnProgress, StatusReceiptUploaded, StatusCompleted, StatusCancelled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false; want true", s)
		}
	}
	for _, s := range []string{"", "Pending", "done", "in_progress"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true; want false", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPending, StatusOnProgress},
		{StatusPending, StatusCancelled},
		{StatusOnProgress, StatusReceiptUploaded},
		{StatusOnProgress, StatusPending}, // helper reject, the only backward edge
		{StatusReceiptUploaded, StatusCompleted},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("CanTransition(%s, %s) = false; want true", tt.from, tt.to)
		}
	}

	forbidden := []struct{ from, to string }{
		{StatusPending, StatusReceiptUploaded},
		{StatusPending, StatusCompleted},
		{StatusOnProgress, StatusCancelled},
		{StatusOnProgress, StatusCompleted},
		{StatusReceiptUploaded, StatusPending},
		{StatusReceiptUploaded, StatusCancelled},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusOnProgress},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusOnProgress},
		{"unknown", StatusPending},
		{StatusPending, "unknown"},
	}
	for _, tt := range forbidden {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("CanTransition(%s, %s) = true; want false", tt.from, tt.to)
		}
	}
}

func TestResolvedHelper(t *testing.T) {
	legacy := "helper-legacy"
	req := &Request{ID: "r1", HelperID: &legacy}

	// The match table wins over the denormalized column.
	m := &Match{RequestID: "r1", HelperID: "helper-new"}
	if got := req.ResolvedHelper(m); got != "helper-new" {
		t.Errorf("ResolvedHelper with match = %s; want helper-new", got)
	}
	if got := req.ResolvedHelper(nil); got != "helper-legacy" {
		t.Errorf("ResolvedHelper legacy fallback = %s; want helper-legacy", got)
	}

	bare := &Request{ID: "r2"}
	if got := bare.ResolvedHelper(nil); got != "" {
		t.Errorf("ResolvedHelper unmatched = %q; want empty", got)
	}
}
