package models

// Request lifecycle states. Stored lowercase to stay compatible with
// historical rows.
const (
	StatusPending         = "pending"
	StatusOnProgress      = "on_progress"
	StatusReceiptUploaded = "receipt_uploaded"
	StatusCompleted       = "completed"
	StatusCancelled       = "cancelled"
)

// transitions enumerates every legal status move. The only backward edge is
// the explicit helper reject (on_progress -> pending). Cancellation is
// reachable from pending only.
var transitions = map[string][]string{
	StatusPending:         {StatusOnProgress, StatusCancelled},
	StatusOnProgress:      {StatusReceiptUploaded, StatusPending},
	StatusReceiptUploaded: {StatusCompleted},
	StatusCompleted:       {},
	StatusCancelled:       {},
}

// ValidStatus reports whether s is one of the defined lifecycle states.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving a request from one status to another
// is legal. Unknown states never transition.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
