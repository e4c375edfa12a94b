package models

import "time"

// Match records that one helper has claimed one request. Rows are append
// only: a reject leaves the match in place as an audit artifact and later
// accepts add new rows, so the newest accepted_at wins.
type Match struct {
	RequestID  string    `json:"request_id"`
	HelperID   string    `json:"helper_id"`
	BuyerID    string    `json:"buyer_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Assignment is a helper-facing view of a claimed request.
type Assignment struct {
	Match   Match   `json:"match"`
	Request Request `json:"request"`
}

// Payment is the fulfillment-side financial record created when the helper
// uploads a receipt. AmountTotal is always FinalPrice plus the request tip.
// Settlement happens outside this system; Status stays "pending" here.
type Payment struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	HelperID    string    `json:"helper_id"`
	FinalPrice  float64   `json:"final_price"`
	AmountTotal float64   `json:"amount_total"`
	ReceiptURL  string    `json:"receipt_url"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
