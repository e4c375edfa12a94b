package models

import (
	"time"

	"errand-market/pkg/geo"
)

// Payment methods accepted on a request.
const (
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentOnline         = "online"
)

// LineItem is one entry of a request's shopping list. The list is persisted
// as a JSON document in the item_list column.
type LineItem struct {
	Name     string  `json:"name" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Unit     string  `json:"unit,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Request is a buyer's ask: a list of items to be purchased and delivered.
type Request struct {
	ID               string     `json:"request_id"`
	BuyerID          string     `json:"buyer_id"`
	BuyerName        string     `json:"buyer_name,omitempty"`
	Items            []LineItem `json:"item_list"`
	DeliveryAddress  string     `json:"delivery_address"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	Tip              float64    `json:"tip"`
	EstimatedPrice   *float64   `json:"estimated_price,omitempty"`
	PaymentMethod    string     `json:"payment_method"`
	PurchaseLocation *string    `json:"product_purchase_location,omitempty"`
	CategoryID       *string    `json:"category_id,omitempty"`
	Status           string     `json:"status"`
	// HelperID is the deprecated denormalized column predating the Matches
	// table. Read for legacy rows only, never written.
	HelperID  *string   `json:"helper_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Location implements geo.Locatable. Requests the buyer did not geotag
// return nil and cannot be proximity-ranked.
func (r *Request) Location() *geo.Point {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &geo.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// ResolvedHelper returns the helper bound to this request. The most recent
// Match row is the source of truth; the denormalized helper_id column is a
// fallback for rows created before the Matches table existed. Empty string
// means no helper is assigned.
func (r *Request) ResolvedHelper(latest *Match) string {
	if latest != nil {
		return latest.HelperID
	}
	if r.HelperID != nil {
		return *r.HelperID
	}
	return ""
}

// CreateRequestRequest is the payload for posting a new request.
type CreateRequestRequest struct {
	Items            []LineItem `json:"item_list" validate:"required,min=1,dive"`
	DeliveryAddress  string     `json:"delivery_address" validate:"required"`
	Latitude         *float64   `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude        *float64   `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Tip              float64    `json:"tip" validate:"gte=0"`
	EstimatedPrice   *float64   `json:"estimated_price,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod    string     `json:"payment_method" validate:"required,oneof=cash_on_delivery online"`
	PurchaseLocation *string    `json:"product_purchase_location,omitempty"`
	CategoryID       *string    `json:"category_id,omitempty"`
}

// UpdateRequestRequest is the payload for editing a still-pending request.
// Only the fields the buyer can change from the request form are present.
type UpdateRequestRequest struct {
	Items           []LineItem `json:"item_list" validate:"required,min=1,dive"`
	DeliveryAddress string     `json:"delivery_address" validate:"required"`
	Tip             float64    `json:"tip" validate:"gte=0"`
}
