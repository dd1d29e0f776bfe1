package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses
const (
	OrderStatusPending       = "pending"
	OrderStatusPaid          = "paid"
	OrderStatusCancelled     = "cancelled"
	OrderStatusCompleted     = "completed"
	OrderStatusWaitingPickup = "waiting_pickup"
)

// Payment statuses
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPaid    = "paid"
	PaymentStatusExpired = "expired"
	PaymentStatusRefund  = "refund"
)

// Order is a buyer's purchase from a single listing
type Order struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	UserID        uuid.UUID    `json:"user_id" db:"user_id"`
	ListingID     uuid.UUID    `json:"umkm_id" db:"listing_id"`
	TotalPrice    float64      `json:"total_harga" db:"total_price"`
	Status        string       `json:"status_order" db:"status"`
	PaymentStatus string       `json:"payment_status" db:"payment_status"`
	Items         []*OrderItem `json:"items" db:"-"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// OrderItem is one product line of an order. UnitPrice is the product price
// at the time the order was placed.
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"jumlah" db:"quantity"`
	UnitPrice float64   `json:"harga_saat_pemesanan" db:"unit_price"`
}

// orderTransitions lists the statuses an order may move to from each status
var orderTransitions = map[string][]string{
	OrderStatusPending:       {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:          {OrderStatusWaitingPickup, OrderStatusCancelled},
	OrderStatusWaitingPickup: {OrderStatusCompleted},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
