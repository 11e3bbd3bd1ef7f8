package domain

import "time"

// CartID identifies a cart. Carts are created on first write.
type CartID int64

// LineItem is a single order for a book inside a cart. Only Quantity changes after creation.
type LineItem struct {
	Book      Book      `json:"book"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemID returns the catalog id of the ordered book.
func (l LineItem) ItemID() int64 {
	return l.Book.ID
}

// Age reports how long ago the line item was created relative to now.
func (l LineItem) Age(now time.Time) time.Duration {
	return now.Sub(l.CreatedAt)
}

// Cart is a read-only snapshot of a cart's line items in insertion order.
type Cart struct {
	ID    CartID     `json:"id"`
	Items []LineItem `json:"items"`
}

// IsEmpty reports whether the cart holds no line items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// DisplayOrder is returned to callers after adding or updating a cart.
type DisplayOrder struct {
	CartID CartID     `json:"cart_id"`
	Items  []LineItem `json:"items"`
}

// SubmittedOrder is the result of submitting a cart.
type SubmittedOrder struct {
	CartID      CartID     `json:"cart_id"`
	Items       []LineItem `json:"items"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// MaintenanceReport summarizes a single expiry sweep.
type MaintenanceReport struct {
	StartedAt         time.Time `json:"started_at"`
	EvictedLineItems  int       `json:"evicted_line_items"`
	RemovedCarts      int       `json:"removed_carts"`
	ExpiredAdditions  int       `json:"expired_additions"`
	FailedRollbacks   int       `json:"failed_rollbacks"`
	RolledBackBookIDs []int64   `json:"rolled_back_book_ids,omitempty"`
}
