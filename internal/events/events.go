package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

// Routing keys published on the topic exchange.
const (
	RoutingKeyItemAdded      = "catalog.book.added"
	RoutingKeyItemRolledBack = "catalog.book.rolled_back"
	RoutingKeyOrderSubmitted = "cart.order.submitted"
)

type ItemAdded struct {
	BookID     int64           `json:"book_id"`
	Title      string          `json:"title"`
	Author     string          `json:"author,omitempty"`
	Price      decimal.Decimal `json:"price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type ItemRolledBack struct {
	BookID     int64     `json:"book_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type OrderLine struct {
	BookID   int64           `json:"book_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderSubmitted struct {
	CartID      int64       `json:"cart_id"`
	Lines       []OrderLine `json:"lines"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

func newItemAdded(book domain.Book, now time.Time) ItemAdded {
	return ItemAdded{
		BookID:     book.ID,
		Title:      book.Title,
		Author:     book.Author,
		Price:      book.Price,
		OccurredAt: now,
	}
}

func newOrderSubmitted(order domain.SubmittedOrder) OrderSubmitted {
	lines := make([]OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderLine{
			BookID:   item.ItemID(),
			Quantity: item.Quantity,
			Price:    item.Book.Price,
		})
	}
	return OrderSubmitted{
		CartID:      int64(order.CartID),
		Lines:       lines,
		SubmittedAt: order.SubmittedAt,
	}
}
