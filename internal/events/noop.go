package events

import (
	"context"
	"log/slog"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

// NoopEventBus logs events without sending them to a broker. Useful for local dev.
type NoopEventBus struct {
	logger *slog.Logger
}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishItemAdded(ctx context.Context, book domain.Book) error {
	n.logger.DebugContext(ctx, "event::"+RoutingKeyItemAdded, "book_id", book.ID, "title", book.Title)
	return nil
}

func (n *NoopEventBus) PublishItemRolledBack(ctx context.Context, bookID int64) error {
	n.logger.DebugContext(ctx, "event::"+RoutingKeyItemRolledBack, "book_id", bookID)
	return nil
}

func (n *NoopEventBus) PublishOrderSubmitted(ctx context.Context, order domain.SubmittedOrder) error {
	n.logger.DebugContext(ctx, "event::"+RoutingKeyOrderSubmitted, "cart_id", order.CartID, "line_items", len(order.Items))
	return nil
}
