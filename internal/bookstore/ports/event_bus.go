package ports

import (
	"context"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

// EventBus defines the contract for publishing catalog and cart events.
type EventBus interface {
	PublishItemAdded(ctx context.Context, book domain.Book) error
	PublishItemRolledBack(ctx context.Context, bookID int64) error
	PublishOrderSubmitted(ctx context.Context, order domain.SubmittedOrder) error
}
