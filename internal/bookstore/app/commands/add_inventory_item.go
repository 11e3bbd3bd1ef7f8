package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/inventory"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"go.opentelemetry.io/otel/attribute"
)

type AddInventoryItemCommand struct {
	Book domain.Book
}

func (c AddInventoryItemCommand) Name() string { return "AddInventoryItemCommand" }

func (c AddInventoryItemCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("book.id", c.Book.ID),
		attribute.String("book.title", c.Book.Title),
	}
}

func (c AddInventoryItemCommand) Validate() error {
	if err := c.Book.Validate(); err != nil {
		return fmt.Errorf("%w: book %d: %w", ports.ErrInvalidArgument, c.Book.ID, err)
	}
	return nil
}

// AddInventoryItemCommandHandler registers new catalog items. Calls are serialized so the
// existence check and the write happen atomically.
type AddInventoryItemCommandHandler struct {
	mu      sync.Mutex
	catalog ports.Catalog
	pending *inventory.PendingRegistry
	events  ports.EventBus
	logger  *slog.Logger
	now     func() time.Time
}

func NewAddInventoryItemCommandHandler(
	catalog ports.Catalog,
	pending *inventory.PendingRegistry,
	events ports.EventBus,
	logger *slog.Logger,
	now func() time.Time,
) *AddInventoryItemCommandHandler {
	return &AddInventoryItemCommandHandler{
		catalog: catalog,
		pending: pending,
		events:  events,
		logger:  logger,
		now:     now,
	}
}

func (h *AddInventoryItemCommandHandler) Handle(ctx context.Context, cmd AddInventoryItemCommand) (*domain.Book, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	book := cmd.Book

	existing, err := h.catalog.GetByID(ctx, book.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: book %d already exists with title %q", ports.ErrConflict, book.ID, existing.Title)
	case !errors.Is(err, ports.ErrNotFound):
		return nil, fmt.Errorf("check book %d: %w", book.ID, err)
	}

	h.pending.Register(book.ID, h.now())

	if err := h.catalog.Add(ctx, book); err != nil {
		h.pending.Discard(book.ID)
		return nil, fmt.Errorf("add book %d: %w", book.ID, err)
	}

	if err := h.events.PublishItemAdded(ctx, book); err != nil {
		h.logger.WarnContext(ctx, "failed to publish item added event",
			"book_id", book.ID,
			"error", err,
		)
	}

	return &book, nil
}
