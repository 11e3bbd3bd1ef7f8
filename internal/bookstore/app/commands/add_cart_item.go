package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/cart"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"go.opentelemetry.io/otel/attribute"
)

// AddCartItemCommand orders Quantity copies of a catalog item into a cart.
// A non-positive CartID selects the staging cart.
type AddCartItemCommand struct {
	CartID   domain.CartID
	ItemID   int64
	Quantity int
}

func (c AddCartItemCommand) Name() string { return "AddCartItemCommand" }

func (c AddCartItemCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("cart.id", int64(c.CartID)),
		attribute.Int64("book.id", c.ItemID),
		attribute.Int("quantity", c.Quantity),
	}
}

func (c AddCartItemCommand) Validate() error {
	if c.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d for item %d must not be negative", ports.ErrInvalidArgument, c.Quantity, c.ItemID)
	}
	return nil
}

func (c AddCartItemCommand) staging() bool {
	return c.CartID <= 0
}

type AddCartItemCommandHandler struct {
	store   *cart.Store
	catalog ports.Catalog
	now     func() time.Time
}

func NewAddCartItemCommandHandler(store *cart.Store, catalog ports.Catalog, now func() time.Time) *AddCartItemCommandHandler {
	return &AddCartItemCommandHandler{
		store:   store,
		catalog: catalog,
		now:     now,
	}
}

// Handle appends the item and returns the display snapshot. A staging append shows only the
// new line item; a named cart shows the whole cart.
func (h *AddCartItemCommandHandler) Handle(ctx context.Context, cmd AddCartItemCommand) (*domain.DisplayOrder, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	book, err := h.catalog.GetByID(ctx, cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("look up item %d: %w", cmd.ItemID, err)
	}

	item := domain.LineItem{
		Book:      *book,
		Quantity:  cmd.Quantity,
		CreatedAt: h.now(),
	}

	if cmd.staging() {
		h.store.AppendToStaging(item)
		return &domain.DisplayOrder{
			CartID: h.store.StagingCartID(),
			Items:  []domain.LineItem{item},
		}, nil
	}

	c := h.store.AppendToExisting(cmd.CartID, item)
	return &domain.DisplayOrder{CartID: c.ID, Items: c.Items}, nil
}
