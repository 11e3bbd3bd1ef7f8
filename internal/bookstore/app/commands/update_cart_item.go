package commands

import (
	"context"
	"fmt"

	"github.com/dejobratic/bookstore/internal/bookstore/cart"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"go.opentelemetry.io/otel/attribute"
)

// UpdateCartItemCommand replaces the quantity of an item already in a cart.
type UpdateCartItemCommand struct {
	CartID   domain.CartID
	ItemID   int64
	Quantity int
}

func (c UpdateCartItemCommand) Name() string { return "UpdateCartItemCommand" }

func (c UpdateCartItemCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("cart.id", int64(c.CartID)),
		attribute.Int64("book.id", c.ItemID),
		attribute.Int("quantity", c.Quantity),
	}
}

func (c UpdateCartItemCommand) Validate() error {
	if c.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d for item %d must not be negative", ports.ErrInvalidArgument, c.Quantity, c.ItemID)
	}
	return nil
}

type UpdateCartItemCommandHandler struct {
	store *cart.Store
}

func NewUpdateCartItemCommandHandler(store *cart.Store) *UpdateCartItemCommandHandler {
	return &UpdateCartItemCommandHandler{store: store}
}

func (h *UpdateCartItemCommandHandler) Handle(_ context.Context, cmd UpdateCartItemCommand) (*domain.DisplayOrder, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c, err := h.store.UpdateQuantity(cmd.CartID, cmd.ItemID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	return &domain.DisplayOrder{CartID: c.ID, Items: c.Items}, nil
}
