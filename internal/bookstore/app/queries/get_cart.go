package queries

import (
	"github.com/dejobratic/bookstore/internal/bookstore/cart"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

// GetCartQuery reads the current line items of a cart.
type GetCartQuery struct {
	CartID domain.CartID
}

type GetCartQueryHandler struct {
	store *cart.Store
}

func NewGetCartQueryHandler(store *cart.Store) *GetCartQueryHandler {
	return &GetCartQueryHandler{store: store}
}

// Handle always succeeds; an unknown cart is returned empty.
func (h *GetCartQueryHandler) Handle(query GetCartQuery) domain.Cart {
	return h.store.Get(query.CartID)
}
