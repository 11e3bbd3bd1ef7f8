package queries

import (
	"context"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

// GetItemQuery represents a request to retrieve a catalog item by its ID.
type GetItemQuery struct {
	ItemID int64
}

// GetItemQueryHandler executes GetItemQuery against the catalog.
type GetItemQueryHandler struct {
	catalog ports.Catalog
}

// NewGetItemQueryHandler constructs a GetItemQueryHandler.
func NewGetItemQueryHandler(catalog ports.Catalog) *GetItemQueryHandler {
	return &GetItemQueryHandler{catalog: catalog}
}

// Handle returns the book or an error wrapping ports.ErrNotFound.
func (h *GetItemQueryHandler) Handle(ctx context.Context, query GetItemQuery) (*domain.Book, error) {
	return h.catalog.GetByID(ctx, query.ItemID)
}
