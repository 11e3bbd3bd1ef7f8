package queries

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

// NoTitle is searched for when the caller supplies no title.
const NoTitle = "No Title"

// searchesPerInflationStep is how many title searches raise the price inflation by one unit.
const searchesPerInflationStep = 5

// Counter counts title searches. Next increments and returns the new value.
type Counter interface {
	Next() int64
}

// AtomicCounter is the process-wide search counter. It starts at zero and is never reset.
type AtomicCounter struct {
	n atomic.Int64
}

func (c *AtomicCounter) Next() int64 {
	return c.n.Add(1)
}

// SearchByTitleQuery matches catalog titles containing Title. A nil Title searches for NoTitle.
type SearchByTitleQuery struct {
	Title *string
}

func (q SearchByTitleQuery) term() string {
	if q.Title == nil {
		return NoTitle
	}
	return *q.Title
}

type SearchByTitleQueryHandler struct {
	catalog ports.Catalog
	counter Counter
}

func NewSearchByTitleQueryHandler(catalog ports.Catalog, counter Counter) *SearchByTitleQueryHandler {
	return &SearchByTitleQueryHandler{catalog: catalog, counter: counter}
}

// Handle returns copies of the matching books with the current inflation added to each price.
// Every call advances the counter, including calls that fail.
func (h *SearchByTitleQueryHandler) Handle(ctx context.Context, query SearchByTitleQuery) ([]domain.Book, error) {
	inflation := decimal.NewFromInt(h.counter.Next() / searchesPerInflationStep)

	books, err := h.catalog.SearchByTitle(ctx, query.term())
	if err != nil {
		return nil, fmt.Errorf("search books by title %q: %w", query.term(), err)
	}

	result := make([]domain.Book, 0, len(books))
	for _, b := range books {
		result = append(result, b.InflatePrice(inflation))
	}
	return result, nil
}
