package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

// Catalog provides an in-memory catalog useful for local development and tests.
type Catalog struct {
	mu    sync.RWMutex
	books map[int64]domain.Book
}

// NewCatalog constructs a catalog holding the given books.
func NewCatalog(books ...domain.Book) *Catalog {
	c := &Catalog{books: make(map[int64]domain.Book, len(books))}
	for _, b := range books {
		c.books[b.ID] = b
	}
	return c
}

// NewSeededCatalog constructs a catalog holding SeedBooks.
func NewSeededCatalog() *Catalog {
	return NewCatalog(SeedBooks()...)
}

// SeedBooks returns the starter inventory used by every catalog driver when seeding is enabled.
func SeedBooks() []domain.Book {
	return []domain.Book{
		{ID: 101, Title: "The Go Programming Language", Author: "Alan Donovan", Price: decimal.RequireFromString("39.99")},
		{ID: 102, Title: "Concurrency in Go", Author: "Katherine Cox-Buday", Price: decimal.RequireFromString("34.50")},
		{ID: 103, Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Price: decimal.RequireFromString("45.00")},
		{ID: 104, Title: "The Pragmatic Programmer", Author: "David Thomas", Price: decimal.RequireFromString("42.25")},
		{ID: 105, Title: "Release It!", Author: "Michael Nygard", Price: decimal.RequireFromString("29.95")},
		{ID: 106, Title: "Site Reliability Engineering", Author: "Betsy Beyer", Price: decimal.RequireFromString("49.99")},
	}
}

// GetByID fetches a single book by identifier.
func (c *Catalog) GetByID(_ context.Context, id int64) (*domain.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	book, ok := c.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: book %d", ports.ErrNotFound, id)
	}
	copy := book
	return &copy, nil
}

// SearchByTitle returns books whose title contains substring, ignoring case, ordered by id.
func (c *Catalog) SearchByTitle(_ context.Context, substring string) ([]domain.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(substring)
	result := []domain.Book{}
	for _, b := range c.books {
		if strings.Contains(strings.ToLower(b.Title), needle) {
			result = append(result, b)
		}
	}

	slices.SortFunc(result, func(a, b domain.Book) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// Add stores a new book.
func (c *Catalog) Add(_ context.Context, book domain.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.books[book.ID]; ok {
		return fmt.Errorf("%w: book %d already exists with title %q", ports.ErrConflict, book.ID, existing.Title)
	}
	c.books[book.ID] = book
	return nil
}

// RollbackAddition removes a previously added book.
func (c *Catalog) RollbackAddition(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.books, id)
	return nil
}
