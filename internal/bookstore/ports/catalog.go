package ports

import (
	"context"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

// Catalog is the backing store of orderable books.
type Catalog interface {
	// GetByID returns ErrNotFound when no book has the given id.
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	// SearchByTitle matches titles containing substring, case-insensitively, ordered by id.
	SearchByTitle(ctx context.Context, substring string) ([]domain.Book, error)
	// Add returns ErrConflict when a book with the same id exists.
	Add(ctx context.Context, book domain.Book) error
	// RollbackAddition removes a book registered by Add. Absent ids are ignored.
	RollbackAddition(ctx context.Context, id int64) error
}
