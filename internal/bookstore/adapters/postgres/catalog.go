package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	query := `
		SELECT id, title, author, price::text
		FROM books
		WHERE id = $1
	`

	book, err := scanBook(c.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: book %d", ports.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}

	return book, nil
}

func (c *Catalog) SearchByTitle(ctx context.Context, substring string) ([]domain.Book, error) {
	query := `
		SELECT id, title, author, price::text
		FROM books
		WHERE position(lower($1) in lower(title)) > 0
		ORDER BY id
	`

	rows, err := c.pool.Query(ctx, query, substring)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	return books, nil
}

func (c *Catalog) Add(ctx context.Context, book domain.Book) error {
	query := `
		INSERT INTO books (id, title, author, price)
		VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := c.pool.Exec(ctx, query, book.ID, book.Title, book.Author, book.Price.String())
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: book %d already exists", ports.ErrConflict, book.ID)
	}

	return nil
}

func (c *Catalog) RollbackAddition(ctx context.Context, id int64) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// Seed inserts books that are not already present.
func (c *Catalog) Seed(ctx context.Context, books []domain.Book) error {
	batch := &pgx.Batch{}
	for _, b := range books {
		batch.Queue(`
			INSERT INTO books (id, title, author, price)
			VALUES ($1, $2, $3, $4::numeric)
			ON CONFLICT (id) DO NOTHING
		`, b.ID, b.Title, b.Author, b.Price.String())
	}

	if err := c.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed books: %w", err)
	}
	return nil
}

func (c *Catalog) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var (
		book  domain.Book
		price string
	)
	if err := row.Scan(&book.ID, &book.Title, &book.Author, &price); err != nil {
		return nil, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	book.Price = p

	return &book, nil
}
