package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS books(
  id         INTEGER PRIMARY KEY,
  title      TEXT    NOT NULL,
  author     TEXT    NOT NULL DEFAULT '',
  price      TEXT    NOT NULL,
  created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
CREATE INDEX IF NOT EXISTS idx_books_title ON books(title COLLATE NOCASE);
`

// Catalog is a file-backed catalog for single-node deployments and local development.
type Catalog struct {
	db *sql.DB
}

// Open opens the database file at path and applies the schema.
func Open(ctx context.Context, path string) (*Catalog, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetConnMaxIdleTime(2 * time.Minute)
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Catalog) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id,title,author,price FROM books WHERE id=?`, id)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: book %d", ports.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return book, nil
}

func (c *Catalog) SearchByTitle(ctx context.Context, substring string) ([]domain.Book, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id,title,author,price FROM books WHERE instr(lower(title), lower(?)) > 0 ORDER BY id`, substring)
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
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO books(id,title,author,price) VALUES(?,?,?,?) ON CONFLICT(id) DO NOTHING`,
		book.ID, book.Title, book.Author, book.Price.String())
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: book %d already exists", ports.ErrConflict, book.ID)
	}
	return nil
}

func (c *Catalog) RollbackAddition(ctx context.Context, id int64) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// Seed inserts books that are not already present.
func (c *Catalog) Seed(ctx context.Context, books []domain.Book) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range books {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO books(id,title,author,price) VALUES(?,?,?,?) ON CONFLICT(id) DO NOTHING`,
			b.ID, b.Title, b.Author, b.Price.String()); err != nil {
			return fmt.Errorf("seed book %d: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*domain.Book, error) {
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
