package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Book is a catalog item that can be ordered into a cart.
type Book struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Author string          `json:"author,omitempty"`
	Price  decimal.Decimal `json:"price"`
}

// Validate ensures the book can be registered in the catalog.
func (b Book) Validate() error {
	if b.ID <= 0 {
		return errors.New("id must be positive")
	}
	if strings.TrimSpace(b.Title) == "" {
		return errors.New("title is required")
	}
	if b.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	return nil
}

// InflatePrice returns a copy of the book with amount added to its price.
func (b Book) InflatePrice(amount decimal.Decimal) Book {
	b.Price = b.Price.Add(amount)
	return b
}
