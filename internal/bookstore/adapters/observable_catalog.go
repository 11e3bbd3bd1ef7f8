package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"github.com/dejobratic/bookstore/internal/database"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCatalog struct {
	catalog ports.Catalog
	metrics *database.Metrics
}

func NewObservableCatalog(catalog ports.Catalog, metrics *database.Metrics) *ObservableCatalog {
	return &ObservableCatalog{
		catalog: catalog,
		metrics: metrics,
	}
}

func (c *ObservableCatalog) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, "Catalog.GetByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", id),
		attribute.String("operation", "get_by_id"),
	)

	start := time.Now()
	book, err := c.catalog.GetByID(ctx, id)
	duration := time.Since(start).Seconds()

	c.metrics.RecordQuery(ctx, "get_book_by_id", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return book, nil
}

func (c *ObservableCatalog) SearchByTitle(ctx context.Context, substring string) ([]domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, "Catalog.SearchByTitle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("search.title", substring),
		attribute.String("operation", "search_by_title"),
	)

	start := time.Now()
	books, err := c.catalog.SearchByTitle(ctx, substring)
	duration := time.Since(start).Seconds()

	c.metrics.RecordQuery(ctx, "search_books_by_title", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(books)))
	telemetry.SetSpanSuccess(span)
	return books, nil
}

func (c *ObservableCatalog) Add(ctx context.Context, book domain.Book) error {
	ctx, span := telemetry.StartSpan(ctx, "Catalog.Add")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", book.ID),
		attribute.String("operation", "add"),
	)

	start := time.Now()
	err := c.catalog.Add(ctx, book)
	duration := time.Since(start).Seconds()

	c.metrics.RecordQuery(ctx, "insert_book", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (c *ObservableCatalog) RollbackAddition(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "Catalog.RollbackAddition")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", id),
		attribute.String("operation", "rollback_addition"),
	)

	start := time.Now()
	err := c.catalog.RollbackAddition(ctx, id)
	duration := time.Since(start).Seconds()

	c.metrics.RecordQuery(ctx, "delete_book", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
