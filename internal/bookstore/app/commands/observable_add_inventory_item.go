package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/metrics"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableAddInventoryItemHandler struct {
	handler Handler[AddInventoryItemCommand, *domain.Book]
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableAddInventoryItemHandler(
	handler Handler[AddInventoryItemCommand, *domain.Book],
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *ObservableAddInventoryItemHandler {
	return &ObservableAddInventoryItemHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableAddInventoryItemHandler) Handle(ctx context.Context, cmd AddInventoryItemCommand) (*domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, "AddInventoryItemCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordInventoryAdditionDuration(ctx, duration)
		o.metrics.RecordInventoryAddition(ctx, success)
	}()

	o.logger.InfoContext(ctx, "adding book to inventory",
		"book_id", cmd.Book.ID,
		"title", cmd.Book.Title,
	)

	book, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to add book to inventory",
			"error", err,
			"book_id", cmd.Book.ID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", book.ID),
		attribute.String("book.title", book.Title),
		attribute.String("book.price", book.Price.String()),
	)

	o.logger.InfoContext(ctx, "book added to inventory",
		"book_id", book.ID,
		"title", book.Title,
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return book, nil
}
