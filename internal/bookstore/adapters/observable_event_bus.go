package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"github.com/dejobratic/bookstore/internal/events"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *events.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *events.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishItemAdded(ctx context.Context, book domain.Book) error {
	return e.observe(ctx, events.RoutingKeyItemAdded, []attribute.KeyValue{attribute.Int64("book.id", book.ID)},
		func(ctx context.Context) error { return e.bus.PublishItemAdded(ctx, book) })
}

func (e *ObservableEventBus) PublishItemRolledBack(ctx context.Context, bookID int64) error {
	return e.observe(ctx, events.RoutingKeyItemRolledBack, []attribute.KeyValue{attribute.Int64("book.id", bookID)},
		func(ctx context.Context) error { return e.bus.PublishItemRolledBack(ctx, bookID) })
}

func (e *ObservableEventBus) PublishOrderSubmitted(ctx context.Context, order domain.SubmittedOrder) error {
	attrs := []attribute.KeyValue{
		attribute.Int64("cart.id", int64(order.CartID)),
		attribute.Int("order.line_items", len(order.Items)),
	}
	return e.observe(ctx, events.RoutingKeyOrderSubmitted, attrs,
		func(ctx context.Context) error { return e.bus.PublishOrderSubmitted(ctx, order) })
}

func (e *ObservableEventBus) observe(ctx context.Context, routingKey string, attrs []attribute.KeyValue, publish func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.Publish "+routingKey)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs,
		attribute.String("event.type", routingKey),
		attribute.String("routing_key", routingKey),
	)...)

	start := time.Now()
	err := publish(ctx)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, routingKey, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
