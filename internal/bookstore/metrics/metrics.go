package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	cartItemsAdded            metric.Int64Counter
	ordersSubmitted           metric.Int64Counter
	inventoryAdditions        metric.Int64Counter
	inventoryAdditionDuration metric.Float64Histogram
	cartLineItemsEvicted      metric.Int64Counter
	inventoryRollbacks        metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.cartItemsAdded, err = meter.Int64Counter(
		"cart_items_added_total",
		metric.WithDescription("Total number of line items added to carts"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart_items_added_total counter: %w", err)
	}

	m.ordersSubmitted, err = meter.Int64Counter(
		"orders_submitted_total",
		metric.WithDescription("Total number of submitted carts"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_submitted_total counter: %w", err)
	}

	m.inventoryAdditions, err = meter.Int64Counter(
		"inventory_additions_total",
		metric.WithDescription("Total number of catalog additions"),
		metric.WithUnit("{book}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create inventory_additions_total counter: %w", err)
	}

	m.inventoryAdditionDuration, err = meter.Float64Histogram(
		"inventory_addition_duration_seconds",
		metric.WithDescription("Duration of catalog addition operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create inventory_addition_duration histogram: %w", err)
	}

	m.cartLineItemsEvicted, err = meter.Int64Counter(
		"cart_line_items_evicted_total",
		metric.WithDescription("Total number of line items evicted by maintenance"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cart_line_items_evicted_total counter: %w", err)
	}

	m.inventoryRollbacks, err = meter.Int64Counter(
		"inventory_rollbacks_total",
		metric.WithDescription("Total number of expired catalog additions rolled back"),
		metric.WithUnit("{book}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create inventory_rollbacks_total counter: %w", err)
	}

	return m, nil
}

func status(success bool) attribute.KeyValue {
	if success {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "error")
}

func (m *Metrics) RecordCartItemAdded(ctx context.Context, staging bool) {
	m.cartItemsAdded.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("staging", staging),
	))
}

func (m *Metrics) RecordOrderSubmitted(ctx context.Context, lineItems int) {
	m.ordersSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("empty", lineItems == 0),
	))
}

func (m *Metrics) RecordInventoryAddition(ctx context.Context, success bool) {
	m.inventoryAdditions.Add(ctx, 1, metric.WithAttributes(status(success)))
}

func (m *Metrics) RecordInventoryAdditionDuration(ctx context.Context, durationSeconds float64) {
	m.inventoryAdditionDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordLineItemsEvicted(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.cartLineItemsEvicted.Add(ctx, int64(count))
}

func (m *Metrics) RecordRollbacks(ctx context.Context, succeeded, failed int) {
	if succeeded > 0 {
		m.inventoryRollbacks.Add(ctx, int64(succeeded), metric.WithAttributes(status(true)))
	}
	if failed > 0 {
		m.inventoryRollbacks.Add(ctx, int64(failed), metric.WithAttributes(status(false)))
	}
}
