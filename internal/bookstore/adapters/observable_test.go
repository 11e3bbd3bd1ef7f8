package adapters_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dejobratic/bookstore/internal/bookstore/adapters"
	"github.com/dejobratic/bookstore/internal/bookstore/adapters/memory"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"github.com/dejobratic/bookstore/internal/database"
	"github.com/dejobratic/bookstore/internal/events"
)

func setupTracing(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return exp
}

func collectHistogramCount(t *testing.T, reader *sdkmetric.ManualReader, name string) uint64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			histogram, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("Expected Histogram[float64] data type for %s", name)
			}
			for _, dp := range histogram.DataPoints {
				count += dp.Count
			}
		}
	}
	return count
}

func TestObservableCatalog(t *testing.T) {
	exp := setupTracing(t)
	reader := sdkmetric.NewManualReader()
	dbMetrics, err := database.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), "memory")
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	catalog := adapters.NewObservableCatalog(memory.NewSeededCatalog(), dbMetrics)
	ctx := context.Background()

	if _, err := catalog.GetByID(ctx, 101); err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if _, err := catalog.GetByID(ctx, 999); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if _, err := catalog.SearchByTitle(ctx, "go"); err != nil {
		t.Fatalf("SearchByTitle() failed: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[0].Name != "Catalog.GetByID" || spans[0].Status.Code != codes.Ok {
		t.Errorf("unexpected first span: %s %v", spans[0].Name, spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("expected not found lookup to record an error, got %v", spans[1].Status.Code)
	}

	if count := collectHistogramCount(t, reader, "db_query_duration_seconds"); count != 3 {
		t.Errorf("expected 3 query measurements, got %d", count)
	}
}

type failingBus struct{}

func (failingBus) PublishItemAdded(context.Context, domain.Book) error {
	return errors.New("broker down")
}

func (failingBus) PublishItemRolledBack(context.Context, int64) error {
	return errors.New("broker down")
}

func (failingBus) PublishOrderSubmitted(context.Context, domain.SubmittedOrder) error {
	return nil
}

func TestObservableEventBus(t *testing.T) {
	exp := setupTracing(t)
	reader := sdkmetric.NewManualReader()
	eventMetrics, err := events.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	bus := adapters.NewObservableEventBus(failingBus{}, eventMetrics)
	ctx := context.Background()

	if err := bus.PublishItemAdded(ctx, domain.Book{ID: 1}); err == nil {
		t.Error("expected publish error to be returned")
	}
	if err := bus.PublishOrderSubmitted(ctx, domain.SubmittedOrder{CartID: 2}); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "EventBus.Publish "+events.RoutingKeyItemAdded {
		t.Errorf("unexpected span name %s", spans[0].Name)
	}

	if count := collectHistogramCount(t, reader, "event_publish_latency_seconds"); count != 2 {
		t.Errorf("expected 2 publish measurements, got %d", count)
	}
}
