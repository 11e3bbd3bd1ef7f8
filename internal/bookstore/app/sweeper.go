package app

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/cart"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/inventory"
	"github.com/dejobratic/bookstore/internal/bookstore/metrics"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ExpiryTimeout applies to both cart line items and pending catalog additions.
const ExpiryTimeout = 20 * time.Minute

// Sweeper evicts stale line items and rolls back catalog additions that aged out.
type Sweeper struct {
	store   *cart.Store
	pending *inventory.PendingRegistry
	catalog ports.Catalog
	events  ports.EventBus
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewSweeper(
	store *cart.Store,
	pending *inventory.PendingRegistry,
	catalog ports.Catalog,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Sweeper {
	return &Sweeper{
		store:   store,
		pending: pending,
		catalog: catalog,
		events:  events,
		logger:  logger,
		metrics: metrics,
	}
}

// RunMaintenance trims carts and then rolls back expired pending additions. The two phases
// take their locks one after the other. Rollback failures are logged, counted in the report
// and returned combined; they never stop the pass.
func (s *Sweeper) RunMaintenance(ctx context.Context, now time.Time) (domain.MaintenanceReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "Sweeper.RunMaintenance")
	defer span.End()

	report := domain.MaintenanceReport{StartedAt: now}

	swept := s.store.SweepExpired(now, ExpiryTimeout)
	report.EvictedLineItems = swept.EvictedLineItems
	report.RemovedCarts = swept.RemovedCarts
	s.metrics.RecordLineItemsEvicted(ctx, swept.EvictedLineItems)

	rolledBack, err := s.pending.SweepExpired(now, ExpiryTimeout, func(bookID int64) error {
		return s.rollback(ctx, bookID)
	})
	report.ExpiredAdditions = len(rolledBack.Expired)
	report.FailedRollbacks = len(rolledBack.Failed)
	for _, id := range rolledBack.Expired {
		if !slices.Contains(rolledBack.Failed, id) {
			report.RolledBackBookIDs = append(report.RolledBackBookIDs, id)
		}
	}
	s.metrics.RecordRollbacks(ctx, len(report.RolledBackBookIDs), report.FailedRollbacks)

	telemetry.AddSpanAttributes(span,
		attribute.Int("maintenance.evicted_line_items", report.EvictedLineItems),
		attribute.Int("maintenance.removed_carts", report.RemovedCarts),
		attribute.Int("maintenance.expired_additions", report.ExpiredAdditions),
		attribute.Int("maintenance.failed_rollbacks", report.FailedRollbacks),
	)

	s.logger.InfoContext(ctx, "maintenance completed",
		"evicted_line_items", report.EvictedLineItems,
		"removed_carts", report.RemovedCarts,
		"expired_additions", report.ExpiredAdditions,
		"failed_rollbacks", report.FailedRollbacks,
	)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return report, err
	}

	telemetry.SetSpanSuccess(span)
	return report, nil
}

func (s *Sweeper) rollback(ctx context.Context, bookID int64) error {
	if err := s.catalog.RollbackAddition(ctx, bookID); err != nil {
		s.logger.WarnContext(ctx, "failed to roll back pending addition",
			"book_id", bookID,
			"error", err,
		)
		return err
	}

	if err := s.events.PublishItemRolledBack(ctx, bookID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish item rolled back event",
			"book_id", bookID,
			"error", err,
		)
	}
	return nil
}
