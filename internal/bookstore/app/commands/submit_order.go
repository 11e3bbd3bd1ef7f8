package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/cart"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"go.opentelemetry.io/otel/attribute"
)

type SubmitOrderCommand struct {
	CartID domain.CartID
}

func (c SubmitOrderCommand) Name() string { return "SubmitOrderCommand" }

func (c SubmitOrderCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int64("cart.id", int64(c.CartID))}
}

type SubmitOrderCommandHandler struct {
	store  *cart.Store
	events ports.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewSubmitOrderCommandHandler(store *cart.Store, events ports.EventBus, logger *slog.Logger, now func() time.Time) *SubmitOrderCommandHandler {
	return &SubmitOrderCommandHandler{
		store:  store,
		events: events,
		logger: logger,
		now:    now,
	}
}

// Handle never fails: an unknown cart yields an empty submission.
func (h *SubmitOrderCommandHandler) Handle(ctx context.Context, cmd SubmitOrderCommand) (*domain.SubmittedOrder, error) {
	order := domain.SubmittedOrder{
		CartID:      cmd.CartID,
		Items:       h.store.Submit(cmd.CartID),
		SubmittedAt: h.now(),
	}

	if len(order.Items) > 0 {
		if err := h.events.PublishOrderSubmitted(ctx, order); err != nil {
			h.logger.WarnContext(ctx, "failed to publish order submitted event",
				"cart_id", order.CartID,
				"error", err,
			)
		}
	}

	return &order, nil
}
