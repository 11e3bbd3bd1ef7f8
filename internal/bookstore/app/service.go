package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/app/commands"
	"github.com/dejobratic/bookstore/internal/bookstore/app/queries"
	"github.com/dejobratic/bookstore/internal/bookstore/cart"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/inventory"
	"github.com/dejobratic/bookstore/internal/bookstore/metrics"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

// Service bundles the cart and inventory use cases exposed to the transport layer.
// It is safe for concurrent use.
type Service struct {
	store   *cart.Store
	sweeper *Sweeper

	addCartItem      commands.Handler[commands.AddCartItemCommand, *domain.DisplayOrder]
	updateCartItem   commands.Handler[commands.UpdateCartItemCommand, *domain.DisplayOrder]
	submitOrder      commands.Handler[commands.SubmitOrderCommand, *domain.SubmittedOrder]
	addInventoryItem commands.Handler[commands.AddInventoryItemCommand, *domain.Book]

	searchByTitle *queries.SearchByTitleQueryHandler
	getItem       *queries.GetItemQueryHandler
	getCart       *queries.GetCartQueryHandler
}

type Option func(*serviceOptions)

type serviceOptions struct {
	now     func() time.Time
	counter queries.Counter
}

// WithClock overrides the clock used to stamp line items, pending additions and submissions.
func WithClock(now func() time.Time) Option {
	return func(opts *serviceOptions) {
		opts.now = now
	}
}

// WithSearchCounter overrides the process-wide title search counter.
func WithSearchCounter(counter queries.Counter) Option {
	return func(opts *serviceOptions) {
		opts.counter = counter
	}
}

// NewService wires required dependencies.
func NewService(
	catalog ports.Catalog,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Service {
	options := &serviceOptions{
		now:     func() time.Time { return time.Now().UTC() },
		counter: &queries.AtomicCounter{},
	}
	for _, opt := range opts {
		opt(options)
	}

	store := cart.NewStore()
	pending := inventory.NewPendingRegistry()

	addCartItem := commands.NewObservableHandler[commands.AddCartItemCommand, *domain.DisplayOrder](
		commands.NewAddCartItemCommandHandler(store, catalog, options.now),
		logger,
		func(ctx context.Context, cmd commands.AddCartItemCommand, _ *domain.DisplayOrder, _ time.Duration, err error) {
			if err == nil {
				metrics.RecordCartItemAdded(ctx, cmd.CartID <= 0)
			}
		},
	)

	updateCartItem := commands.NewObservableHandler[commands.UpdateCartItemCommand, *domain.DisplayOrder](
		commands.NewUpdateCartItemCommandHandler(store),
		logger,
		nil,
	)

	submitOrder := commands.NewObservableHandler[commands.SubmitOrderCommand, *domain.SubmittedOrder](
		commands.NewSubmitOrderCommandHandler(store, events, logger, options.now),
		logger,
		func(ctx context.Context, _ commands.SubmitOrderCommand, order *domain.SubmittedOrder, _ time.Duration, err error) {
			if err == nil {
				metrics.RecordOrderSubmitted(ctx, len(order.Items))
			}
		},
	)

	addInventoryItem := commands.NewObservableAddInventoryItemHandler(
		commands.NewAddInventoryItemCommandHandler(catalog, pending, events, logger, options.now),
		logger,
		metrics,
	)

	return &Service{
		store:            store,
		sweeper:          NewSweeper(store, pending, catalog, events, logger, metrics),
		addCartItem:      addCartItem,
		updateCartItem:   updateCartItem,
		submitOrder:      submitOrder,
		addInventoryItem: addInventoryItem,
		searchByTitle:    queries.NewSearchByTitleQueryHandler(catalog, options.counter),
		getItem:          queries.NewGetItemQueryHandler(catalog),
		getCart:          queries.NewGetCartQueryHandler(store),
	}
}

// AddItemToCartInput captures payload for ordering a catalog item into a cart.
// A zero or negative CartID selects the staging cart.
type AddItemToCartInput struct {
	CartID   domain.CartID `json:"cart_id"`
	ItemID   int64         `json:"item_id"`
	Quantity int           `json:"quantity"`
}

// StagingCartID returns the well-known cart used when no cart is named.
func (s *Service) StagingCartID() domain.CartID {
	return s.store.StagingCartID()
}

// AddItemToCart looks up the item and appends it to the named or staging cart.
func (s *Service) AddItemToCart(ctx context.Context, input AddItemToCartInput) (*domain.DisplayOrder, error) {
	return s.addCartItem.Handle(ctx, commands.AddCartItemCommand{
		CartID:   input.CartID,
		ItemID:   input.ItemID,
		Quantity: input.Quantity,
	})
}

// UpdateItemInCart replaces the quantity of an item already in the cart.
func (s *Service) UpdateItemInCart(ctx context.Context, cartID domain.CartID, itemID int64, quantity int) (*domain.DisplayOrder, error) {
	return s.updateCartItem.Handle(ctx, commands.UpdateCartItemCommand{
		CartID:   cartID,
		ItemID:   itemID,
		Quantity: quantity,
	})
}

// GetItemByTitle searches the catalog by title substring. A nil title searches for
// queries.NoTitle and an empty title matches every book.
func (s *Service) GetItemByTitle(ctx context.Context, title *string) ([]domain.Book, error) {
	return s.searchByTitle.Handle(ctx, queries.SearchByTitleQuery{Title: title})
}

// GetItemByID retrieves a catalog item.
func (s *Service) GetItemByID(ctx context.Context, id int64) (*domain.Book, error) {
	return s.getItem.Handle(ctx, queries.GetItemQuery{ItemID: id})
}

// AddNewItemToInventory registers a new catalog item. The addition is rolled back by
// maintenance once it is older than ExpiryTimeout.
func (s *Service) AddNewItemToInventory(ctx context.Context, book domain.Book) (*domain.Book, error) {
	return s.addInventoryItem.Handle(ctx, commands.AddInventoryItemCommand{Book: book})
}

// SubmitOrder removes the cart and returns what it held.
func (s *Service) SubmitOrder(ctx context.Context, cartID domain.CartID) (*domain.SubmittedOrder, error) {
	return s.submitOrder.Handle(ctx, commands.SubmitOrderCommand{CartID: cartID})
}

// GetItemsInCart returns the cart's current line items.
func (s *Service) GetItemsInCart(_ context.Context, cartID domain.CartID) domain.Cart {
	return s.getCart.Handle(queries.GetCartQuery{CartID: cartID})
}

// Carts returns every non-empty cart ordered by id.
func (s *Service) Carts() []domain.Cart {
	return s.store.Enumerate()
}

// RunMaintenance evicts expired state as of now.
func (s *Service) RunMaintenance(ctx context.Context, now time.Time) (domain.MaintenanceReport, error) {
	return s.sweeper.RunMaintenance(ctx, now)
}
