package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/dejobratic/bookstore/internal/bookstore/adapters/memory"
	"github.com/dejobratic/bookstore/internal/bookstore/app"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/metrics"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

type recordingEventBus struct {
	mu         sync.Mutex
	added      []int64
	rolledBack []int64
	submitted  []domain.CartID
	err        error
}

func (b *recordingEventBus) PublishItemAdded(_ context.Context, book domain.Book) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, book.ID)
	return b.err
}

func (b *recordingEventBus) PublishItemRolledBack(_ context.Context, bookID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolledBack = append(b.rolledBack, bookID)
	return b.err
}

func (b *recordingEventBus) PublishOrderSubmitted(_ context.Context, order domain.SubmittedOrder) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, order.CartID)
	return b.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	service *app.Service
	events  *recordingEventBus
	clock   *fakeClock
}

func newFixture(t *testing.T, catalog ports.Catalog, opts ...app.Option) *fixture {
	t.Helper()

	m, err := metrics.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	f := &fixture{
		events: &recordingEventBus{},
		clock:  &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]app.Option{app.WithClock(f.clock.Now)}, opts...)
	f.service = app.NewService(catalog, f.events, logger, m, opts...)
	return f
}

func titlePtr(s string) *string { return &s }

func TestService_AddItemToCart(t *testing.T) {
	ctx := context.Background()

	t.Run("staging append returns only the new line item", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{ItemID: 102, Quantity: 1})
		require.NoError(t, err)
		display, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 0, ItemID: 101, Quantity: 2})
		require.NoError(t, err)

		assert.Equal(t, f.service.StagingCartID(), display.CartID)
		require.Len(t, display.Items, 1)
		assert.Equal(t, int64(101), display.Items[0].ItemID())
		assert.Equal(t, 2, display.Items[0].Quantity)
		assert.Equal(t, "The Go Programming Language", display.Items[0].Book.Title)

		assert.Len(t, f.service.GetItemsInCart(ctx, f.service.StagingCartID()).Items, 2)
	})

	t.Run("negative cart id selects staging", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		display, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: -4, ItemID: 101, Quantity: 1})
		require.NoError(t, err)

		assert.Equal(t, f.service.StagingCartID(), display.CartID)
	})

	t.Run("named cart returns the whole cart", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 9, ItemID: 101, Quantity: 1})
		require.NoError(t, err)
		display, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 9, ItemID: 103, Quantity: 4})
		require.NoError(t, err)

		assert.Equal(t, domain.CartID(9), display.CartID)
		require.Len(t, display.Items, 2)
		assert.Equal(t, int64(101), display.Items[0].ItemID())
		assert.Equal(t, int64(103), display.Items[1].ItemID())
	})

	t.Run("negative quantity is rejected and leaves the store unchanged", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 3, ItemID: 101, Quantity: -1})

		require.ErrorIs(t, err, ports.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "-1")
		assert.Empty(t, f.service.Carts())
	})

	t.Run("unknown item propagates not found", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{ItemID: 999, Quantity: 1})

		require.ErrorIs(t, err, ports.ErrNotFound)
		assert.Contains(t, err.Error(), "999")
		assert.Empty(t, f.service.Carts())
	})

	t.Run("concurrent staging appends lose nothing", func(t *testing.T) {
		const n = 50
		books := make([]domain.Book, 0, n)
		for i := range n {
			books = append(books, domain.Book{ID: int64(i + 1), Title: "book", Price: decimal.NewFromInt(1)})
		}
		f := newFixture(t, memory.NewCatalog(books...))

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for _, b := range books {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{ItemID: id, Quantity: 1})
				errs <- err
			}(b.ID)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		assert.Len(t, f.service.GetItemsInCart(ctx, f.service.StagingCartID()).Items, n)
	})
}

func TestService_UpdateItemInCart(t *testing.T) {
	ctx := context.Background()

	t.Run("fails with empty cart on a fresh store", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		_, err := f.service.UpdateItemInCart(ctx, 1, 101, 3)

		require.ErrorIs(t, err, ports.ErrEmptyCart)
		assert.Contains(t, err.Error(), "cart id 1")
	})

	t.Run("negative quantity is rejected before the emptiness check", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())
		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 1, ItemID: 101, Quantity: 2})
		require.NoError(t, err)

		_, err = f.service.UpdateItemInCart(ctx, 1, 101, -5)

		require.ErrorIs(t, err, ports.ErrInvalidArgument)
		assert.Equal(t, 2, f.service.GetItemsInCart(ctx, 1).Items[0].Quantity)
	})

	t.Run("replaces the quantity", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())
		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 1, ItemID: 101, Quantity: 2})
		require.NoError(t, err)

		display, err := f.service.UpdateItemInCart(ctx, 1, 101, 6)

		require.NoError(t, err)
		assert.Equal(t, domain.CartID(1), display.CartID)
		assert.Equal(t, 6, display.Items[0].Quantity)
	})

	t.Run("item missing from the cart fails with not found", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())
		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 1, ItemID: 101, Quantity: 2})
		require.NoError(t, err)

		_, err = f.service.UpdateItemInCart(ctx, 1, 102, 6)

		require.ErrorIs(t, err, ports.ErrNotFound)
		assert.Equal(t, 2, f.service.GetItemsInCart(ctx, 1).Items[0].Quantity)
	})
}

type stepCounter struct {
	n atomic.Int64
}

func (c *stepCounter) Next() int64 { return c.n.Add(1) }

func TestService_GetItemByTitle(t *testing.T) {
	ctx := context.Background()

	t.Run("inflation grows every fifth search", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog(), app.WithSearchCounter(&stepCounter{}))
		base := decimal.RequireFromString("39.99")

		wantInflation := []int64{0, 0, 0, 0, 1, 1, 1, 1, 1, 2}
		for call, want := range wantInflation {
			books, err := f.service.GetItemByTitle(ctx, titlePtr(""))
			require.NoError(t, err)
			require.Len(t, books, 6)
			assert.True(t, books[0].Price.Equal(base.Add(decimal.NewFromInt(want))),
				"call %d: got price %s", call+1, books[0].Price)
		}

		stored, err := f.service.GetItemByID(ctx, 101)
		require.NoError(t, err)
		assert.True(t, stored.Price.Equal(base))
	})

	t.Run("nil title searches the sentinel term", func(t *testing.T) {
		books := append(memory.SeedBooks(), domain.Book{ID: 500, Title: "No Title", Price: decimal.NewFromInt(1)})
		f := newFixture(t, memory.NewCatalog(books...))

		got, err := f.service.GetItemByTitle(ctx, nil)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(500), got[0].ID)
	})

	t.Run("counts calls that fail", func(t *testing.T) {
		counter := &stepCounter{}
		f := newFixture(t, &failingCatalog{err: errors.New("catalog down")}, app.WithSearchCounter(counter))

		_, err := f.service.GetItemByTitle(ctx, titlePtr("go"))

		require.Error(t, err)
		assert.Equal(t, int64(1), counter.n.Load())
	})
}

func TestService_AddNewItemToInventory(t *testing.T) {
	ctx := context.Background()
	book := domain.Book{ID: 900, Title: "Learning Go", Price: decimal.RequireFromString("25.00")}

	t.Run("registers the book and publishes an event", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		got, err := f.service.AddNewItemToInventory(ctx, book)

		require.NoError(t, err)
		assert.Equal(t, book, *got)
		stored, err := f.service.GetItemByID(ctx, 900)
		require.NoError(t, err)
		assert.Equal(t, "Learning Go", stored.Title)
		assert.Equal(t, []int64{900}, f.events.added)
	})

	t.Run("duplicate id fails with conflict naming the existing title", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())
		_, err := f.service.AddNewItemToInventory(ctx, book)
		require.NoError(t, err)

		dup := book
		dup.Title = "Another Title"
		_, err = f.service.AddNewItemToInventory(ctx, dup)

		require.ErrorIs(t, err, ports.ErrConflict)
		assert.Contains(t, err.Error(), `"Learning Go"`)
		stored, err := f.service.GetItemByID(ctx, 900)
		require.NoError(t, err)
		assert.Equal(t, "Learning Go", stored.Title)
	})

	t.Run("invalid book is rejected", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		_, err := f.service.AddNewItemToInventory(ctx, domain.Book{ID: 901})

		require.ErrorIs(t, err, ports.ErrInvalidArgument)
	})

	t.Run("lookup failures other than not found propagate", func(t *testing.T) {
		f := newFixture(t, &failingCatalog{err: errors.New("connection refused")})

		_, err := f.service.AddNewItemToInventory(ctx, book)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ports.ErrConflict)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("publish failure does not fail the addition", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())
		f.events.err = errors.New("broker down")

		_, err := f.service.AddNewItemToInventory(ctx, book)

		require.NoError(t, err)
	})

	t.Run("concurrent additions of one id admit exactly one", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		var (
			wg        sync.WaitGroup
			successes atomic.Int32
			conflicts atomic.Int32
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.AddNewItemToInventory(ctx, book)
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, ports.ErrConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
		assert.Equal(t, int32(19), conflicts.Load())
	})
}

func TestService_SubmitOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the cart and stamps the submission", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())
		_, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 5, ItemID: 101, Quantity: 1})
		require.NoError(t, err)

		order, err := f.service.SubmitOrder(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, domain.CartID(5), order.CartID)
		assert.Len(t, order.Items, 1)
		assert.Equal(t, f.clock.Now(), order.SubmittedAt)
		assert.Empty(t, f.service.GetItemsInCart(ctx, 5).Items)
		assert.Empty(t, f.service.Carts())
		assert.Equal(t, []domain.CartID{5}, f.events.submitted)
	})

	t.Run("unknown cart yields an empty submission", func(t *testing.T) {
		f := newFixture(t, memory.NewSeededCatalog())

		order, err := f.service.SubmitOrder(ctx, 77)

		require.NoError(t, err)
		assert.Empty(t, order.Items)
		assert.Empty(t, f.events.submitted)
	})
}

func TestService_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewSeededCatalog(), app.WithSearchCounter(&stepCounter{}))

	display, err := f.service.AddItemToCart(ctx, app.AddItemToCartInput{CartID: 0, ItemID: 101, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, f.service.StagingCartID(), display.CartID)

	for call := 1; call <= 9; call++ {
		books, err := f.service.GetItemByTitle(ctx, titlePtr(""))
		require.NoError(t, err)
		require.Len(t, books, 6)

		want := decimal.Zero
		if call >= 5 {
			want = decimal.NewFromInt(1)
		}
		for _, b := range books {
			seed, err := f.service.GetItemByID(ctx, b.ID)
			require.NoError(t, err)
			assert.True(t, b.Price.Sub(seed.Price).Equal(want), "call %d book %d", call, b.ID)
		}
	}
}

type failingCatalog struct {
	err error
}

func (c *failingCatalog) GetByID(context.Context, int64) (*domain.Book, error) { return nil, c.err }

func (c *failingCatalog) SearchByTitle(context.Context, string) ([]domain.Book, error) {
	return nil, c.err
}

func (c *failingCatalog) Add(context.Context, domain.Book) error { return c.err }

func (c *failingCatalog) RollbackAddition(context.Context, int64) error { return c.err }
