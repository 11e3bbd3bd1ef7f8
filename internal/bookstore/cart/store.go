package cart

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

// StagingCartID is the well-known cart used when a caller does not name a cart.
const StagingCartID domain.CartID = 0

// Store maps cart ids to their line items. Every key maps to a non-empty sequence.
//
// A single lock guards the whole store, so a sweep never exposes partially trimmed carts.
type Store struct {
	mu    sync.RWMutex
	carts map[domain.CartID][]domain.LineItem
}

// NewStore constructs an empty cart store.
func NewStore() *Store {
	return &Store{carts: make(map[domain.CartID][]domain.LineItem)}
}

// StagingCartID returns the staging cart identifier. It never changes for the store's lifetime.
func (s *Store) StagingCartID() domain.CartID {
	return StagingCartID
}

// AppendToStaging appends item to the staging cart, creating it if absent.
func (s *Store) AppendToStaging(item domain.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[StagingCartID] = append(s.carts[StagingCartID], item)
}

// AppendToExisting appends item to the named cart, creating it on first write, and
// returns the full cart.
func (s *Store) AppendToExisting(id domain.CartID, item domain.LineItem) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[id] = append(s.carts[id], item)
	return s.snapshotLocked(id)
}

// UpdateQuantity replaces the quantity of every line item for itemID in the named cart.
//
// It returns ErrEmptyCart when the store holds no carts at all, regardless of which cart was
// named, and ErrNotFound when the cart has no line item for itemID. The store is unchanged on
// failure.
func (s *Store) UpdateQuantity(id domain.CartID, itemID int64, quantity int) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.carts) == 0 {
		return domain.Cart{}, fmt.Errorf("%w: did not update order with cart id %d", ports.ErrEmptyCart, id)
	}

	items := s.carts[id]
	updated := 0
	for i := range items {
		if items[i].ItemID() == itemID {
			items[i].Quantity = quantity
			updated++
		}
	}
	if updated == 0 {
		return domain.Cart{}, fmt.Errorf("%w: item %d is not in cart %d", ports.ErrNotFound, itemID, id)
	}

	return s.snapshotLocked(id), nil
}

// Submit atomically removes and returns every line item of the named cart.
func (s *Store) Submit(id domain.CartID) []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[id]
	delete(s.carts, id)
	if items == nil {
		return []domain.LineItem{}
	}
	return items
}

// Get returns a snapshot of the named cart. Unknown carts are returned empty.
func (s *Store) Get(id domain.CartID) domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(id)
}

// IsEmpty reports whether no cart holds any line item.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts) == 0
}

// SweepResult counts what a sweep removed.
type SweepResult struct {
	EvictedLineItems int
	RemovedCarts     int
}

// SweepExpired removes every line item older than timeout and then drops emptied carts.
// A line item whose age equals timeout is kept.
func (s *Store) SweepExpired(now time.Time, timeout time.Duration) SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SweepResult
	for id, items := range s.carts {
		kept := items[:0]
		for _, item := range items {
			if item.Age(now) > timeout {
				result.EvictedLineItems++
				continue
			}
			kept = append(kept, item)
		}
		clear(items[len(kept):])
		if len(kept) == 0 {
			delete(s.carts, id)
			result.RemovedCarts++
			continue
		}
		s.carts[id] = kept
	}
	return result
}

// Enumerate returns a snapshot of every non-empty cart ordered by id.
func (s *Store) Enumerate() []domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	carts := make([]domain.Cart, 0, len(s.carts))
	for id := range s.carts {
		carts = append(carts, s.snapshotLocked(id))
	}
	slices.SortFunc(carts, func(a, b domain.Cart) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return carts
}

func (s *Store) snapshotLocked(id domain.CartID) domain.Cart {
	items := make([]domain.LineItem, len(s.carts[id]))
	copy(items, s.carts[id])
	return domain.Cart{ID: id, Items: items}
}
