package inventory

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// PendingAddition records when a new catalog item was registered.
type PendingAddition struct {
	BookID       int64
	RegisteredAt time.Time
}

// PendingRegistry tracks catalog additions that are rolled back once they expire.
//
// It has its own lock and never touches the cart store, so the two sweeps cannot deadlock.
type PendingRegistry struct {
	mu      sync.Mutex
	pending map[int64]PendingAddition
}

// NewPendingRegistry constructs an empty registry.
func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{pending: make(map[int64]PendingAddition)}
}

// Register inserts or overwrites the pending record for bookID.
func (r *PendingRegistry) Register(bookID int64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[bookID] = PendingAddition{BookID: bookID, RegisteredAt: now}
}

// Discard drops the pending record for bookID without rolling it back.
func (r *PendingRegistry) Discard(bookID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, bookID)
}

// Get returns the pending record for bookID, if any.
func (r *PendingRegistry) Get(bookID int64) (PendingAddition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[bookID]
	return p, ok
}

// Len returns the number of pending records.
func (r *PendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// SweepResult lists the expired ids and which of their rollbacks failed.
type SweepResult struct {
	Expired []int64
	Failed  []int64
}

// SweepExpired calls onExpire for every record older than timeout and removes the record
// whether or not the callback succeeds. Records are visited in id order. Callback failures
// are combined into the returned error.
func (r *PendingRegistry) SweepExpired(now time.Time, timeout time.Duration, onExpire func(bookID int64) error) (SweepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []int64
	for id, p := range r.pending {
		if now.Sub(p.RegisteredAt) > timeout {
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)

	var (
		result SweepResult
		errs   error
	)
	for _, id := range expired {
		if onExpire != nil {
			if err := onExpire(id); err != nil {
				result.Failed = append(result.Failed, id)
				errs = multierr.Append(errs, fmt.Errorf("rollback book %d: %w", id, err))
			}
		}
		delete(r.pending, id)
		result.Expired = append(result.Expired, id)
	}
	return result, errs
}
