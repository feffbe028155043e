package batch

import (
	"errors"
	"sync"

	"github.com/apexwatch/face-enroll/internal/enrollment"
)

var (
	// ErrItemNotFound means the referenced item is not in the queue.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemBusy means the referenced item is mid-processing and cannot be
	// removed or edited until its enrollment call finishes.
	ErrItemBusy = errors.New("item is being processed")
)

// Queue is the ordered, in-memory collection of upload items. Insertion
// order is processing order. The queue is the single shared mutable
// structure of the pipeline; all access goes through its methods and every
// read hands out snapshot copies.
type Queue struct {
	mu     sync.RWMutex
	items  []*Item
	hashes map[string]string // content hash -> item id
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		hashes: make(map[string]string),
	}
}

// Add appends items to the end of the queue, preserving their relative
// order, and registers their content hashes for duplicate screening.
func (q *Queue) Add(items ...*Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range items {
		q.items = append(q.items, it)
		if it.Hash != "" {
			q.hashes[it.Hash] = it.ID
		}
	}
}

// Get returns a snapshot of one item.
func (q *Queue) Get(id string) (Item, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, it := range q.items {
		if it.ID == id {
			return *it, true
		}
	}
	return Item{}, false
}

// Items returns snapshots of all items in queue order.
func (q *Queue) Items() []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()
	items := make([]Item, len(q.items))
	for i, it := range q.items {
		items[i] = *it
	}
	return items
}

// Remove deletes one item and releases its preview. Removing an item whose
// enrollment call is in flight is rejected with ErrItemBusy.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it.ID != id {
			continue
		}
		if it.Status == StatusProcessing {
			return ErrItemBusy
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		delete(q.hashes, it.Hash)
		if it.Preview != nil {
			it.Preview.Release()
		}
		return nil
	}
	return ErrItemNotFound
}

// Clear removes every item and releases every preview. The controller
// guards against clearing while a run is active.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.Preview != nil {
			it.Preview.Release()
		}
	}
	q.items = nil
	q.hashes = make(map[string]string)
}

// UpdateMetadata merges a caller edit into one item. Only pending items may
// be edited; anything else is rejected with ErrItemBusy.
func (q *Queue) UpdateMetadata(id string, patch MetadataPatch) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.ID != id {
			continue
		}
		if it.Status != StatusPending {
			return Item{}, ErrItemBusy
		}
		if patch.DisplayName != nil {
			it.DisplayName = *patch.DisplayName
		}
		if patch.Department != nil {
			it.Department = *patch.Department
		}
		if patch.AccessLevel != nil {
			it.AccessLevel = *patch.AccessLevel
		}
		return *it, nil
	}
	return Item{}, ErrItemNotFound
}

// ResetFailed transitions every failed item back to pending and clears its
// error message. Success and pending items are untouched and nothing is
// reordered. Returns the number of items reset.
func (q *Queue) ResetFailed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	reset := 0
	for _, it := range q.items {
		if it.Status == StatusFailed {
			it.Status = StatusPending
			it.ErrorMessage = ""
			reset++
		}
	}
	return reset
}

// Stats derives the aggregate counts from the current item list.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	stats := Stats{Total: len(q.items)}
	for _, it := range q.items {
		switch it.Status {
		case StatusPending:
			stats.Pending++
		case StatusProcessing:
			stats.Processing++
		case StatusSuccess:
			stats.Success++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// HasPending reports whether at least one item is waiting to be processed.
func (q *Queue) HasPending() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, it := range q.items {
		if it.Status == StatusPending {
			return true
		}
	}
	return false
}

// containsHash reports whether an item with the given content hash is
// already queued.
func (q *Queue) containsHash(hash string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.hashes[hash]
	return ok
}

// markNextProcessing claims the first pending item for the controller: it
// flips the item to processing and returns a snapshot with the metadata
// frozen at claim time, so later caller edits cannot race the enrollment
// request.
func (q *Queue) markNextProcessing() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.Status == StatusPending {
			it.Status = StatusProcessing
			return *it, true
		}
	}
	return Item{}, false
}

// markSuccess records a successful enrollment for an item.
func (q *Queue) markSuccess(id string, result *enrollment.Identity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.ID == id {
			it.Status = StatusSuccess
			it.Result = result
			it.ErrorMessage = ""
			return
		}
	}
}

// markFailed records a failed enrollment for an item.
func (q *Queue) markFailed(id, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.ID == id {
			it.Status = StatusFailed
			it.ErrorMessage = message
			it.Result = nil
			return
		}
	}
}
