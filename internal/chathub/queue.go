package chathub

import (
	"fmt"
	"sync"
	"time"

	"guardedheart/backend/internal/models"
)

// PendingQueue is the ordered set of users waiting for a therapist. Strict
// FIFO by enqueue timestamp, insertion order breaking ties. At most one entry
// per user id.
type PendingQueue struct {
	mu      sync.Mutex
	entries []models.PendingUser
	index   map[string]struct{}
}

func NewPendingQueue() *PendingQueue {
	return &PendingQueue{index: make(map[string]struct{})}
}

// Enqueue inserts the user behind everyone with an equal or older timestamp.
// Arrival order and timestamp order can disagree: the timestamp comes from the
// intake row, and websockets do not attach in intake order. A reconnecting user
// carries their original timestamp and so gets their earned place back. A
// second enqueue for a queued user id fails with ErrAlreadyQueued.
func (q *PendingQueue) Enqueue(p models.PendingUser) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[p.UserID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyQueued, p.UserID)
	}
	if p.EnqueuedAt.IsZero() {
		p.EnqueuedAt = time.Now()
	}
	i := len(q.entries)
	for i > 0 && q.entries[i-1].EnqueuedAt.After(p.EnqueuedAt) {
		i--
	}
	q.entries = append(q.entries, models.PendingUser{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = p
	q.index[p.UserID] = struct{}{}
	return nil
}

// RequeueFront puts a user back at the head of the queue. Used when a match
// is rolled back, so a user who already waited does not start over.
func (q *PendingQueue) RequeueFront(p models.PendingUser) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[p.UserID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyQueued, p.UserID)
	}
	q.entries = append([]models.PendingUser{p}, q.entries...)
	q.index[p.UserID] = struct{}{}
	return nil
}

// Remove drops the entry for userID. Idempotent: removing an absent id
// returns false, never an error.
func (q *PendingQueue) Remove(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[userID]; !ok {
		return false
	}
	delete(q.index, userID)
	for i, e := range q.entries {
		if e.UserID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// PeekOldest returns the head of the queue without removing it.
func (q *PendingQueue) PeekOldest() (models.PendingUser, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return models.PendingUser{}, false
	}
	return q.entries[0], true
}

// DequeueOldest removes and returns the head of the queue.
func (q *PendingQueue) DequeueOldest() (models.PendingUser, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return models.PendingUser{}, false
	}
	p := q.entries[0]
	q.entries = q.entries[1:]
	delete(q.index, p.UserID)
	return p, true
}

// DequeueFirst removes and returns the oldest entry satisfying pred, leaving
// the rest of the queue untouched.
func (q *PendingQueue) DequeueFirst(pred func(models.PendingUser) bool) (models.PendingUser, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if pred(e) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			delete(q.index, e.UserID)
			return e, true
		}
	}
	return models.PendingUser{}, false
}

// GetByUserID returns the entry for userID, if queued.
func (q *PendingQueue) GetByUserID(userID string) (models.PendingUser, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[userID]; !ok {
		return models.PendingUser{}, false
	}
	for _, e := range q.entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return models.PendingUser{}, false
}

func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns the queued entries oldest first.
func (q *PendingQueue) Snapshot() []models.PendingUser {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingUser, len(q.entries))
	copy(out, q.entries)
	return out
}
