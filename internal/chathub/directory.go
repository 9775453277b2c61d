package chathub

import (
	"fmt"
	"sync"
	"time"
)

// TherapistEntry is a therapist currently online, as tracked by the
// Directory.
type TherapistEntry struct {
	TherapistID string
	Name        string
	OnlineSince time.Time
	// Busy is set while the therapist is bound to a conversation.
	Busy bool
}

// Directory is the set of therapists whose consoles are connected. A
// therapist is available when online and not bound to a conversation.
type Directory struct {
	mu      sync.Mutex
	entries []*TherapistEntry
	index   map[string]*TherapistEntry
}

func NewDirectory() *Directory {
	return &Directory{index: make(map[string]*TherapistEntry)}
}

// MarkOnline adds the therapist. A second mark for an online therapist fails
// with ErrAlreadyOnline.
func (d *Directory) MarkOnline(therapistID, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[therapistID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyOnline, therapistID)
	}
	e := &TherapistEntry{
		TherapistID: therapistID,
		Name:        name,
		OnlineSince: time.Now(),
	}
	d.entries = append(d.entries, e)
	d.index[therapistID] = e
	return nil
}

// MarkOffline removes the therapist. Idempotent, returns false when absent.
func (d *Directory) MarkOffline(therapistID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[therapistID]; !ok {
		return false
	}
	delete(d.index, therapistID)
	for i, e := range d.entries {
		if e.TherapistID == therapistID {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			break
		}
	}
	return true
}

func (d *Directory) IsOnline(therapistID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[therapistID]
	return ok
}

// IsAvailable reports whether the therapist is online and not in a
// conversation.
func (d *Directory) IsAvailable(therapistID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.index[therapistID]
	return ok && !e.Busy
}

func (d *Directory) AnyAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if !e.Busy {
			return true
		}
	}
	return false
}

// ReserveAvailable atomically picks the longest-online available therapist
// and marks them busy. The caller must Release on any path that does not end
// in an active conversation.
func (d *Directory) ReserveAvailable() (TherapistEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range d.entries {
		if !e.Busy {
			e.Busy = true
			return *e, true
		}
	}
	return TherapistEntry{}, false
}

// Release clears the busy mark, returning the therapist to available.
// Returns false when the therapist has gone offline in the meantime.
func (d *Directory) Release(therapistID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[therapistID]
	if !ok {
		return false
	}
	e.Busy = false
	return true
}

// Snapshot returns the online therapists, longest-online first.
func (d *Directory) Snapshot() []TherapistEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TherapistEntry, len(d.entries))
	for i, e := range d.entries {
		out[i] = *e
	}
	return out
}
