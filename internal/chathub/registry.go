package chathub

import (
	"fmt"
	"sync"

	"guardedheart/backend/internal/models"
)

// LivenessEvent is emitted whenever a participant becomes live or stops
// being live. The hub is the single consumer and fans the information out to
// the queue, directory and lifecycle manager.
type LivenessEvent struct {
	ParticipantID string
	Role          models.Role
	Live          bool
}

// Registry owns the set of live participant channels. It guarantees at most
// one live handle per participant id.
type Registry struct {
	mu      sync.Mutex
	clients map[string]Client
	states  map[string]ConnState

	events chan LivenessEvent
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		states:  make(map[string]ConnState),
		events:  make(chan LivenessEvent, 64),
	}
}

// Events is the liveness notification stream. Single consumer.
func (r *Registry) Events() <-chan LivenessEvent {
	return r.events
}

// Register stores the client in state connecting. A second register for a
// participant that is connecting or connected fails with ErrAlreadyConnected.
func (r *Registry) Register(c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.GetParticipantID()
	if st := r.states[id]; st != StateDisconnected {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyConnected, id, st)
	}
	r.clients[id] = c
	r.states[id] = StateConnecting
	return nil
}

// Activate moves a connecting participant to connected and emits a live
// event. Returns false if the participant is not in state connecting.
func (r *Registry) Activate(participantID string) bool {
	r.mu.Lock()
	c, ok := r.clients[participantID]
	if !ok || r.states[participantID] != StateConnecting {
		r.mu.Unlock()
		return false
	}
	r.states[participantID] = StateConnected
	r.mu.Unlock()

	r.events <- LivenessEvent{ParticipantID: participantID, Role: c.GetRole(), Live: true}
	return true
}

// Unregister removes the participant's handle, closes it, and emits a
// not-live event. Unregistering an absent participant returns false.
func (r *Registry) Unregister(participantID string) bool {
	r.mu.Lock()
	c, ok := r.clients[participantID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	wasLive := r.states[participantID] == StateConnected
	delete(r.clients, participantID)
	delete(r.states, participantID)
	r.mu.Unlock()

	c.Close()
	if wasLive {
		r.events <- LivenessEvent{ParticipantID: participantID, Role: c.GetRole(), Live: false}
	}
	return true
}

// IsLive reports whether the participant has a connected channel.
func (r *Registry) IsLive(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[participantID] == StateConnected
}

// State returns the participant's connection state.
func (r *Registry) State(participantID string) ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[participantID]
}

// Send delivers a message to the participant's channel. It never blocks: an
// absent or not-connected participant fails with ErrNotConnected, and so does
// a participant whose outbound buffer is full (a consumer that far behind is
// as good as gone; the read pump will unregister it shortly).
func (r *Registry) Send(participantID string, msg models.ChatMessage) error {
	// The channel write stays under the lock so it cannot race the Close
	// in Unregister. It is non-blocking, so the lock is held only briefly.
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[participantID]
	if !ok || r.states[participantID] != StateConnected {
		return fmt.Errorf("%w: %s", ErrNotConnected, participantID)
	}

	select {
	case c.GetSendChannel() <- msg:
		return nil
	default:
		return fmt.Errorf("%w: %s send buffer full", ErrNotConnected, participantID)
	}
}
