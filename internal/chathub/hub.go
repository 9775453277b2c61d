// Package chathub is the in-memory pairing and relay core: the registry of
// live connections, the waiting-user queue, the online-therapist directory,
// the matcher that pairs the two, and the per-conversation relay. Everything
// here is single-process state; the storage package only mirrors it.
package chathub

import (
	"context"
	"errors"
	"log"
	"time"

	"guardedheart/backend/internal/config"
	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"
)

// WaitAlerter is notified when a user starts waiting while no therapist is
// available. Implemented by the telegram ops notifier; optional.
type WaitAlerter interface {
	NotifyWaiting(waitingCount int)
}

// Hub wires the core components together and runs the event loop that
// consumes liveness notifications and drives the matcher.
type Hub struct {
	Registry  *Registry
	Queue     *PendingQueue
	Directory *Directory
	Lifecycle *LifecycleManager
	Relay     *RelayService
	Matcher   *MatcherService
	Storage   storage.Storage

	Alerter WaitAlerter

	matchCh chan struct{}
}

func NewHub(s storage.Storage) *Hub {
	registry := NewRegistry()
	queue := NewPendingQueue()
	directory := NewDirectory()
	lifecycle := NewLifecycleManager(directory, s)
	relay := NewRelayService(registry, lifecycle, s)
	matcher := NewMatcherService(queue, directory, registry, lifecycle, relay, s)

	h := &Hub{
		Registry:  registry,
		Queue:     queue,
		Directory: directory,
		Lifecycle: lifecycle,
		Relay:     relay,
		Matcher:   matcher,
		Storage:   s,
		matchCh:   make(chan struct{}, 1),
	}
	lifecycle.SetTherapistFreedHook(h.KickMatcher)
	return h
}

// KickMatcher schedules a match attempt. Never blocks; attempts coalesce.
func (h *Hub) KickMatcher() {
	select {
	case h.matchCh <- struct{}{}:
	default:
	}
}

// Run is the hub's event loop. It owns all reactions to liveness changes and
// all matcher scheduling; run it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Println("Chat hub started.")
	ticker := time.NewTicker(config.MatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Chat hub stopping.")
			return
		case ev := <-h.Registry.Events():
			h.handleLiveness(ev)
		case <-h.matchCh:
			h.Matcher.MatchAll()
		case <-ticker.C:
			h.housekeep()
			h.Matcher.MatchAll()
		}
	}
}

// ConnectUser registers a user's channel and puts them in the waiting queue.
// Rejects duplicate connections for the same user id.
func (h *Hub) ConnectUser(c Client, pending models.PendingUser) error {
	if err := h.Registry.Register(c); err != nil {
		return err
	}
	c.Run()
	h.Registry.Activate(pending.UserID)

	// A reconnect that races the teardown of a previous conversation may
	// still find the user bound; they will be back once the drop event is
	// processed, so only queue the unbound.
	if _, bound := h.Lifecycle.ByParticipant(pending.UserID); !bound {
		if err := h.Queue.Enqueue(pending); err != nil && !errors.Is(err, ErrAlreadyQueued) {
			return err
		}
		if err := h.Storage.MirrorEnqueue(pending.UserID, pending.EnqueuedAt); err != nil {
			log.Printf("WARNING: queue mirror add failed for %s: %v", pending.UserID, err)
		}
		if h.Alerter != nil && !h.Directory.AnyAvailable() {
			go h.Alerter.NotifyWaiting(h.Queue.Len())
		}
	}

	h.KickMatcher()
	return nil
}

// ConnectTherapist registers a therapist console and marks them available.
func (h *Hub) ConnectTherapist(c Client) error {
	therapistID := c.GetParticipantID()
	if err := h.Registry.Register(c); err != nil {
		return err
	}
	c.Run()
	h.Registry.Activate(therapistID)

	if err := h.Directory.MarkOnline(therapistID, c.GetDisplayName()); err != nil {
		// A stale entry can linger between a drop and its liveness event;
		// the fresh connection supersedes it.
		h.Directory.MarkOffline(therapistID)
		if err := h.Directory.MarkOnline(therapistID, c.GetDisplayName()); err != nil {
			h.Registry.Unregister(therapistID)
			return err
		}
	}
	if _, err := h.Storage.CreateOnlineTherapist(therapistID); err != nil {
		log.Printf("WARNING: online-therapist row for %s: %v", therapistID, err)
	}

	log.Printf("Therapist %s online", therapistID)
	h.KickMatcher()
	return nil
}

// Disconnect drops the participant's channel. Queue, directory and lifecycle
// consequences follow from the liveness event this emits.
func (h *Hub) Disconnect(participantID string) {
	h.Registry.Unregister(participantID)
}

// LeaveUser is a user's voluntary exit: before a match it clears the waiting
// entry and the pending row, during a conversation it signals the leave.
func (h *Hub) LeaveUser(userID string) {
	if conv, ok := h.Lifecycle.ByParticipant(userID); ok {
		if err := h.Relay.SignalLeave(conv.ID, userID); err != nil {
			log.Printf("Leave of %s from %s: %v", userID, conv.ID, err)
		}
	}
	h.removeWaiting(userID, true)
	h.Registry.Unregister(userID)
}

// HandleIncoming routes one decoded message from a participant's read pump.
func (h *Hub) HandleIncoming(c Client, msg models.ChatMessage) {
	id := c.GetParticipantID()

	if msg.IsConnectionEvent() {
		switch msg.Message {
		case models.EventUserLeave, models.EventTherapistLeave:
			if conv, ok := h.Lifecycle.ByParticipant(id); ok {
				if err := h.Relay.SignalLeave(conv.ID, id); err != nil {
					log.Printf("Leave of %s from %s: %v", id, conv.ID, err)
				}
			} else if c.GetRole() == models.RoleUser {
				h.removeWaiting(id, true)
			}
		default:
			log.Printf("Ignoring connection event %q from %s", msg.Message, id)
		}
		return
	}

	conv, ok := h.Lifecycle.ByParticipant(id)
	if !ok {
		log.Printf("Message from %s dropped: no active conversation", id)
		return
	}
	if err := h.Relay.Forward(conv.ID, id, msg.Message); err != nil {
		log.Printf("Forward from %s in %s failed: %v", id, conv.ID, err)
	}
}

// RecoverState reconciles the redis queue mirror at boot. Connections do not
// survive a restart, so anything mirrored is stale and is cleared; the rows
// in the store remain, and users re-enter the queue when they reconnect.
func (h *Hub) RecoverState() {
	ids, err := h.Storage.MirrorPendingUserIDs()
	if err != nil {
		log.Printf("ERROR: Failed to read queue mirror: %v", err)
		return
	}
	for _, id := range ids {
		if err := h.Storage.MirrorRemove(id); err != nil {
			log.Printf("WARNING: stale mirror entry %s: %v", id, err)
		}
	}
	if len(ids) > 0 {
		log.Printf("Cleared %d stale waiting entries from the queue mirror.", len(ids))
	}
}

func (h *Hub) handleLiveness(ev LivenessEvent) {
	if ev.Live {
		h.KickMatcher()
		return
	}

	// A drop during a conversation counts as a leave.
	if conv, ok := h.Lifecycle.ByParticipant(ev.ParticipantID); ok {
		if err := h.Relay.SignalLeave(conv.ID, ev.ParticipantID); err != nil {
			log.Printf("Drop of %s in %s: %v", ev.ParticipantID, conv.ID, err)
		}
	}

	switch ev.Role {
	case models.RoleUser:
		// The waiting entry goes, the pending row stays: the user may
		// reconnect and resume waiting.
		h.removeWaiting(ev.ParticipantID, false)
	case models.RoleTherapist:
		if h.Directory.MarkOffline(ev.ParticipantID) {
			log.Printf("Therapist %s offline", ev.ParticipantID)
		}
		if err := h.Storage.DeleteOnlineTherapist(ev.ParticipantID); err != nil {
			log.Printf("WARNING: online-therapist row delete for %s: %v", ev.ParticipantID, err)
		}
	}
}

// removeWaiting clears a user's queue entry and mirror entry; when purgeRow
// is set (voluntary leave) the store row goes too.
func (h *Hub) removeWaiting(userID string, purgeRow bool) {
	if h.Queue.Remove(userID) {
		if err := h.Storage.MirrorRemove(userID); err != nil {
			log.Printf("WARNING: queue mirror remove failed for %s: %v", userID, err)
		}
	}
	if purgeRow {
		if err := h.Storage.RemovePendingUserByUserID(userID); err != nil {
			log.Printf("ERROR: Failed to remove pending row for %s: %v", userID, err)
		}
	}
}

// housekeep enforces the consistency invariant between registry liveness and
// queue/directory membership, catching anything a lost event left behind.
func (h *Hub) housekeep() {
	for _, p := range h.Queue.Snapshot() {
		if !h.Registry.IsLive(p.UserID) {
			h.removeWaiting(p.UserID, false)
		}
	}
	for _, t := range h.Directory.Snapshot() {
		if h.Registry.IsLive(t.TherapistID) {
			continue
		}
		if conv, ok := h.Lifecycle.ByParticipant(t.TherapistID); ok {
			if err := h.Relay.SignalLeave(conv.ID, t.TherapistID); err != nil {
				log.Printf("Housekeeping leave for %s: %v", t.TherapistID, err)
			}
		}
		if h.Directory.MarkOffline(t.TherapistID) {
			log.Printf("Housekeeping: therapist %s purged", t.TherapistID)
		}
		if err := h.Storage.DeleteOnlineTherapist(t.TherapistID); err != nil {
			log.Printf("WARNING: online-therapist row delete for %s: %v", t.TherapistID, err)
		}
	}
}
