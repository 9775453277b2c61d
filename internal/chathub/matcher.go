package chathub

import (
	"log"
	"sync"

	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"

	"github.com/google/uuid"
)

func newConversationID() string {
	return uuid.New().String()
}

// MatcherService pairs the oldest waiting user with an available therapist.
// The whole peek/reserve/mutate/create sequence runs under one mutex, so
// concurrent TryMatch calls can never double-assign a participant.
type MatcherService struct {
	mu sync.Mutex

	Queue     *PendingQueue
	Directory *Directory
	Registry  *Registry
	Lifecycle *LifecycleManager
	Relay     *RelayService
	Storage   storage.Storage
}

func NewMatcherService(q *PendingQueue, d *Directory, r *Registry, lm *LifecycleManager, relay *RelayService, s storage.Storage) *MatcherService {
	return &MatcherService{
		Queue:     q,
		Directory: d,
		Registry:  r,
		Lifecycle: lm,
		Relay:     relay,
		Storage:   s,
	}
}

// TryMatch makes one pairing attempt. When either side is missing no state
// changes at all; a relay-establishment failure rolls everything back. Safe
// to call from any goroutine, as often as you like.
func (m *MatcherService) TryMatch() (*Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Reserve a therapist first: the queue stays untouched when nobody is
	// available. Entries whose connection died under us are purged here
	// rather than waiting for the housekeeping tick.
	var therapist TherapistEntry
	for {
		t, ok := m.Directory.ReserveAvailable()
		if !ok {
			return nil, false
		}
		if m.Registry.IsLive(t.TherapistID) {
			therapist = t
			break
		}
		m.Directory.MarkOffline(t.TherapistID)
	}

	// Oldest waiting user with a live channel. A user who enqueued and then
	// dropped is skipped, not matched.
	user, ok := m.Queue.DequeueFirst(func(p models.PendingUser) bool {
		return m.Registry.IsLive(p.UserID)
	})
	if !ok {
		m.Directory.Release(therapist.TherapistID)
		return nil, false
	}

	conv, err := m.Lifecycle.Create(user, therapist)
	if err != nil {
		log.Printf("ERROR: match aborted: %v", err)
		m.rollback(user, therapist, false)
		return nil, false
	}

	if err := m.Relay.Establish(conv); err != nil {
		log.Printf("Match %s rolled back: %v", conv.ID, err)
		m.Lifecycle.Abort(conv.ID)
		m.rollback(user, therapist, true)
		return nil, false
	}

	// The pairing is live; persist it and clear the waiting-room entry.
	// Store failures are logged, never fatal to the session.
	if err := m.Storage.CreateActiveConversation(&models.ActiveConversation{
		ID:             conv.ID,
		UserID:         conv.UserID,
		UserName:       conv.UserName,
		InitialMessage: conv.InitialMessage,
		TherapistID:    conv.TherapistID,
		TherapistName:  conv.TherapistName,
		IsActive:       true,
		StartedAt:      conv.StartedAt,
	}); err != nil {
		log.Printf("ERROR: Failed to persist conversation %s: %v", conv.ID, err)
	}
	if err := m.Storage.RemovePendingUserByUserID(user.UserID); err != nil {
		log.Printf("ERROR: Failed to remove pending row for %s: %v", user.UserID, err)
	}
	if err := m.Storage.MirrorRemove(user.UserID); err != nil {
		log.Printf("WARNING: queue mirror remove failed for %s: %v", user.UserID, err)
	}

	log.Printf("Matched user %s with therapist %s in conversation %s",
		conv.UserID, conv.TherapistID, conv.ID)
	return conv, true
}

// MatchAll pairs until either the queue or the directory runs dry.
func (m *MatcherService) MatchAll() int {
	n := 0
	for {
		if _, ok := m.TryMatch(); !ok {
			return n
		}
		n++
	}
}

// rollback undoes a failed pairing. The user goes back to the FRONT of the
// queue so they do not wait twice, unless their channel is gone: a leave
// observed during an in-flight match wins, and they are never re-enqueued.
func (m *MatcherService) rollback(user models.PendingUser, therapist TherapistEntry, announced bool) {
	if m.Registry.IsLive(user.UserID) {
		if err := m.Queue.RequeueFront(user); err != nil {
			log.Printf("ERROR: requeue of %s failed: %v", user.UserID, err)
		}
	} else if announced && m.Registry.IsLive(therapist.TherapistID) {
		// The therapist may already have seen INITIALIZE_CHAT; tell them
		// the user is gone so the console resets.
		notice := models.ChatMessage{
			Name:    models.ConnectionSender,
			Message: models.EventUserLeave,
		}
		if err := m.Registry.Send(therapist.TherapistID, notice); err != nil {
			log.Printf("Leave notice to therapist %s undeliverable: %v", therapist.TherapistID, err)
		}
	}

	if m.Registry.IsLive(therapist.TherapistID) {
		m.Directory.Release(therapist.TherapistID)
	} else {
		m.Directory.MarkOffline(therapist.TherapistID)
	}
}
