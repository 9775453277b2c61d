package chathub

import (
	"fmt"
	"log"
	"sync"
	"time"

	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"
)

// ConversationState is the lifecycle state of one conversation. Transitions
// are strictly forward: connecting -> active -> ended.
type ConversationState int

const (
	ConvConnecting ConversationState = iota
	ConvActive
	ConvEnded
)

func (s ConversationState) String() string {
	switch s {
	case ConvConnecting:
		return "connecting"
	case ConvActive:
		return "active"
	default:
		return "ended"
	}
}

// Conversation is one live user/therapist pairing. Participant fields are
// immutable after creation; only the state changes, under the manager's
// control.
type Conversation struct {
	ID             string
	UserID         string
	UserName       string
	InitialMessage string
	TherapistID    string
	TherapistName  string
	StartedAt      time.Time

	mu    sync.Mutex
	state ConversationState
}

func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PeerOf returns the other participant's id. ok is false when participantID
// is not part of this conversation.
func (c *Conversation) PeerOf(participantID string) (string, bool) {
	switch participantID {
	case c.UserID:
		return c.TherapistID, true
	case c.TherapistID:
		return c.UserID, true
	}
	return "", false
}

// RoleOf returns the participant's role within this conversation.
func (c *Conversation) RoleOf(participantID string) (models.Role, bool) {
	switch participantID {
	case c.UserID:
		return models.RoleUser, true
	case c.TherapistID:
		return models.RoleTherapist, true
	}
	return "", false
}

// NameOf returns the display name of the given participant.
func (c *Conversation) NameOf(participantID string) (string, bool) {
	switch participantID {
	case c.UserID:
		return c.UserName, true
	case c.TherapistID:
		return c.TherapistName, true
	}
	return "", false
}

// advance moves the state forward. Returns false on any attempt to move
// backward or out of ended.
func (c *Conversation) advance(to ConversationState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if to <= c.state {
		return false
	}
	c.state = to
	return true
}

// LifecycleManager tracks every conversation from creation to teardown and
// enforces that no participant is in two conversations at once.
type LifecycleManager struct {
	mu            sync.Mutex
	convs         map[string]*Conversation
	byParticipant map[string]*Conversation

	directory *Directory
	store     storage.Storage

	// onTherapistFreed is invoked after teardown returns a therapist to
	// available, so the matcher can try the next waiting user.
	onTherapistFreed func()
}

func NewLifecycleManager(directory *Directory, store storage.Storage) *LifecycleManager {
	return &LifecycleManager{
		convs:         make(map[string]*Conversation),
		byParticipant: make(map[string]*Conversation),
		directory:     directory,
		store:         store,
	}
}

func (lm *LifecycleManager) SetTherapistFreedHook(fn func()) {
	lm.onTherapistFreed = fn
}

// Create binds a new conversation in state connecting. Fails when either
// participant is already bound to a conversation.
func (lm *LifecycleManager) Create(user models.PendingUser, therapist TherapistEntry) (*Conversation, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if c, ok := lm.byParticipant[user.UserID]; ok {
		return nil, fmt.Errorf("user %s already in conversation %s", user.UserID, c.ID)
	}
	if c, ok := lm.byParticipant[therapist.TherapistID]; ok {
		return nil, fmt.Errorf("therapist %s already in conversation %s", therapist.TherapistID, c.ID)
	}

	conv := &Conversation{
		ID:             newConversationID(),
		UserID:         user.UserID,
		UserName:       user.Name,
		InitialMessage: user.InitialMessage,
		TherapistID:    therapist.TherapistID,
		TherapistName:  therapist.Name,
		StartedAt:      time.Now(),
		state:          ConvConnecting,
	}
	lm.convs[conv.ID] = conv
	lm.byParticipant[conv.UserID] = conv
	lm.byParticipant[conv.TherapistID] = conv
	return conv, nil
}

// Activate transitions connecting -> active.
func (lm *LifecycleManager) Activate(conversationID string) error {
	lm.mu.Lock()
	conv, ok := lm.convs[conversationID]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotActive, conversationID)
	}
	if !conv.advance(ConvActive) {
		return fmt.Errorf("%w: %s is %s", ErrConversationNotActive, conversationID, conv.State())
	}
	return nil
}

// Abort tears down a conversation that never reached active. No store
// writes happen: nothing was persisted yet. The matcher owns putting the
// participants back where they belong.
func (lm *LifecycleManager) Abort(conversationID string) {
	lm.mu.Lock()
	conv, ok := lm.convs[conversationID]
	if ok {
		delete(lm.convs, conversationID)
		delete(lm.byParticipant, conv.UserID)
		delete(lm.byParticipant, conv.TherapistID)
	}
	lm.mu.Unlock()
	if ok {
		conv.advance(ConvEnded)
	}
}

// End transitions the conversation to ended and releases everything it held:
// the record is unbound, the therapist reverts to available, the store row is
// closed and the therapist's counter bumped. Ending an unknown (already
// ended) conversation is a no-op.
func (lm *LifecycleManager) End(conversationID string) {
	lm.mu.Lock()
	conv, ok := lm.convs[conversationID]
	if ok {
		delete(lm.convs, conversationID)
		delete(lm.byParticipant, conv.UserID)
		delete(lm.byParticipant, conv.TherapistID)
	}
	lm.mu.Unlock()
	if !ok {
		return
	}

	wasActive := conv.State() == ConvActive
	conv.advance(ConvEnded)

	if wasActive {
		if err := lm.store.CloseActiveConversation(conv.ID); err != nil {
			log.Printf("ERROR: Failed to close conversation %s: %v", conv.ID, err)
		}
		if err := lm.store.IncrementTherapistConversations(conv.TherapistID); err != nil {
			log.Printf("ERROR: Failed to bump counter for therapist %s: %v", conv.TherapistID, err)
		}
	}

	freed := lm.directory.Release(conv.TherapistID)
	log.Printf("Conversation %s ended (user %s, therapist %s)", conv.ID, conv.UserID, conv.TherapistID)

	if freed && lm.onTherapistFreed != nil {
		lm.onTherapistFreed()
	}
}

// Get returns a conversation that has not ended yet.
func (lm *LifecycleManager) Get(conversationID string) (*Conversation, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	conv, ok := lm.convs[conversationID]
	return conv, ok
}

// ByParticipant returns the conversation the participant is bound to, if any.
func (lm *LifecycleManager) ByParticipant(participantID string) (*Conversation, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	conv, ok := lm.byParticipant[participantID]
	return conv, ok
}
