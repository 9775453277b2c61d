package chathub

import (
	"fmt"
	"log"

	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"
)

// RelayService forwards application messages between the two participants of
// a conversation and translates leave intents into connection events. There
// is no buffering: a message for a participant without a live channel fails
// immediately.
type RelayService struct {
	Registry  *Registry
	Lifecycle *LifecycleManager
	Storage   storage.Storage
}

func NewRelayService(registry *Registry, lifecycle *LifecycleManager, s storage.Storage) *RelayService {
	return &RelayService{Registry: registry, Lifecycle: lifecycle, Storage: s}
}

// Establish activates a connecting conversation and announces it to both
// sides with INITIALIZE_CHAT. Any failure is returned to the matcher, which
// rolls the match back.
func (r *RelayService) Establish(conv *Conversation) error {
	if !r.Registry.IsLive(conv.UserID) {
		return fmt.Errorf("establish %s: user: %w", conv.ID, ErrNotConnected)
	}
	if !r.Registry.IsLive(conv.TherapistID) {
		return fmt.Errorf("establish %s: therapist: %w", conv.ID, ErrNotConnected)
	}

	if err := r.Lifecycle.Activate(conv.ID); err != nil {
		return err
	}

	init := models.ChatMessage{
		Name:    models.ConnectionSender,
		Message: models.EventInitializeChat,
	}
	if err := r.Registry.Send(conv.TherapistID, init); err != nil {
		return fmt.Errorf("establish %s: %w", conv.ID, err)
	}
	if err := r.Registry.Send(conv.UserID, init); err != nil {
		return fmt.Errorf("establish %s: %w", conv.ID, err)
	}
	return nil
}

// Forward delivers a message from one participant to the other. Only valid
// while the conversation is active; per-sender ordering is preserved because
// each sender's messages arrive here on its single read pump.
func (r *RelayService) Forward(conversationID, fromParticipant, body string) error {
	conv, ok := r.Lifecycle.Get(conversationID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotActive, conversationID)
	}
	if conv.State() != ConvActive {
		return fmt.Errorf("%w: %s is %s", ErrConversationNotActive, conversationID, conv.State())
	}

	peer, ok := conv.PeerOf(fromParticipant)
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrNotParticipant, fromParticipant, conversationID)
	}
	name, _ := conv.NameOf(fromParticipant)

	msg := models.ChatMessage{Name: name, Message: body}
	if err := r.Registry.Send(peer, msg); err != nil {
		return err
	}

	// Record keeping happens after delivery and never blocks it.
	if err := r.Storage.SaveTranscript(&models.ChatTranscript{
		ConversationID: conversationID,
		SenderID:       fromParticipant,
		SenderName:     name,
		Body:           body,
	}); err != nil {
		log.Printf("WARNING: transcript write failed for %s: %v", conversationID, err)
	}
	if err := r.Storage.PublishMessage(conversationID, msg); err != nil {
		log.Printf("WARNING: transcript publish failed for %s: %v", conversationID, err)
	}
	return nil
}

// SignalLeave emits the appropriate leave event to the remaining participant
// and ends the conversation. Used both for explicit leave messages and for
// abrupt connection drops.
func (r *RelayService) SignalLeave(conversationID, fromParticipant string) error {
	conv, ok := r.Lifecycle.Get(conversationID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotActive, conversationID)
	}
	role, ok := conv.RoleOf(fromParticipant)
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrNotParticipant, fromParticipant, conversationID)
	}

	event := models.EventUserLeave
	if role == models.RoleTherapist {
		event = models.EventTherapistLeave
	}

	peer, _ := conv.PeerOf(fromParticipant)
	notice := models.ChatMessage{Name: models.ConnectionSender, Message: event}
	if err := r.Registry.Send(peer, notice); err != nil {
		// The peer may be gone too; the conversation still has to end.
		log.Printf("Leave notice for %s undeliverable: %v", conversationID, err)
	}

	r.Lifecycle.End(conversationID)
	return nil
}
