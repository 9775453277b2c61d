package chathub

import "errors"

var (
	// ErrNotConnected: the target participant has no live channel.
	ErrNotConnected = errors.New("participant not connected")
	// ErrAlreadyConnected: a second register arrived for a live participant id.
	ErrAlreadyConnected = errors.New("participant already connected")
	// ErrConversationNotActive: forward or leave on a conversation that is
	// not in the active state (or does not exist).
	ErrConversationNotActive = errors.New("conversation not active")
	// ErrAlreadyQueued: a second enqueue arrived for a queued user id.
	ErrAlreadyQueued = errors.New("user already queued")
	// ErrAlreadyOnline: a second online-mark arrived for an online therapist.
	ErrAlreadyOnline = errors.New("therapist already online")
	// ErrNotParticipant: the sender is not a participant of the conversation.
	ErrNotParticipant = errors.New("not a conversation participant")
)
