package chathub

import "guardedheart/backend/internal/models"

// ConnState is the per-participant connection state held by the Registry.
// It is transitioned exclusively through Register/Activate/Unregister; no
// call site keeps its own "already connected" flag.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client is the interface for any type of participant connection. It
// abstracts the underlying transport so the hub can treat user and therapist
// channels uniformly.
type Client interface {
	// GetParticipantID returns the unique identifier of the participant
	// behind this connection.
	GetParticipantID() string
	// GetRole reports which side of a conversation this participant is on.
	GetRole() models.Role
	// GetDisplayName returns the name shown to the other participant.
	GetDisplayName() string

	// GetSendChannel returns the channel the hub writes outbound messages
	// to. Its consumer is the single dedicated writer of the connection, so
	// delivery order matches send order.
	GetSendChannel() chan<- models.ChatMessage

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the connection and its channels. Safe to call twice.
	Close()
}
