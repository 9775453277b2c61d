package models

// ConnectionSender is the reserved value of ChatMessage.Name that marks a
// lifecycle event rather than a participant message.
const ConnectionSender = "CONNECTION"

// Reserved event tokens carried in ChatMessage.Message when Name is
// ConnectionSender.
const (
	EventInitializeChat = "INITIALIZE_CHAT"
	EventTherapistLeave = "THERAPIST_LEAVE_CHAT"
	EventUserLeave      = "USER_LEAVE_CHAT"
)

// ChatMessage is the wire shape exchanged over the websocket, identical in
// both directions. Name is either a display name or ConnectionSender.
type ChatMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// IsConnectionEvent reports whether the message is a reserved lifecycle event.
func (m ChatMessage) IsConnectionEvent() bool {
	return m.Name == ConnectionSender
}

// Role identifies which side of a conversation a participant is on.
type Role string

const (
	RoleUser      Role = "user"
	RoleTherapist Role = "therapist"
)
