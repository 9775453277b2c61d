package models

import (
	"time"

	"gorm.io/gorm"
)

// ActiveConversation is the persisted record of a live user/therapist pairing.
// It mirrors the in-memory conversation held by the chathub; the row is closed
// (IsActive=false, EndedAt set) when either side leaves. Closed rows stay, so
// the at-most-one-conversation constraint is a partial index over active ones.
type ActiveConversation struct {
	ID             string `gorm:"primaryKey" json:"id"`
	UserID         string `gorm:"uniqueIndex:uidx_conversation_live_user,where:is_active;not null" json:"user_id"`
	UserName       string `gorm:"not null" json:"user_name"`
	InitialMessage string `gorm:"not null" json:"initial_message"`
	TherapistID    string `gorm:"uniqueIndex:uidx_conversation_live_therapist,where:is_active;not null" json:"therapist_id"`
	TherapistName  string `gorm:"not null" json:"therapist_name"`
	IsActive       bool   `gorm:"not null" json:"is_active"`
	StartedAt      time.Time
	EndedAt        *time.Time
}

// ChatTranscript is one relayed message, stored for the record after it has
// been delivered. The relay never reads transcripts back; there is no replay.
type ChatTranscript struct {
	gorm.Model

	ConversationID string `gorm:"type:uuid;not null;index:idx_conv_msg"`
	SenderID       string `gorm:"type:text;not null;index:idx_conv_msg"`
	SenderName     string `gorm:"type:text;not null"`
	Body           string `gorm:"type:text;not null"`
}
