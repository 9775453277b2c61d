package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingUser is a user waiting to be matched with a therapist. The row is
// created when the user starts a session and removed either when a match is
// made or when the user leaves on their own.
type PendingUser struct {
	ID string `gorm:"primaryKey" json:"id"`
	// UserID is the anonymous user behind this entry. At most one pending
	// entry may exist per user.
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`
	// Name is the display name. Defaulted to a random pseudonym when the
	// user left the field empty.
	Name string `gorm:"not null" json:"name"`
	// InitialMessage is what the user wrote on the intake form, or the
	// predefined text when left empty.
	InitialMessage string    `gorm:"not null" json:"initial_message"`
	EnqueuedAt     time.Time `gorm:"autoCreateTime" json:"enqueued_at"`
}

func (p *PendingUser) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

// OnlineTherapist marks a therapist whose console is currently connected.
type OnlineTherapist struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	TherapistID string    `gorm:"uniqueIndex;not null" json:"therapist_id"`
	OnlineSince time.Time `gorm:"autoCreateTime" json:"online_since"`
}

func (o *OnlineTherapist) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return
}
