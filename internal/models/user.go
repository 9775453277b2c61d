package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is an anonymous help-seeker. A row exists for every person who ever
// started a session; it carries no personal data beyond the generated UUID.
type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"-"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when the row is
// created without one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Therapist is a counselor account. Therapists authenticate with a short
// access code handed out offline; there is no password flow.
type Therapist struct {
	ID string `gorm:"primaryKey" json:"id"`
	// Code is the login code the therapist types into the console.
	Code string `gorm:"uniqueIndex;not null" json:"-"`
	// Name is shown to users in place of the therapist's real identity.
	Name string `gorm:"not null" json:"name"`
	// Specialties are informational tags; they do not influence matching.
	Specialties pq.StringArray `gorm:"type:text[]" json:"specialties"`
	// TotalConversations counts conversations this therapist has completed.
	TotalConversations int `gorm:"default:0" json:"total_conversations"`
}

func (t *Therapist) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}
