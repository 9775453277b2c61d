// Package storage is the profile store: thin CRUD against PostgreSQL plus a
// redis mirror of the pending queue and a pub/sub transcript feed. The chathub
// owns all matching and relay logic; nothing in here makes decisions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"guardedheart/backend/internal/config"
	"guardedheart/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("storage: record not found")

type Storage interface {
	CreateUser() (*models.User, error)
	CreatePendingUser(name, initialMessage string) (*models.PendingUser, error)
	GetPendingUserByUserID(userID string) (*models.PendingUser, error)
	GetAllPendingUsers() ([]models.PendingUser, error)
	RemovePendingUserByUserID(userID string) error

	GetTherapistByCode(code string) (*models.Therapist, error)
	GetTherapistByID(id string) (*models.Therapist, error)
	CreateOnlineTherapist(therapistID string) (*models.OnlineTherapist, error)
	DeleteOnlineTherapist(therapistID string) error
	IncrementTherapistConversations(therapistID string) error

	CreateActiveConversation(conv *models.ActiveConversation) error
	GetActiveConversationByID(id string) (*models.ActiveConversation, error)
	GetActiveConversationByUserID(userID string) (*models.ActiveConversation, error)
	CloseActiveConversation(id string) error

	SaveTranscript(t *models.ChatTranscript) error
	PublishMessage(conversationID string, msg models.ChatMessage) error

	MirrorEnqueue(userID string, enqueuedAt time.Time) error
	MirrorRemove(userID string) error
	MirrorPendingUserIDs() ([]string, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService constructor. rdb may be nil for tools that only need the
// database (the admin CLI); mirror and publish calls become no-ops then.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// CreateUser inserts an empty anonymous user row; the UUID is generated by
// the model hook.
func (s *Service) CreateUser() (*models.User, error) {
	user := &models.User{}
	if err := s.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePendingUser creates the anonymous user and its pending entry in one
// go. Name and initial message must already have defaults applied.
func (s *Service) CreatePendingUser(name, initialMessage string) (*models.PendingUser, error) {
	user, err := s.CreateUser()
	if err != nil {
		return nil, err
	}

	pending := &models.PendingUser{
		UserID:         user.ID,
		Name:           name,
		InitialMessage: initialMessage,
	}
	if err := s.DB.Create(pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *Service) GetPendingUserByUserID(userID string) (*models.PendingUser, error) {
	var pending models.PendingUser
	err := s.DB.Where("user_id = ?", userID).First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

// GetAllPendingUsers returns pending entries oldest first, for the therapist
// console waiting-room view.
func (s *Service) GetAllPendingUsers() ([]models.PendingUser, error) {
	var pending []models.PendingUser
	if err := s.DB.Order("enqueued_at asc").Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

// RemovePendingUserByUserID deletes the pending entry. Deleting an absent
// entry is not an error.
func (s *Service) RemovePendingUserByUserID(userID string) error {
	return s.DB.Where("user_id = ?", userID).Delete(&models.PendingUser{}).Error
}

func (s *Service) GetTherapistByCode(code string) (*models.Therapist, error) {
	var therapist models.Therapist
	err := s.DB.Where("code = ?", code).First(&therapist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &therapist, nil
}

func (s *Service) GetTherapistByID(id string) (*models.Therapist, error) {
	var therapist models.Therapist
	err := s.DB.Where("id = ?", id).First(&therapist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &therapist, nil
}

func (s *Service) CreateOnlineTherapist(therapistID string) (*models.OnlineTherapist, error) {
	online := &models.OnlineTherapist{TherapistID: therapistID}
	if err := s.DB.Create(online).Error; err != nil {
		return nil, err
	}
	return online, nil
}

func (s *Service) DeleteOnlineTherapist(therapistID string) error {
	return s.DB.Where("therapist_id = ?", therapistID).
		Delete(&models.OnlineTherapist{}).Error
}

// IncrementTherapistConversations bumps the completed-conversation counter
// when a conversation ends.
func (s *Service) IncrementTherapistConversations(therapistID string) error {
	return s.DB.Model(&models.Therapist{}).
		Where("id = ?", therapistID).
		UpdateColumn("total_conversations", gorm.Expr("total_conversations + 1")).Error
}

func (s *Service) CreateActiveConversation(conv *models.ActiveConversation) error {
	return s.DB.Create(conv).Error
}

func (s *Service) GetActiveConversationByID(id string) (*models.ActiveConversation, error) {
	var conv models.ActiveConversation
	err := s.DB.Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Service) GetActiveConversationByUserID(userID string) (*models.ActiveConversation, error) {
	var conv models.ActiveConversation
	err := s.DB.Where("user_id = ? AND is_active = ?", userID, true).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CloseActiveConversation marks the row ended. Closing an already-closed row
// is harmless.
func (s *Service) CloseActiveConversation(id string) error {
	return s.DB.Model(&models.ActiveConversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  time.Now(),
		}).Error
}

// SaveTranscript stores one relayed message.
func (s *Service) SaveTranscript(t *models.ChatTranscript) error {
	if err := s.DB.Create(t).Error; err != nil {
		log.Printf("ERROR: Failed to save transcript for conversation %s: %v", t.ConversationID, err)
		return err
	}
	return nil
}

// PublishMessage pushes a relayed message onto the conversation's redis
// channel. This is an observe-only feed; delivery to participants never
// depends on it.
func (s *Service) PublishMessage(conversationID string, msg models.ChatMessage) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	channel := config.ConversationChannelPrefix + conversationID
	return s.Redis.Publish(s.Ctx, channel, payload).Err()
}

// MirrorEnqueue records the queue entry in redis, scored by enqueue time, so
// the waiting room can be inspected out of process and survives restarts.
func (s *Service) MirrorEnqueue(userID string, enqueuedAt time.Time) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.ZAdd(s.Ctx, config.PendingQueueKey, redis.Z{
		Score:  float64(enqueuedAt.UnixMilli()),
		Member: userID,
	}).Err()
}

func (s *Service) MirrorRemove(userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.ZRem(s.Ctx, config.PendingQueueKey, userID).Err()
}

// MirrorPendingUserIDs returns the mirrored queue oldest first.
func (s *Service) MirrorPendingUserIDs() ([]string, error) {
	if s.Redis == nil {
		return nil, nil
	}
	return s.Redis.ZRange(s.Ctx, config.PendingQueueKey, 0, -1).Result()
}
