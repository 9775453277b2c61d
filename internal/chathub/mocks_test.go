package chathub_test

import (
	"time"

	"guardedheart/backend/internal/chathub"
	"guardedheart/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser() (*models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) CreatePendingUser(name, initialMessage string) (*models.PendingUser, error) {
	args := m.Called(name, initialMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingUser), args.Error(1)
}

func (m *MockStorage) GetPendingUserByUserID(userID string) (*models.PendingUser, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingUser), args.Error(1)
}

func (m *MockStorage) GetAllPendingUsers() ([]models.PendingUser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingUser), args.Error(1)
}

func (m *MockStorage) RemovePendingUserByUserID(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) GetTherapistByCode(code string) (*models.Therapist, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Therapist), args.Error(1)
}

func (m *MockStorage) GetTherapistByID(id string) (*models.Therapist, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Therapist), args.Error(1)
}

func (m *MockStorage) CreateOnlineTherapist(therapistID string) (*models.OnlineTherapist, error) {
	args := m.Called(therapistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OnlineTherapist), args.Error(1)
}

func (m *MockStorage) DeleteOnlineTherapist(therapistID string) error {
	args := m.Called(therapistID)
	return args.Error(0)
}

func (m *MockStorage) IncrementTherapistConversations(therapistID string) error {
	args := m.Called(therapistID)
	return args.Error(0)
}

func (m *MockStorage) CreateActiveConversation(conv *models.ActiveConversation) error {
	args := m.Called(conv)
	return args.Error(0)
}

func (m *MockStorage) GetActiveConversationByID(id string) (*models.ActiveConversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveConversation), args.Error(1)
}

func (m *MockStorage) GetActiveConversationByUserID(userID string) (*models.ActiveConversation, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveConversation), args.Error(1)
}

func (m *MockStorage) CloseActiveConversation(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) SaveTranscript(t *models.ChatTranscript) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockStorage) PublishMessage(conversationID string, msg models.ChatMessage) error {
	args := m.Called(conversationID, msg)
	return args.Error(0)
}

func (m *MockStorage) MirrorEnqueue(userID string, enqueuedAt time.Time) error {
	args := m.Called(userID, enqueuedAt)
	return args.Error(0)
}

func (m *MockStorage) MirrorRemove(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) MirrorPendingUserIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// newPermissiveStorage returns a MockStorage that accepts every write the
// core makes during matching, relaying and teardown. Tests that care about a
// specific call add their own expectations on top.
func newPermissiveStorage() *MockStorage {
	s := new(MockStorage)
	s.On("CreateActiveConversation", mock.Anything).Return(nil).Maybe()
	s.On("CloseActiveConversation", mock.Anything).Return(nil).Maybe()
	s.On("IncrementTherapistConversations", mock.Anything).Return(nil).Maybe()
	s.On("RemovePendingUserByUserID", mock.Anything).Return(nil).Maybe()
	s.On("SaveTranscript", mock.Anything).Return(nil).Maybe()
	s.On("PublishMessage", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("MirrorEnqueue", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("MirrorRemove", mock.Anything).Return(nil).Maybe()
	s.On("MirrorPendingUserIDs").Return([]string{}, nil).Maybe()
	s.On("CreateOnlineTherapist", mock.Anything).Return(&models.OnlineTherapist{}, nil).Maybe()
	s.On("DeleteOnlineTherapist", mock.Anything).Return(nil).Maybe()
	return s
}

// mockClient is a plain in-memory Client: no transport, just a buffered
// channel the tests read delivered messages from.
type mockClient struct {
	id   string
	role models.Role
	name string
	send chan models.ChatMessage
}

func newMockClient(id string, role models.Role, name string) *mockClient {
	return &mockClient{
		id:   id,
		role: role,
		name: name,
		send: make(chan models.ChatMessage, 32),
	}
}

func (c *mockClient) GetParticipantID() string                       { return c.id }
func (c *mockClient) GetRole() models.Role                           { return c.role }
func (c *mockClient) GetDisplayName() string                         { return c.name }
func (c *mockClient) GetSendChannel() chan<- models.ChatMessage      { return c.send }
func (c *mockClient) Run()                                           {}
func (c *mockClient) Close()                                         {}

// received drains everything delivered so far.
func (c *mockClient) received() []models.ChatMessage {
	var out []models.ChatMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

// connect registers and activates a client on the hub's registry.
func connect(h *chathub.Hub, c *mockClient) error {
	if err := h.Registry.Register(c); err != nil {
		return err
	}
	h.Registry.Activate(c.id)
	return nil
}

// drainEvents empties the liveness stream so registry buffers never fill in
// tests that do not run the hub loop.
func drainEvents(h *chathub.Hub) {
	for {
		select {
		case <-h.Registry.Events():
		default:
			return
		}
	}
}
