package chathub_test

import (
	"testing"
	"time"

	"guardedheart/backend/internal/chathub"
	"guardedheart/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// matched sets up an active conversation and returns the two clients.
func matched(t *testing.T, h *chathub.Hub) (*chathub.Conversation, *mockClient, *mockClient) {
	t.Helper()
	user := joinUser(t, h, "u1", time.Now())
	therapist := joinTherapist(t, h, "t1", "Dr. A")

	conv, ok := h.Matcher.TryMatch()
	require.True(t, ok)
	// Swallow the INITIALIZE_CHAT events.
	user.received()
	therapist.received()
	return conv, user, therapist
}

func TestRelayRoundTrip(t *testing.T) {
	h, _ := newTestHub(t)
	conv, user, therapist := matched(t, h)

	require.NoError(t, h.Relay.Forward(conv.ID, "u1", "it's been a rough week"))
	got := therapist.received()
	require.Len(t, got, 1, "message appears exactly once")
	assert.Equal(t, "Name u1", got[0].Name)
	assert.Equal(t, "it's been a rough week", got[0].Message, "body unmodified")

	require.NoError(t, h.Relay.Forward(conv.ID, "t1", "tell me more"))
	got = user.received()
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. A", got[0].Name)
	assert.Equal(t, "tell me more", got[0].Message)
}

func TestRelayPreservesSenderOrder(t *testing.T) {
	h, _ := newTestHub(t)
	conv, _, therapist := matched(t, h)

	bodies := []string{"one", "two", "three", "four"}
	for _, b := range bodies {
		require.NoError(t, h.Relay.Forward(conv.ID, "u1", b))
	}

	got := therapist.received()
	require.Len(t, got, len(bodies))
	for i, b := range bodies {
		assert.Equal(t, b, got[i].Message)
	}
}

func TestRelayForwardInactiveConversation(t *testing.T) {
	h, _ := newTestHub(t)

	// Unknown conversation.
	err := h.Relay.Forward("no-such-conv", "u1", "hello?")
	assert.ErrorIs(t, err, chathub.ErrConversationNotActive)

	// Ended conversation.
	conv, _, _ := matched(t, h)
	h.Lifecycle.End(conv.ID)
	err = h.Relay.Forward(conv.ID, "u1", "hello?")
	assert.ErrorIs(t, err, chathub.ErrConversationNotActive)
}

func TestRelayForwardFromOutsider(t *testing.T) {
	h, _ := newTestHub(t)
	conv, _, _ := matched(t, h)

	err := h.Relay.Forward(conv.ID, "intruder", "hi")
	assert.ErrorIs(t, err, chathub.ErrNotParticipant)
}

func TestRelayStoresTranscript(t *testing.T) {
	h, storageMock := newTestHub(t)
	conv, _, _ := matched(t, h)

	require.NoError(t, h.Relay.Forward(conv.ID, "u1", "hello"))

	storageMock.AssertCalled(t, "SaveTranscript", mock.MatchedBy(func(tr *models.ChatTranscript) bool {
		return tr.ConversationID == conv.ID && tr.SenderID == "u1" && tr.Body == "hello"
	}))
	storageMock.AssertCalled(t, "PublishMessage", conv.ID, mock.Anything)
}

func TestRelayUserLeave(t *testing.T) {
	h, _ := newTestHub(t)
	conv, _, therapist := matched(t, h)

	require.NoError(t, h.Relay.SignalLeave(conv.ID, "u1"))

	got := therapist.received()
	require.Len(t, got, 1)
	assert.Equal(t, models.ConnectionSender, got[0].Name)
	assert.Equal(t, models.EventUserLeave, got[0].Message)

	assert.Equal(t, chathub.ConvEnded, conv.State())
	assert.True(t, h.Directory.IsAvailable("t1"), "therapist back to available")

	// Second leave hits a gone conversation.
	err := h.Relay.SignalLeave(conv.ID, "u1")
	assert.ErrorIs(t, err, chathub.ErrConversationNotActive)
}

func TestRelayTherapistLeave(t *testing.T) {
	h, storageMock := newTestHub(t)
	conv, user, _ := matched(t, h)

	require.NoError(t, h.Relay.SignalLeave(conv.ID, "t1"))

	got := user.received()
	require.Len(t, got, 1)
	assert.Equal(t, models.EventTherapistLeave, got[0].Message)

	storageMock.AssertCalled(t, "CloseActiveConversation", conv.ID)
	storageMock.AssertCalled(t, "IncrementTherapistConversations", "t1")
}

func TestLifecycleStrictlyForward(t *testing.T) {
	h, _ := newTestHub(t)
	conv, _, _ := matched(t, h)
	require.Equal(t, chathub.ConvActive, conv.State())

	// Re-activation of an active conversation must fail.
	err := h.Lifecycle.Activate(conv.ID)
	assert.ErrorIs(t, err, chathub.ErrConversationNotActive)

	h.Lifecycle.End(conv.ID)
	assert.Equal(t, chathub.ConvEnded, conv.State())

	// Ended is terminal; a second End is a harmless no-op.
	h.Lifecycle.End(conv.ID)
	assert.Equal(t, chathub.ConvEnded, conv.State())

	_, bound := h.Lifecycle.ByParticipant("u1")
	assert.False(t, bound, "record destroyed at teardown")
}

func TestLifecycleRejectsSecondConversation(t *testing.T) {
	h, _ := newTestHub(t)
	matched(t, h)

	_, err := h.Lifecycle.Create(
		models.PendingUser{UserID: "u1", Name: "again"},
		chathub.TherapistEntry{TherapistID: "t9", Name: "Dr. Nine"},
	)
	assert.Error(t, err, "user already bound to a conversation")
}
