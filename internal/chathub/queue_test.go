package chathub_test

import (
	"fmt"
	"testing"
	"time"

	"guardedheart/backend/internal/chathub"
	"guardedheart/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingUser(id string) models.PendingUser {
	return models.PendingUser{UserID: id, Name: "Name " + id, InitialMessage: "hi"}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := chathub.NewPendingQueue()

	base := time.Now()
	for i := 0; i < 5; i++ {
		p := pendingUser(fmt.Sprintf("user_%d", i))
		p.EnqueuedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, q.Enqueue(p))
	}

	for i := 0; i < 5; i++ {
		p, ok := q.DequeueOldest()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("user_%d", i), p.UserID)
	}
	_, ok := q.DequeueOldest()
	assert.False(t, ok, "queue should be empty")
}

func TestQueueNeverReturnsSameUserTwice(t *testing.T) {
	q := chathub.NewPendingQueue()
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(pendingUser(fmt.Sprintf("u%d", i))))
	}

	seen := make(map[string]bool)
	for {
		p, ok := q.DequeueOldest()
		if !ok {
			break
		}
		assert.False(t, seen[p.UserID], "user %s dequeued twice", p.UserID)
		seen[p.UserID] = true
	}
	assert.Len(t, seen, 10)
}

func TestQueueDuplicateEnqueue(t *testing.T) {
	q := chathub.NewPendingQueue()
	require.NoError(t, q.Enqueue(pendingUser("u1")))

	err := q.Enqueue(pendingUser("u1"))
	assert.ErrorIs(t, err, chathub.ErrAlreadyQueued)
	assert.Equal(t, 1, q.Len())
}

func TestQueueRemoveIdempotent(t *testing.T) {
	q := chathub.NewPendingQueue()
	require.NoError(t, q.Enqueue(pendingUser("u1")))

	assert.True(t, q.Remove("u1"))
	assert.False(t, q.Remove("u1"), "second remove returns false, not an error")
	assert.False(t, q.Remove("never_there"))
}

func TestQueueRequeueFront(t *testing.T) {
	q := chathub.NewPendingQueue()
	require.NoError(t, q.Enqueue(pendingUser("u1")))
	require.NoError(t, q.Enqueue(pendingUser("u2")))

	rolled, ok := q.DequeueOldest()
	require.True(t, ok)
	require.Equal(t, "u1", rolled.UserID)

	// A rolled-back user goes to the head, not the back.
	require.NoError(t, q.RequeueFront(rolled))
	head, ok := q.PeekOldest()
	require.True(t, ok)
	assert.Equal(t, "u1", head.UserID)
}

func TestQueueDequeueFirstSkipsNonMatching(t *testing.T) {
	q := chathub.NewPendingQueue()
	require.NoError(t, q.Enqueue(pendingUser("dead")))
	require.NoError(t, q.Enqueue(pendingUser("live")))

	p, ok := q.DequeueFirst(func(p models.PendingUser) bool { return p.UserID == "live" })
	require.True(t, ok)
	assert.Equal(t, "live", p.UserID)

	// The skipped entry keeps its place.
	head, ok := q.PeekOldest()
	require.True(t, ok)
	assert.Equal(t, "dead", head.UserID)
	assert.Equal(t, 1, q.Len())
}

func TestQueueGetByUserID(t *testing.T) {
	q := chathub.NewPendingQueue()
	require.NoError(t, q.Enqueue(pendingUser("u1")))

	p, ok := q.GetByUserID("u1")
	require.True(t, ok)
	assert.Equal(t, "Name u1", p.Name)

	_, ok = q.GetByUserID("u2")
	assert.False(t, ok)
}

func TestQueueOrdersByTimestampNotArrival(t *testing.T) {
	q := chathub.NewPendingQueue()

	base := time.Now()
	late := pendingUser("late_intake")
	late.EnqueuedAt = base.Add(2 * time.Second)
	early := pendingUser("early_intake")
	early.EnqueuedAt = base.Add(1 * time.Second)

	// The later-stamped user's socket attaches first.
	require.NoError(t, q.Enqueue(late))
	require.NoError(t, q.Enqueue(early))

	p, ok := q.DequeueOldest()
	require.True(t, ok)
	assert.Equal(t, "early_intake", p.UserID)
	p, ok = q.DequeueOldest()
	require.True(t, ok)
	assert.Equal(t, "late_intake", p.UserID)
}

func TestQueueEqualTimestampsKeepArrivalOrder(t *testing.T) {
	q := chathub.NewPendingQueue()

	stamp := time.Now()
	for i := 0; i < 3; i++ {
		p := pendingUser(fmt.Sprintf("tied_%d", i))
		p.EnqueuedAt = stamp
		require.NoError(t, q.Enqueue(p))
	}

	for i := 0; i < 3; i++ {
		p, ok := q.DequeueOldest()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("tied_%d", i), p.UserID)
	}
}
