package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/client/internal/enrollment"
)

func newTestClient(attemptID string) *Client {
	return &Client{ID: attemptID + "-c", AttemptID: attemptID, send: make(chan WSMessage, 4)}
}

func TestHubBroadcastsToWatchers(t *testing.T) {
	hub := NewHub(nil)
	c := newTestClient("a1")
	hub.Register(c)

	hub.AttemptChanged(enrollment.Snapshot{AttemptID: "a1", State: enrollment.StateVerifying})

	msg := <-c.send
	require.Equal(t, "attempt_state", msg.Event)
	snap, ok := msg.Data.(enrollment.Snapshot)
	require.True(t, ok)
	require.Equal(t, enrollment.StateVerifying, snap.State)
}

func TestHubDoesNotCrossAttempts(t *testing.T) {
	hub := NewHub(nil)
	a := newTestClient("a1")
	b := newTestClient("a2")
	hub.Register(a)
	hub.Register(b)

	hub.AttemptChanged(enrollment.Snapshot{AttemptID: "a1", State: enrollment.StateEnrolled})

	require.Len(t, a.send, 1)
	require.Len(t, b.send, 0)
}

func TestHubDetachFiresOnLastWatcher(t *testing.T) {
	hub := NewHub(nil)
	var detached []string
	hub.SetDetachHandler(func(attemptID string) { detached = append(detached, attemptID) })

	first := newTestClient("a1")
	second := &Client{ID: "other", AttemptID: "a1", send: make(chan WSMessage, 1)}
	hub.Register(first)
	hub.Register(second)

	hub.Unregister(first)
	require.Empty(t, detached, "detach fires only when the last watcher leaves")

	hub.Unregister(second)
	require.Equal(t, []string{"a1"}, detached)
	require.Equal(t, 0, hub.WatcherCount("a1"))
}
