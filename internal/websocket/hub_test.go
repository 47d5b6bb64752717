package websocket

import (
	"context"
	"testing"
	"time"

	"winnow-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func register(hub *Hub, buffer int) *Client {
	c := &Client{Hub: hub, Id: uuid.New(), Send: make(chan []byte, buffer)}
	hub.register <- c
	return c
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	a := register(hub, 4)
	b := register(hub, 4)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte(`{"total":10}`))

	assert.Equal(t, `{"total":10}`, string(<-a.Send))
	assert.Equal(t, `{"total":10}`, string(<-b.Send))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)
	slow := register(hub, 1)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte("1"))
	hub.Broadcast([]byte("2"))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "1", string(<-slow.Send))
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHubUnregisterTwiceClosesOnce(t *testing.T) {
	hub, _ := startHub(t)
	c := register(hub, 1)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(c)
	hub.Unregister(c)

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHubStopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	c := register(hub, 1)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case _, open := <-c.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client channel was not closed")
	}
}
