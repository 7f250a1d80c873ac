package ws

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/zlnvch/whiteboard/models"
)

func newTestClient(t *testing.T, hub *Hub, userId, boardId string) *Client {
	return NewClient(hub, nil, models.User{Id: userId}, boardId, nil, zaptest.NewLogger(t))
}

func closed(c *Client) bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

func TestTokenFromProtocols(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"Valid", "whiteboard-v1, abc.def.ghi", "abc.def.ghi", true},
		{"No Space", "whiteboard-v1,abc", "abc", true},
		{"Missing Token", "whiteboard-v1", "", false},
		{"Wrong Protocol", "chat-v2, abc", "", false},
		{"Empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := tokenFromProtocols(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestHub_UserConnectionLimit(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	go hub.Run()

	clients := make([]*Client, maxConnectionsPerUser+1)
	for i := range clients {
		clients[i] = newTestClient(t, hub, "user1", fmt.Sprintf("board%d", i))
		hub.OpenCh <- clients[i]
	}

	assert.Eventually(t, func() bool { return closed(clients[maxConnectionsPerUser]) }, time.Second, 5*time.Millisecond)
	for _, c := range clients[:maxConnectionsPerUser] {
		assert.False(t, closed(c))
	}

	// A slot frees up once a client closes
	hub.CloseCh <- clients[0]
	late := newTestClient(t, hub, "user1", "board0")
	hub.OpenCh <- late
	assert.Eventually(t, func() bool { return hub.BoardConnections("board0") == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, closed(late))
}

func TestHub_BoardConnectionLimit(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	go hub.Run()

	for i := 0; i < maxConnectionsPerBoard; i++ {
		hub.OpenCh <- newTestClient(t, hub, fmt.Sprintf("user%d", i), "b1")
	}
	extra := newTestClient(t, hub, "late", "b1")
	hub.OpenCh <- extra

	assert.Eventually(t, func() bool { return closed(extra) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, maxConnectionsPerBoard, hub.BoardConnections("b1"))
	assert.Equal(t, 0, hub.BoardConnections("b2"))
}

func TestClient_EnqueueDropsWhenFullOrClosed(t *testing.T) {
	c := newTestClient(t, NewHub(zaptest.NewLogger(t)), "u", "b")

	for i := 0; i < cap(c.Send); i++ {
		assert.True(t, c.Enqueue([]byte("x")))
	}
	assert.False(t, c.Enqueue([]byte("overflow")))

	<-c.Send
	c.Close()
	assert.False(t, c.Enqueue([]byte("after close")))
}
