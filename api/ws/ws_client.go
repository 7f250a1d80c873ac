package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zlnvch/whiteboard/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Mind maps are the largest input.
	maxMessageSize = 1024 * 64

	// Pointer moves arrive at display rate; allow 60 per second with a burst of 90
	messagesPerSecond = 60
	burstLimit        = 90
)

type MessageHandler func(client *Client, messageBytes []byte)

func NewClient(hub *Hub, conn *websocket.Conn, user models.User, boardId string, handler MessageHandler, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:     hub,
		conn:    conn,
		user:    user,
		boardId: boardId,
		handler: handler,
		Send:    make(chan []byte, 256),
		ctx:     ctx,
		cancel:  cancel,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), burstLimit),
		logger:  logger,
	}
}

// Client is a middleman between the websocket connection and the board session.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	user    models.User
	boardId string
	handler MessageHandler
	// OnClose runs once the read pump has stopped.
	OnClose func()
	Send    chan []byte // Buffered channel of outbound messages.
	ctx     context.Context
	cancel  context.CancelFunc
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Enqueue queues a message without blocking. Slow clients lose messages
// rather than stalling the board.
func (c *Client) Enqueue(message []byte) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.Send <- message:
		return true
	default:
		c.logger.Warn("client send buffer full, dropping message")
		return false
	}
}

// Close asks the write pump to close the connection.
func (c *Client) Close() {
	c.cancel()
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.CloseCh <- c
		if c.OnClose != nil {
			c.OnClose()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Info("ws close error", zap.Error(err))
			}
			break
		}

		if !c.limiter.Allow() {
			c.logger.Info("closing connection: message rate limit exceeded")
			break
		}

		c.handler(c, messageBytes)
	}
}

func (c *Client) WritePump(shutdownCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.cancel()
	}()
	for {
		select {
		case message := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Info("ws send error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Connection closed by server"),
			)
			return

		case <-shutdownCtx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Websocket service shutting down"),
			)
			return
		}
	}
}
