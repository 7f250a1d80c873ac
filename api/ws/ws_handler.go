package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/service"
)

const subprotocol = "whiteboard-v1"

type Handler struct {
	Service *service.Service
	Hub     *Hub
	logger  *zap.Logger
}

func NewHandler(svc *service.Service, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
		logger:  logger,
	}
}

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{subprotocol},
	}
}

// Websocket message structs
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type responseMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type snapshotData struct {
	BoardId      string                 `json:"boardId"`
	ConnectionId int                    `json:"connectionId"`
	Layers       service.LayersChanged  `json:"layers"`
	State        service.StateView      `json:"state"`
	Others       []models.OtherPresence `json:"others"`
}

type errorData struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

// tokenFromProtocols expects "whiteboard-v1, <token>" since browsers cannot
// set headers on websocket requests.
func tokenFromProtocols(header string) (string, bool) {
	protocolsSplit := strings.Split(header, ",")
	if len(protocolsSplit) != 2 || strings.TrimSpace(protocolsSplit[0]) != subprotocol {
		return "", false
	}
	return strings.TrimSpace(protocolsSplit[1]), true
}

// ServeWS handles websocket requests from the peer.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	token, ok := tokenFromProtocols(r.Header.Get("Sec-WebSocket-Protocol"))
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	boardId := r.URL.Query().Get("board")
	if err := service.ValidateBoardId(boardId); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, authErr := h.Service.AuthenticateToken(r.Context(), token)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("failed to upgrade ws connection", zap.Error(err))
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "Unauthenticated")
		return
	}

	logger := h.logger.With(zap.String("boardId", boardId), zap.String("userId", user.Id))
	client := NewClient(h.Hub, conn, user, boardId, nil, logger)

	session, err := h.Service.Join(r.Context(), boardId, user, func(update service.Update) {
		h.send(client, update)
	})
	if err != nil {
		logger.Error("failed to join board", zap.Error(err))
		closeWith(conn, websocket.CloseInternalServerErr, "Failed to load board")
		return
	}

	client.handler = func(c *Client, messageBytes []byte) {
		h.HandleWsMessage(c, session, messageBytes)
	}
	client.OnClose = func() {
		h.Service.Leave(session)
	}

	h.Hub.OpenCh <- client

	// Start pumps
	go client.ReadPump()
	go client.WritePump(shutdownCtx)

	h.send(client, responseMessage{
		Type: "snapshot",
		Data: snapshotData{
			BoardId:      boardId,
			ConnectionId: session.ConnectionId(),
			Layers:       session.Snapshot(),
			State:        session.State(),
			Others:       session.Others(),
		},
	})
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	conn.Close()
}

func (h *Handler) send(client *Client, msg any) {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("error marshaling ws message", zap.Error(err))
		return
	}
	client.Enqueue(msgBytes)
}

// HandleWsMessage routes one client message into the participant's session.
// Successful inputs answer through the session's own state updates; only
// failures get an explicit reply.
func (h *Handler) HandleWsMessage(client *Client, session *service.Session, messageBytes []byte) {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		client.logger.Info("invalid JSON", zap.Error(err))
		return
	}

	if msg.Type == "ping" {
		h.send(client, responseMessage{Type: "pong"})
		return
	}

	if err := session.HandleInput(msg.Type, msg.Data); err != nil {
		client.logger.Debug("input rejected", zap.String("input", msg.Type), zap.Error(err))
		h.send(client, responseMessage{
			Type: "error",
			Data: errorData{Input: msg.Type, Error: err.Error()},
		})
	}
}
