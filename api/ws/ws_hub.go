package ws

import (
	"go.uber.org/zap"
)

// Hub keeps track of open clients and enforces the connection limits.
type Hub struct {
	OpenCh         chan *Client
	CloseCh        chan *Client
	countCh        chan countRequest
	userToClients  map[string]map[*Client]struct{}
	boardToClients map[string]map[*Client]struct{}
	logger         *zap.Logger
}

type countRequest struct {
	boardId string
	reply   chan int
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		OpenCh:         make(chan *Client, 256),
		CloseCh:        make(chan *Client, 256),
		countCh:        make(chan countRequest),
		userToClients:  make(map[string]map[*Client]struct{}),
		boardToClients: make(map[string]map[*Client]struct{}),
		logger:         logger,
	}
}

const (
	maxConnectionsPerUser  = 5
	maxConnectionsPerBoard = 50
)

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.OpenCh:
			userId := client.user.Id
			if len(h.userToClients[userId]) >= maxConnectionsPerUser {
				h.logger.Info("user reached max connections", zap.String("userId", userId), zap.Int("max", maxConnectionsPerUser))
				client.Close()
				continue
			}
			if len(h.boardToClients[client.boardId]) >= maxConnectionsPerBoard {
				h.logger.Info("board reached max connections", zap.String("boardId", client.boardId), zap.Int("max", maxConnectionsPerBoard))
				client.Close()
				continue
			}

			if _, ok := h.userToClients[userId]; !ok {
				h.userToClients[userId] = make(map[*Client]struct{})
			}
			h.userToClients[userId][client] = struct{}{}
			if _, ok := h.boardToClients[client.boardId]; !ok {
				h.boardToClients[client.boardId] = make(map[*Client]struct{})
			}
			h.boardToClients[client.boardId][client] = struct{}{}

		case client := <-h.CloseCh:
			delete(h.userToClients[client.user.Id], client)
			if len(h.userToClients[client.user.Id]) == 0 {
				delete(h.userToClients, client.user.Id)
			}
			delete(h.boardToClients[client.boardId], client)
			if len(h.boardToClients[client.boardId]) == 0 {
				delete(h.boardToClients, client.boardId)
			}

		case req := <-h.countCh:
			req.reply <- len(h.boardToClients[req.boardId])
		}
	}
}

// BoardConnections is the number of accepted clients on a board.
func (h *Hub) BoardConnections(boardId string) int {
	reply := make(chan int, 1)
	h.countCh <- countRequest{boardId: boardId, reply: reply}
	return <-reply
}
