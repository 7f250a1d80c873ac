package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/mq"
	"github.com/zlnvch/whiteboard/store/memory"
	"github.com/zlnvch/whiteboard/worker"
)

// Synthetic connection ids for participants on other servers start here so
// they never collide with local ones.
const remoteConnectionIdBase = 1_000_000

// Board is a board opened on this server: the shared room, its local
// sessions, and the goroutines that persist and fan out its changes.
type Board struct {
	Id   string
	svc  *Service
	room *memory.Room

	ctx    context.Context
	cancel context.CancelFunc
	outbox chan outgoing
	done   chan struct{}

	// guarded by svc.mu
	refs int

	mu           sync.Mutex
	sessions     map[int]*Session
	remoteIds    map[string]int
	nextRemoteId int
}

type outgoing struct {
	change  memory.Change
	upserts map[string][]byte
}

// boardMessage is what servers exchange on a board's channel.
type boardMessage struct {
	Instance string            `json:"instance"`
	Upserts  map[string][]byte `json:"upserts,omitempty"`
	Deletes  []string          `json:"deletes,omitempty"`
	// nil when the order did not change
	LayerIds []string         `json:"layerIds"`
	Presence *presenceMessage `json:"presence,omitempty"`
	Deleted  bool             `json:"deleted,omitempty"`
}

type presenceMessage struct {
	Key         string               `json:"key"`
	Participant models.OtherPresence `json:"participant"`
	Left        bool                 `json:"left,omitempty"`
}

func boardChannel(boardId string) string {
	return "board:" + boardId
}

func (s *Service) openBoard(ctx context.Context, boardId string) (*Board, error) {
	s.mu.Lock()
	if b, ok := s.boards[boardId]; ok {
		b.refs++
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()

	snapshot, err := s.LoadBoard(ctx, boardId)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Someone else may have opened it while we were loading
	if b, ok := s.boards[boardId]; ok {
		b.refs++
		return b, nil
	}

	b := newBoard(s, boardId, snapshot)
	if err := b.start(); err != nil {
		return nil, err
	}
	b.refs = 1
	s.boards[boardId] = b
	s.logger.Debug("board opened", zap.String("boardId", boardId), zap.Int("layers", len(snapshot.LayerIds)))
	return b, nil
}

// releaseBoard drops one reference and stops the board after the last one.
func (s *Service) releaseBoard(b *Board) {
	s.mu.Lock()
	b.refs--
	last := b.refs == 0
	if last {
		delete(s.boards, b.Id)
	}
	s.mu.Unlock()

	if last {
		b.stop()
		s.logger.Debug("board closed", zap.String("boardId", b.Id))
	}
}

func newBoard(s *Service, boardId string, snapshot models.BoardSnapshot) *Board {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Board{
		Id:           boardId,
		svc:          s,
		room:         memory.NewRoom(snapshot),
		ctx:          ctx,
		cancel:       cancel,
		outbox:       make(chan outgoing, 1024),
		done:         make(chan struct{}),
		sessions:     make(map[int]*Session),
		remoteIds:    make(map[string]int),
		nextRemoteId: remoteConnectionIdBase,
	}
	b.room.OnChange(b.onChange)
	return b
}

func (b *Board) start() error {
	if err := b.svc.Cache.Subscribe(b.ctx, boardChannel(b.Id), b.onMessage); err != nil {
		b.cancel()
		return fmt.Errorf("subscribe to board: %w", err)
	}
	go b.runOutbox()
	return nil
}

func (b *Board) stop() {
	b.cancel()
	<-b.done
}

func (b *Board) runOutbox() {
	defer close(b.done)
	for {
		select {
		case o := <-b.outbox:
			b.flush(o)
		case <-b.ctx.Done():
			// Participants leaving is the last thing queued
			for {
				select {
				case o := <-b.outbox:
					b.flush(o)
				default:
					return
				}
			}
		}
	}
}

// onChange runs on whichever goroutine changed the room.
func (b *Board) onChange(change memory.Change) {
	upserts := make(map[string][]byte, len(change.Upserts))
	for id, layer := range change.Upserts {
		raw, err := models.MarshalLayer(layer)
		if err != nil {
			b.svc.logger.Error("failed to encode layer", zap.String("boardId", b.Id), zap.String("layerId", id), zap.Error(err))
			continue
		}
		upserts[id] = raw
	}

	b.dispatch(change, upserts)

	if change.Remote {
		return
	}
	select {
	case b.outbox <- outgoing{change: change, upserts: upserts}:
	case <-b.ctx.Done():
		b.svc.logger.Warn("board closed, dropping change", zap.String("boardId", b.Id))
	}
}

func (b *Board) dispatch(change memory.Change, upserts map[string][]byte) {
	sessions := b.sessionList()

	if len(upserts) > 0 || len(change.Deletes) > 0 || change.LayerIds != nil {
		update := Update{Type: UpdateLayersChanged, Data: newLayersChanged(upserts, change.Deletes, change.LayerIds)}
		for _, session := range sessions {
			session.notify(update)
		}
	}

	if p := change.Presence; p != nil {
		update := Update{Type: UpdatePresenceChanged, Data: PresenceChanged{
			Participant: models.OtherPresence{ConnectionId: p.ConnectionId, UserId: p.UserId, UserName: p.UserName, Presence: p.Presence},
			Left:        p.Left,
		}}
		for _, session := range sessions {
			if session.ConnectionId() == p.ConnectionId {
				continue
			}
			session.notify(update)
		}
	}
}

func (b *Board) sessionList() []*Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	sessions := make([]*Session, 0, len(b.sessions))
	for _, session := range b.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

func (b *Board) presenceKey(connectionId int) string {
	return b.svc.InstanceId + ":" + strconv.Itoa(connectionId)
}

// flush persists one local change, refreshes the cache and tells the other servers.
func (b *Board) flush(o outgoing) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	change := o.change
	msg := boardMessage{Instance: b.svc.InstanceId}

	if len(o.upserts) > 0 || len(change.Deletes) > 0 || change.LayerIds != nil {
		msg.Upserts = o.upserts
		msg.Deletes = change.Deletes
		msg.LayerIds = change.LayerIds
		b.persist(ctx, o)
	}

	if p := change.Presence; p != nil {
		key := b.presenceKey(p.ConnectionId)
		participant := models.OtherPresence{ConnectionId: p.ConnectionId, UserId: p.UserId, UserName: p.UserName, Presence: p.Presence}
		msg.Presence = &presenceMessage{Key: key, Participant: participant, Left: p.Left}

		if p.Left {
			if err := b.svc.Cache.RemovePresence(ctx, b.Id, key); err != nil {
				b.svc.logger.Warn("failed to remove presence", zap.String("boardId", b.Id), zap.Error(err))
			}
		} else if raw, err := json.Marshal(participant); err == nil {
			if err := b.svc.Cache.SetPresence(ctx, b.Id, key, raw); err != nil {
				b.svc.logger.Warn("failed to store presence", zap.String("boardId", b.Id), zap.Error(err))
			}
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		b.svc.logger.Error("failed to encode board message", zap.String("boardId", b.Id), zap.Error(err))
		return
	}
	if err := b.svc.Cache.Publish(ctx, boardChannel(b.Id), raw); err != nil {
		b.svc.logger.Warn("failed to publish board change", zap.String("boardId", b.Id), zap.Error(err))
	}
}

func (b *Board) persist(ctx context.Context, o outgoing) {
	change := o.change

	if batcher := b.svc.LayerBatcher; batcher != nil {
		for id, raw := range o.upserts {
			batcher.WriteCh <- models.LayerRecord{BoardId: b.Id, LayerId: id, Data: raw}
		}
		for _, id := range change.Deletes {
			batcher.WriteCh <- models.LayerRecord{BoardId: b.Id, LayerId: id, Deleted: true}
		}
		if change.LayerIds != nil {
			batcher.OrderCh <- worker.OrderUpdate{BoardId: b.Id, LayerIds: change.LayerIds}
		}
	}

	if len(o.upserts) > 0 {
		if err := b.svc.Cache.SetLayers(ctx, b.Id, o.upserts); err != nil {
			b.svc.logger.Warn("failed to cache layers", zap.String("boardId", b.Id), zap.Error(err))
		}
	}
	if len(change.Deletes) > 0 {
		if err := b.svc.Cache.RemoveLayers(ctx, b.Id, change.Deletes); err != nil {
			b.svc.logger.Warn("failed to remove cached layers", zap.String("boardId", b.Id), zap.Error(err))
		}
	}
	if change.LayerIds != nil {
		if err := b.svc.Cache.SetLayerOrder(ctx, b.Id, change.LayerIds); err != nil {
			b.svc.logger.Warn("failed to cache layer order", zap.String("boardId", b.Id), zap.Error(err))
		}
	}
}

// onMessage applies what another server published for this board.
func (b *Board) onMessage(raw []byte) {
	var msg boardMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		b.svc.logger.Warn("dropping undecodable board message", zap.String("boardId", b.Id), zap.Error(err))
		return
	}
	if msg.Instance == b.svc.InstanceId {
		return
	}

	if msg.Deleted {
		b.reset()
		return
	}

	if msg.Presence != nil {
		b.applyRemotePresence(*msg.Presence)
	}

	if len(msg.Upserts) == 0 && len(msg.Deletes) == 0 && msg.LayerIds == nil {
		return
	}
	change := memory.Change{Deletes: msg.Deletes, LayerIds: msg.LayerIds}
	if len(msg.Upserts) > 0 {
		change.Upserts = make(map[string]models.Layer, len(msg.Upserts))
		for id, data := range msg.Upserts {
			layer, err := models.UnmarshalLayer(data)
			if err != nil {
				b.svc.logger.Warn("skipping undecodable remote layer", zap.String("boardId", b.Id), zap.String("layerId", id), zap.Error(err))
				continue
			}
			change.Upserts[id] = layer
		}
	}
	b.room.ApplyRemote(change)
}

func (b *Board) applyRemotePresence(p presenceMessage) {
	b.mu.Lock()
	id, ok := b.remoteIds[p.Key]
	if !ok {
		b.nextRemoteId++
		id = b.nextRemoteId
		b.remoteIds[p.Key] = id
	}
	if p.Left {
		delete(b.remoteIds, p.Key)
	}
	b.mu.Unlock()

	participant := p.Participant
	participant.ConnectionId = id
	b.room.ApplyRemotePresence(p.Key, participant, p.Left)

	update := Update{Type: UpdatePresenceChanged, Data: PresenceChanged{Participant: participant, Left: p.Left}}
	for _, session := range b.sessionList() {
		session.notify(update)
	}
}

// reset empties the board after it was deleted and tells every local participant.
func (b *Board) reset() {
	b.room.Reset()
	update := Update{Type: UpdateBoardDeleted, Data: BoardDeleted{BoardId: b.Id}}
	for _, session := range b.sessionList() {
		session.boardDeleted(update)
	}
}

// DeleteBoard queues the board for deletion; the consumer does the work.
func (s *Service) DeleteBoard(ctx context.Context, boardId string, user models.User) error {
	if err := ValidateBoardId(boardId); err != nil {
		return err
	}
	job := mq.Job{Kind: mq.JobDeleteBoard, BoardId: boardId, RequestedBy: user.Id, RequestedAt: time.Now().Unix()}
	if err := mq.SendJob(ctx, s.MQ, job); err != nil {
		return fmt.Errorf("queue board deletion: %w", err)
	}
	return nil
}

// BoardDeleted resets the board here and on every other server.
func (s *Service) BoardDeleted(ctx context.Context, boardId string) error {
	if b := s.activeBoard(boardId); b != nil {
		b.reset()
	}

	raw, err := json.Marshal(boardMessage{Instance: s.InstanceId, Deleted: true})
	if err != nil {
		return err
	}
	return s.Cache.Publish(ctx, boardChannel(boardId), raw)
}
