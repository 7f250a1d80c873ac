package service

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store/memory"
)

type UpdateType string

const (
	UpdateState           UpdateType = "state"
	UpdateEvent           UpdateType = "event"
	UpdateLayersChanged   UpdateType = "layers_changed"
	UpdatePresenceChanged UpdateType = "presence_changed"
	UpdateBoardDeleted    UpdateType = "board_deleted"
)

// Update is pushed to a participant whenever something they can see changes.
type Update struct {
	Type UpdateType `json:"type"`
	Data any        `json:"data"`
}

type LayersChanged struct {
	Upserts map[string]json.RawMessage `json:"upserts,omitempty"`
	Deletes []string                   `json:"deletes,omitempty"`
	// Full order, or null when it did not change
	LayerIds []string `json:"layerIds"`
}

func newLayersChanged(upserts map[string][]byte, deletes, layerIds []string) LayersChanged {
	lc := LayersChanged{Deletes: deletes, LayerIds: layerIds}
	if len(upserts) > 0 {
		lc.Upserts = make(map[string]json.RawMessage, len(upserts))
		for id, raw := range upserts {
			lc.Upserts[id] = raw
		}
	}
	return lc
}

type PresenceChanged struct {
	Participant models.OtherPresence `json:"participant"`
	Left        bool                 `json:"left,omitempty"`
}

type BoardDeleted struct {
	BoardId string `json:"boardId"`
}

// StateView is what a participant's client renders its chrome from.
type StateView struct {
	Mode            canvas.Mode       `json:"mode"`
	Camera          models.Camera     `json:"camera"`
	Selection       []string          `json:"selection"`
	SelectionBounds *models.XYWH      `json:"selectionBounds,omitempty"`
	OtherSelections map[string]string `json:"otherSelections,omitempty"`
	Hand            bool              `json:"hand"`
	CanUndo         bool              `json:"canUndo"`
	CanRedo         bool              `json:"canRedo"`
}

// Session is one participant on a board. Input is serialised through mu so
// the machine only ever sees one caller.
type Session struct {
	board   *Board
	conn    *memory.Conn
	machine *canvas.Machine
	sink    func(Update)
	logger  *zap.Logger

	mu        sync.Mutex
	closeOnce sync.Once
}

// Join opens the board if needed and adds user to it. sink receives every
// update for this participant and must not block.
func (s *Service) Join(ctx context.Context, boardId string, user models.User, sink func(Update)) (*Session, error) {
	if err := ValidateBoardId(boardId); err != nil {
		return nil, err
	}

	b, err := s.openBoard(ctx, boardId)
	if err != nil {
		return nil, err
	}

	conn := b.room.Connect(user)
	session := &Session{
		board:  b,
		conn:   conn,
		sink:   sink,
		logger: s.logger.With(zap.String("boardId", boardId), zap.String("userId", user.Id), zap.Int("connectionId", conn.Id())),
	}
	session.machine = canvas.NewMachine(conn, conn, conn, s.Ids, s.MachineConfig, session.logger)
	session.machine.SetEmitter(canvas.EmitterFunc(func(event canvas.Event) {
		session.notify(Update{Type: UpdateEvent, Data: event})
	}))

	b.mu.Lock()
	b.sessions[conn.Id()] = session
	b.mu.Unlock()

	session.logger.Debug("joined board")
	return session, nil
}

// Leave disconnects the participant. The board stops once nobody is left.
func (s *Service) Leave(session *Session) {
	session.closeOnce.Do(func() {
		session.Do(func(m *canvas.Machine) { m.Close() })

		b := session.board
		b.mu.Lock()
		delete(b.sessions, session.conn.Id())
		b.mu.Unlock()

		session.conn.Disconnect()
		s.releaseBoard(b)
		session.logger.Debug("left board")
	})
}

func (s *Session) ConnectionId() int {
	return s.conn.Id()
}

func (s *Session) User() models.User {
	return s.conn.User()
}

func (s *Session) BoardId() string {
	return s.board.Id
}

// Do runs fn with exclusive use of the machine.
func (s *Session) Do(fn func(m *canvas.Machine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.machine)
}

func (s *Session) State() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() StateView {
	view := StateView{
		Mode:            s.machine.State().Mode(),
		Camera:          s.machine.Camera(),
		Selection:       s.machine.Selection(),
		OtherSelections: s.machine.OtherSelectionColors(),
		Hand:            s.machine.HandActive(),
		CanUndo:         s.conn.CanUndo(),
		CanRedo:         s.conn.CanRedo(),
	}
	if view.Selection == nil {
		view.Selection = []string{}
	}
	if bounds, ok := s.machine.SelectionBounds(); ok {
		view.SelectionBounds = &bounds
	}
	return view
}

// Snapshot is the full board as this participant sees it, for the initial load.
func (s *Session) Snapshot() LayersChanged {
	snapshot := s.board.room.Snapshot()
	upserts := make(map[string][]byte, len(snapshot.Layers))
	for id, layer := range snapshot.Layers {
		raw, err := models.MarshalLayer(layer)
		if err != nil {
			s.logger.Error("failed to encode layer", zap.String("layerId", id), zap.Error(err))
			continue
		}
		upserts[id] = raw
	}
	return newLayersChanged(upserts, nil, snapshot.LayerIds)
}

// Others lists every other participant on the board, on any server.
func (s *Session) Others() []models.OtherPresence {
	return s.conn.Others()
}

func (s *Session) notify(update Update) {
	if s.sink != nil {
		s.sink(update)
	}
}

func (s *Session) boardDeleted(update Update) {
	s.Do(func(m *canvas.Machine) { m.Reset() })
	s.notify(update)
}
