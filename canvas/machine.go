// Package canvas is the interaction state machine behind a board: it turns
// pointer, wheel and keyboard input into layer edits, selection changes and
// camera moves.
package canvas

import (
	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/shapes"
	"github.com/zlnvch/whiteboard/store"
)

const (
	ButtonPrimary = 0
	ButtonMiddle  = 1
)

type PointerEvent struct {
	ClientX  float64 `json:"clientX"`
	ClientY  float64 `json:"clientY"`
	Button   int     `json:"button"`
	Buttons  int     `json:"buttons"`
	Pressure float64 `json:"pressure"`
}

type WheelEvent struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
	DeltaX  float64 `json:"deltaX"`
	DeltaY  float64 `json:"deltaY"`
	Ctrl    bool    `json:"ctrlKey"`
	Meta    bool    `json:"metaKey"`
}

type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
}

type Config struct {
	MaxLayers int
	// MultiSelectThreshold is the Manhattan distance a press has to travel
	// before it becomes a selection net.
	MultiSelectThreshold float64
	ZoomStep             float64
	MinZoom              float64
	MaxZoom              float64
}

func DefaultConfig() Config {
	return Config{
		MaxLayers:            100,
		MultiSelectThreshold: 5,
		ZoomStep:             1.08,
		MinZoom:              0.25,
		MaxZoom:              3,
	}
}

// Machine is not safe for concurrent use; the caller serialises input.
type Machine struct {
	doc      store.Document
	history  store.History
	presence store.Presence
	ids      store.IdGenerator
	emitter  Emitter
	logger   *zap.Logger
	cfg      Config

	state    State
	camera   models.Camera
	pan      panState
	style    shapes.Style
	viewport models.Point
	gesture  gesture
}

func NewMachine(doc store.Document, history store.History, presence store.Presence, ids store.IdGenerator, cfg Config, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxLayers <= 0 {
		cfg = DefaultConfig()
	}
	return &Machine{
		doc:      doc,
		history:  history,
		presence: presence,
		ids:      ids,
		emitter:  nopEmitter{},
		logger:   logger,
		cfg:      cfg,
		state:    None{},
		camera:   models.Camera{Zoom: 1},
		style:    shapes.Style{Fill: models.RGB(0, 0, 0)},
		gesture:  gesture{history: history},
	}
}

func (m *Machine) SetEmitter(e Emitter) {
	if e == nil {
		e = nopEmitter{}
	}
	m.emitter = e
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Camera() models.Camera {
	return m.camera
}

func (m *Machine) Style() shapes.Style {
	return m.style
}

func (m *Machine) SetStyle(style shapes.Style) {
	m.style = style
}

// SetViewport records the visible screen size; button zooms pivot on its centre.
func (m *Machine) SetViewport(width, height float64) {
	m.viewport = models.Point{X: width, Y: height}
}

// Selection is this participant's current selection.
func (m *Machine) Selection() []string {
	return m.presence.Self().Selection
}

// BeginInsert arms the tool for kind. Kinds without a tool are ignored.
func (m *Machine) BeginInsert(kind models.LayerType) {
	if !shapes.Insertable(kind) {
		m.logger.Debug("ignoring insert of non-insertable kind", zap.Stringer("kind", kind))
		return
	}
	m.state = Inserting{Kind: kind}
}

func (m *Machine) EnterPencil() {
	m.state = Pencil{}
}

func (m *Machine) EnterEraser() {
	m.state = Eraser{}
}

func (m *Machine) EnterERDConnect() {
	m.state = ERDConnecting{}
}

// Reset drops back to None and closes any open gesture.
func (m *Machine) Reset() {
	m.gesture.end()
	m.state = None{}
}

// Close releases the participant's transient presence and history pause.
// The machine must not be used afterwards.
func (m *Machine) Close() {
	m.gesture.end()
	m.pan = panState{}
	m.state = None{}
	m.presence.SetMyPresence(models.PresencePatch{
		Cursor:      models.Some[*models.Point](nil),
		PencilDraft: models.Some[[][3]float64](nil),
	}, store.PresenceOptions{})
}

func (m *Machine) emit(t EventType, layerIds ...string) {
	m.emitter.Emit(Event{Type: t, LayerIds: layerIds})
}

func (m *Machine) setSelection(ids []string, addToHistory bool) {
	m.presence.SetMyPresence(models.PresencePatch{Selection: models.Some(ids)}, store.PresenceOptions{AddToHistory: addToHistory})
	m.emit(EventSelectionChanged, ids...)
}

func (m *Machine) clearSelection() {
	if len(m.presence.Self().Selection) == 0 {
		return
	}
	m.setSelection([]string{}, true)
}

func (m *Machine) full(size int) bool {
	return size >= m.cfg.MaxLayers
}

func (m *Machine) limitReached() {
	m.logger.Debug("layer limit reached", zap.Int("limit", m.cfg.MaxLayers))
	m.emit(EventLayerLimitReached)
}
