package canvas

import "github.com/zlnvch/whiteboard/models"

type Mode int

const (
	ModeNone Mode = iota
	ModePressing
	ModeSelectionNet
	ModeTranslating
	ModeInserting
	ModeResizing
	ModePencil
	ModeEraser
	ModeERDConnecting
)

var modeNames = [...]string{
	"None", "Pressing", "SelectionNet", "Translating", "Inserting", "Resizing", "Pencil", "Eraser", "ERDConnecting",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "Unknown"
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is the machine's current mode together with the transient data that
// only exists while that mode is active.
type State interface {
	Mode() Mode
	isState()
}

type None struct{}

type Pressing struct {
	Origin models.Point
}

type SelectionNet struct {
	Origin  models.Point
	Current models.Point
}

type Translating struct {
	Current models.Point
}

type Resizing struct {
	InitialBounds models.XYWH
	Corner        models.Side
}

// Inserting has a tool armed. Anchor is set once the pointer went down.
type Inserting struct {
	Kind   models.LayerType
	Anchor *models.Point
}

type Pencil struct{}

type Eraser struct{}

// ERDConnecting waits for a source entity and then a target entity.
type ERDConnecting struct {
	SourceId string
}

func (None) Mode() Mode          { return ModeNone }
func (Pressing) Mode() Mode      { return ModePressing }
func (SelectionNet) Mode() Mode  { return ModeSelectionNet }
func (Translating) Mode() Mode   { return ModeTranslating }
func (Resizing) Mode() Mode      { return ModeResizing }
func (Inserting) Mode() Mode     { return ModeInserting }
func (Pencil) Mode() Mode        { return ModePencil }
func (Eraser) Mode() Mode        { return ModeEraser }
func (ERDConnecting) Mode() Mode { return ModeERDConnecting }

func (None) isState()          {}
func (Pressing) isState()      {}
func (SelectionNet) isState()  {}
func (Translating) isState()   {}
func (Resizing) isState()      {}
func (Inserting) isState()     {}
func (Pencil) isState()        {}
func (Eraser) isState()        {}
func (ERDConnecting) isState() {}
