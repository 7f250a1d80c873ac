package canvas

import (
	"slices"

	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

// PointerDown handles a press on empty canvas.
func (m *Machine) PointerDown(e PointerEvent) {
	if m.beginPanIfArmed(e) {
		return
	}
	p := m.toWorld(e)

	switch s := m.state.(type) {
	case Inserting:
		s.Anchor = &p
		m.state = s
	case Pencil:
		m.startDrawing(p, e.Pressure)
	case Eraser:
		m.eraseAt(p)
	case ERDConnecting:
		m.cancelConnection(s)
	default:
		m.state = Pressing{Origin: p}
	}
}

// LayerPointerDown handles a press that landed on layerId.
func (m *Machine) LayerPointerDown(e PointerEvent, layerId string) {
	switch s := m.state.(type) {
	case Pencil, Inserting, Eraser:
		m.PointerDown(e)
		return
	case ERDConnecting:
		if m.beginPanIfArmed(e) {
			return
		}
		m.connectEntity(s, layerId)
		return
	}
	if m.beginPanIfArmed(e) {
		return
	}
	if _, ok := m.doc.Get(layerId); !ok {
		return
	}

	p := m.toWorld(e)
	m.gesture.begin()
	if !slices.Contains(m.presence.Self().Selection, layerId) {
		m.setSelection([]string{layerId}, true)
	}
	m.state = Translating{Current: p}
}

// LayerDoubleClick asks the host to open the editor of an ERD entity.
func (m *Machine) LayerDoubleClick(layerId string) {
	if m.state.Mode() != ModeNone {
		return
	}
	layer, ok := m.doc.Get(layerId)
	if !ok || layer.Type() != models.LayerERDEntity {
		return
	}
	m.emit(EventEntityEditRequested, layerId)
}

// ResizeHandleDown starts resizing the selected layer from one of its handles.
func (m *Machine) ResizeHandleDown(corner models.Side, initialBounds models.XYWH) {
	m.gesture.begin()
	m.state = Resizing{InitialBounds: initialBounds, Corner: corner}
}

func (m *Machine) PointerMove(e PointerEvent) {
	screen := models.Point{X: e.ClientX, Y: e.ClientY}
	if m.pan.active {
		m.panTo(screen)
		return
	}
	p := m.toWorld(e)

	switch s := m.state.(type) {
	case Pressing:
		if geometry.ManhattanDistance(s.Origin, p) > m.cfg.MultiSelectThreshold {
			net := SelectionNet{Origin: s.Origin, Current: p}
			m.state = net
			m.updateSelectionNet(net)
		}
	case SelectionNet:
		s.Current = p
		m.state = s
		m.updateSelectionNet(s)
	case Translating:
		m.translateSelection(s, p)
	case Resizing:
		m.resizeSelection(s, p)
	case Pencil:
		if e.Buttons == 1 {
			m.continueDrawing(p, e.Pressure)
			return
		}
	case Eraser:
		if e.Buttons == 1 {
			m.eraseAt(p)
		}
	}

	m.presence.SetMyPresence(models.PresencePatch{Cursor: models.Some(&p)}, store.PresenceOptions{})
}

func (m *Machine) PointerUp(e PointerEvent) {
	defer m.gesture.end()

	if e.Button == ButtonMiddle {
		m.pan.middle = false
	}
	if m.pan.active {
		m.stopPan()
		return
	}
	p := m.toWorld(e)

	switch s := m.state.(type) {
	case None, Pressing:
		m.clearSelection()
		m.state = None{}
	case SelectionNet, Translating, Resizing:
		m.state = None{}
	case Pencil:
		m.insertPath()
	case Inserting:
		anchor := p
		if s.Anchor != nil {
			anchor = *s.Anchor
		}
		m.insertLayer(s.Kind, anchor, p)
	}
}

// PointerLeave finalises whatever drag was in flight and hides the cursor.
func (m *Machine) PointerLeave(e PointerEvent) {
	defer m.gesture.end()

	m.stopPan()
	m.pan.middle = false

	switch s := m.state.(type) {
	case Pressing, SelectionNet, Translating, Resizing:
		m.state = None{}
	case Pencil:
		m.insertPath()
	case Inserting:
		s.Anchor = nil
		m.state = s
	}

	m.presence.SetMyPresence(models.PresencePatch{Cursor: models.Some[*models.Point](nil)}, store.PresenceOptions{})
}

func (m *Machine) beginPanIfArmed(e PointerEvent) bool {
	if e.Button == ButtonMiddle {
		m.pan.middle = true
	}
	if !m.pan.armed() {
		return false
	}
	m.startPan(models.Point{X: e.ClientX, Y: e.ClientY})
	return true
}
