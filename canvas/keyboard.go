package canvas

import "strings"

func (m *Machine) KeyDown(e KeyEvent) {
	switch e.Key {
	case " ", "Space":
		m.pan.space = true
		return
	case "Escape":
		switch s := m.state.(type) {
		case ERDConnecting:
			m.cancelConnection(s)
			m.state = None{}
		case Inserting:
			m.state = None{}
		}
		return
	case "Delete", "Backspace":
		if _, ok := m.state.(None); ok {
			m.DeleteSelection()
		}
		return
	}

	if strings.EqualFold(e.Key, "z") && (e.Ctrl || e.Meta) {
		if e.Shift || e.Alt {
			m.history.Redo()
			m.emit(EventHistoryRedo)
		} else {
			m.history.Undo()
			m.emit(EventHistoryUndo)
		}
	}
}

func (m *Machine) KeyUp(e KeyEvent) {
	if e.Key != " " && e.Key != "Space" {
		return
	}
	m.pan.space = false
	if !m.pan.armed() {
		m.stopPan()
	}
}
