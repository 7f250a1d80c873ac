package canvas

import (
	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
)

// panState tracks the three ways of arming a camera pan and the drag in
// progress.
type panState struct {
	space  bool
	middle bool
	hand   bool
	active bool
	last   models.Point
}

func (p panState) armed() bool {
	return p.space || p.middle || p.hand
}

func (m *Machine) startPan(screen models.Point) {
	m.pan.active = true
	m.pan.last = screen
}

func (m *Machine) panTo(screen models.Point) {
	m.camera.X += screen.X - m.pan.last.X
	m.camera.Y += screen.Y - m.pan.last.Y
	m.pan.last = screen
}

func (m *Machine) stopPan() {
	m.pan.active = false
}

// Panning reports whether a pan drag is in progress.
func (m *Machine) Panning() bool {
	return m.pan.active
}

// ToggleHand flips the hand tool and returns whether it is now on.
func (m *Machine) ToggleHand() bool {
	m.pan.hand = !m.pan.hand
	if !m.pan.hand && !m.pan.space && !m.pan.middle {
		m.stopPan()
	}
	return m.pan.hand
}

func (m *Machine) HandActive() bool {
	return m.pan.hand
}

// Wheel pans the camera, or zooms around the cursor when ctrl or cmd is held.
func (m *Machine) Wheel(e WheelEvent) {
	if e.Ctrl || e.Meta {
		zoom := m.camera.Zoom
		if e.DeltaY < 0 {
			zoom *= m.cfg.ZoomStep
		} else {
			zoom /= m.cfg.ZoomStep
		}
		m.zoomAround(models.Point{X: e.ClientX, Y: e.ClientY}, zoom)
		return
	}
	m.camera.X -= e.DeltaX
	m.camera.Y -= e.DeltaY
}

func (m *Machine) ZoomIn() {
	m.zoomAround(m.viewportCenter(), m.camera.Zoom*m.cfg.ZoomStep)
}

func (m *Machine) ZoomOut() {
	m.zoomAround(m.viewportCenter(), m.camera.Zoom/m.cfg.ZoomStep)
}

func (m *Machine) ResetZoom() {
	m.zoomAround(m.viewportCenter(), 1)
}

func (m *Machine) zoomAround(screen models.Point, zoom float64) {
	zoom = geometry.Clamp(zoom, m.cfg.MinZoom, m.cfg.MaxZoom)
	if zoom == m.camera.Zoom {
		return
	}
	m.camera = geometry.ZoomAt(m.camera, screen, zoom)
}

func (m *Machine) viewportCenter() models.Point {
	return models.Point{X: m.viewport.X / 2, Y: m.viewport.Y / 2}
}

func (m *Machine) toWorld(e PointerEvent) models.Point {
	return geometry.ScreenToWorld(models.Point{X: e.ClientX, Y: e.ClientY}, m.camera)
}
