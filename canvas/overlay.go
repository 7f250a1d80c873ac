package canvas

import (
	"math"

	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
)

// SelectionColors maps every layer selected by another participant to that
// participant's colour. Ids that no longer resolve are skipped; when two
// participants select the same layer the later one in the list wins.
func SelectionColors(others []models.OtherPresence, get func(id string) (models.Layer, bool)) map[string]string {
	colors := make(map[string]string)
	for _, other := range others {
		for _, id := range other.Presence.Selection {
			if _, ok := get(id); !ok {
				continue
			}
			colors[id] = geometry.ConnectionIdToColor(other.ConnectionId)
		}
	}
	return colors
}

// SelectionBounds is the union of the bounds of ids, skipping ids that no
// longer resolve. ok is false when nothing resolved.
func SelectionBounds(ids []string, get func(id string) (models.Layer, bool)) (models.XYWH, bool) {
	left, top := math.Inf(1), math.Inf(1)
	right, bottom := math.Inf(-1), math.Inf(-1)
	found := false

	for _, id := range ids {
		layer, ok := get(id)
		if !ok {
			continue
		}
		found = true
		b := layer.Bounds()
		left = math.Min(left, b.X)
		top = math.Min(top, b.Y)
		right = math.Max(right, b.X+b.Width)
		bottom = math.Max(bottom, b.Y+b.Height)
	}
	if !found {
		return models.XYWH{}, false
	}
	return models.XYWH{X: left, Y: top, Width: right - left, Height: bottom - top}, true
}

// OtherSelectionColors is SelectionColors for this machine's participant.
func (m *Machine) OtherSelectionColors() map[string]string {
	return SelectionColors(m.presence.Others(), m.doc.Get)
}

// SelectionBounds is the bounding box of this participant's selection.
func (m *Machine) SelectionBounds() (models.XYWH, bool) {
	return SelectionBounds(m.presence.Self().Selection, m.doc.Get)
}
