package canvas

import (
	"slices"

	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

func (m *Machine) updateSelectionNet(net SelectionNet) {
	ids := geometry.FindIntersectingLayers(m.doc.LayerIds(), m.doc.Get, net.Origin, net.Current)
	if slices.Equal(ids, m.presence.Self().Selection) {
		return
	}
	m.setSelection(ids, false)
}

func (m *Machine) translateSelection(s Translating, p models.Point) {
	dx, dy := p.X-s.Current.X, p.Y-s.Current.Y
	selection := m.presence.Self().Selection

	m.doc.Batch(func(tx store.Tx) {
		for _, id := range selection {
			layer, ok := tx.Get(id)
			if !ok {
				continue
			}
			tx.Update(id, translatePatch(layer, dx, dy))
		}
	})
	m.state = Translating{Current: p}
}

func translatePatch(layer models.Layer, dx, dy float64) models.LayerPatch {
	b := layer.Bounds()
	patch := models.LayerPatch{X: models.Float(b.X + dx), Y: models.Float(b.Y + dy)}
	if rel, ok := layer.(models.ERDRelationshipLayer); ok {
		points := make([]models.Point, len(rel.Points))
		for i, pt := range rel.Points {
			points[i] = models.Point{X: pt.X + dx, Y: pt.Y + dy}
		}
		patch.Points = points
	}
	return patch
}

// resizeSelection resizes the first selected layer; the handles only exist for
// a single selection.
func (m *Machine) resizeSelection(s Resizing, p models.Point) {
	selection := m.presence.Self().Selection
	if len(selection) == 0 {
		return
	}
	bounds := geometry.ResizeBounds(s.InitialBounds, s.Corner, p)

	m.doc.Batch(func(tx store.Tx) {
		if _, ok := tx.Get(selection[0]); !ok {
			return
		}
		tx.Update(selection[0], models.LayerPatch{
			X:      models.Float(bounds.X),
			Y:      models.Float(bounds.Y),
			Width:  models.Float(bounds.Width),
			Height: models.Float(bounds.Height),
		})
	})
}

// DeleteSelection removes every selected layer and clears the selection as
// one undoable step.
func (m *Machine) DeleteSelection() {
	selection := m.presence.Self().Selection
	if len(selection) == 0 {
		return
	}

	m.doc.Batch(func(tx store.Tx) {
		for _, id := range selection {
			tx.Delete(id)
			if i := tx.IndexOf(id); i >= 0 {
				tx.DeleteIdAt(i)
			}
		}
		tx.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{})}, store.PresenceOptions{AddToHistory: true})
	})
	m.emit(EventLayersDeleted, selection...)
	m.emit(EventSelectionChanged)
}

// BringToFront moves the selected layers to the top, keeping their relative order.
func (m *Machine) BringToFront() {
	selection := m.presence.Self().Selection
	if len(selection) == 0 {
		return
	}
	m.doc.Batch(func(tx store.Tx) {
		for _, id := range selectedInOrder(tx.LayerIds(), selection) {
			tx.DeleteIdAt(tx.IndexOf(id))
			tx.PushId(id)
		}
	})
}

// SendToBack moves the selected layers to the bottom, keeping their relative order.
func (m *Machine) SendToBack() {
	selection := m.presence.Self().Selection
	if len(selection) == 0 {
		return
	}
	m.doc.Batch(func(tx store.Tx) {
		ids := selectedInOrder(tx.LayerIds(), selection)
		for i := len(ids) - 1; i >= 0; i-- {
			tx.DeleteIdAt(tx.IndexOf(ids[i]))
			tx.InsertId(0, ids[i])
		}
	})
}

// SetSelectionFill recolours the selection and makes fill the colour used
// for the next insert.
func (m *Machine) SetSelectionFill(fill models.Color) {
	m.style.Fill = fill
	selection := m.presence.Self().Selection
	if len(selection) == 0 {
		return
	}
	m.doc.Batch(func(tx store.Tx) {
		for _, id := range selection {
			if _, ok := tx.Get(id); ok {
				tx.Update(id, models.LayerPatch{Fill: &fill})
			}
		}
	})
}

func selectedInOrder(layerIds, selection []string) []string {
	ids := make([]string, 0, len(selection))
	for _, id := range layerIds {
		if slices.Contains(selection, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
