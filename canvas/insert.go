package canvas

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/shapes"
	"github.com/zlnvch/whiteboard/store"
)

var relationshipStroke = models.RGB(100, 116, 139)

// insertLayer places a new layer of kind. A release within the selection
// threshold of the anchor is a click and gets the tool's default size;
// anything longer is a drag sized by the rectangle, clamped to the tool minimum.
func (m *Machine) insertLayer(kind models.LayerType, anchor, release models.Point) {
	tool, ok := shapes.Lookup(kind)
	if !ok {
		m.state = None{}
		return
	}

	var bounds models.XYWH
	if geometry.ManhattanDistance(anchor, release) <= m.cfg.MultiSelectThreshold {
		bounds = models.XYWH{X: anchor.X, Y: anchor.Y, Width: tool.DefaultWidth, Height: tool.DefaultHeight}
	} else {
		bounds = geometry.RectFromPoints(anchor, release)
		bounds.Width = math.Max(bounds.Width, tool.MinWidth)
		bounds.Height = math.Max(bounds.Height, tool.MinHeight)
	}

	id := m.ids.NewId()
	layer, err := shapes.NewLayer(kind, id, bounds, m.style)
	if err != nil {
		m.logger.Warn("failed to build layer", zap.Stringer("kind", kind), zap.Error(err))
		m.state = None{}
		return
	}

	inserted := false
	m.doc.Batch(func(tx store.Tx) {
		if m.full(tx.Size()) {
			return
		}
		tx.PushId(id)
		tx.Set(id, layer)
		tx.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{id})}, store.PresenceOptions{AddToHistory: true})
		inserted = true
	})
	if !inserted {
		// Stay armed so the user can retry once there is room.
		m.state = Inserting{Kind: kind}
		m.limitReached()
		return
	}

	m.state = None{}
	k := kind
	m.emitter.Emit(Event{Type: EventLayerInserted, LayerIds: []string{id}, Kind: &k})
	m.emit(EventSelectionChanged, id)
}

func (m *Machine) startDrawing(p models.Point, pressure float64) {
	pen := m.style.Fill
	m.presence.SetMyPresence(models.PresencePatch{
		PencilDraft: models.Some([][3]float64{{p.X, p.Y, pressure}}),
		PenColor:    models.Some(&pen),
	}, store.PresenceOptions{})
}

// continueDrawing appends a sample to the draft. A move that repeats the only
// sample so far is dropped.
func (m *Machine) continueDrawing(p models.Point, pressure float64) {
	draft := m.presence.Self().PencilDraft
	if len(draft) == 0 {
		return
	}
	if len(draft) == 1 && draft[0][0] == p.X && draft[0][1] == p.Y {
		return
	}
	draft = append(draft, [3]float64{p.X, p.Y, pressure})
	m.presence.SetMyPresence(models.PresencePatch{
		Cursor:      models.Some(&p),
		PencilDraft: models.Some(draft),
	}, store.PresenceOptions{})
}

// insertPath turns the draft into a path layer and clears it. Drafts shorter
// than two samples, or drawn while the board is full, are discarded.
func (m *Machine) insertPath() {
	self := m.presence.Self()
	clearDraft := models.PresencePatch{PencilDraft: models.Some[[][3]float64](nil)}
	if len(self.PencilDraft) == 0 {
		return
	}

	fill := m.style.Fill
	if self.PenColor != nil {
		fill = *self.PenColor
	}
	layer, err := geometry.PenPointsToPathLayer(self.PencilDraft, fill)
	if err != nil {
		m.presence.SetMyPresence(clearDraft, store.PresenceOptions{})
		return
	}

	id := m.ids.NewId()
	inserted := false
	m.doc.Batch(func(tx store.Tx) {
		tx.SetMyPresence(clearDraft, store.PresenceOptions{})
		if m.full(tx.Size()) {
			return
		}
		tx.PushId(id)
		tx.Set(id, layer)
		inserted = true
	})
	if !inserted {
		m.limitReached()
		return
	}
	m.emit(EventPathInserted, id)
}

// eraseAt deletes the topmost layer whose bounds contain p, at most one per call.
func (m *Machine) eraseAt(p models.Point) {
	var erased string
	m.doc.Batch(func(tx store.Tx) {
		ids := tx.LayerIds()
		for i := len(ids) - 1; i >= 0; i-- {
			layer, ok := tx.Get(ids[i])
			if !ok || !geometry.Contains(layer.Bounds(), p) {
				continue
			}
			erased = ids[i]
			tx.Delete(erased)
			tx.DeleteIdAt(i)
			return
		}
	})
	if erased == "" {
		return
	}

	selection := m.presence.Self().Selection
	if i := slices.Index(selection, erased); i >= 0 {
		m.setSelection(slices.Delete(selection, i, i+1), false)
	}
	m.emit(EventLayerErased, erased)
}

// connectEntity advances a two-click ERD connection. Clicks on anything but
// an entity are ignored; clicking the source again cancels.
func (m *Machine) connectEntity(s ERDConnecting, layerId string) {
	layer, ok := m.doc.Get(layerId)
	if !ok || layer.Type() != models.LayerERDEntity {
		return
	}

	switch s.SourceId {
	case "":
		m.state = ERDConnecting{SourceId: layerId}
		m.emit(EventConnectionStarted, layerId)
	case layerId:
		m.cancelConnection(s)
	default:
		id, ok := m.createRelationship(s.SourceId, layerId)
		m.state = None{}
		if ok {
			m.emit(EventRelationshipCreated, id, s.SourceId, layerId)
		}
	}
}

func (m *Machine) cancelConnection(s ERDConnecting) {
	if s.SourceId == "" {
		return
	}
	m.state = ERDConnecting{}
	m.emit(EventConnectionCancelled, s.SourceId)
}

func (m *Machine) createRelationship(fromId, toId string) (string, bool) {
	id := m.ids.NewId()
	inserted, full := false, false

	m.doc.Batch(func(tx store.Tx) {
		if m.full(tx.Size()) {
			full = true
			return
		}
		fromLayer, ok := tx.Get(fromId)
		if !ok {
			return
		}
		toLayer, ok := tx.Get(toId)
		if !ok {
			return
		}
		from, _ := fromLayer.(models.ERDEntityLayer)

		fromCenter := center(fromLayer.Bounds())
		toCenter := center(toLayer.Bounds())
		stroke := relationshipStroke

		tableName := from.TableName
		if tableName == "" {
			tableName = "entity"
		}

		tx.PushId(id)
		tx.Set(id, models.ERDRelationshipLayer{
			Base: models.Base{
				X:           math.Min(fromCenter.X, toCenter.X),
				Y:           math.Min(fromCenter.Y, toCenter.Y),
				Width:       math.Abs(toCenter.X - fromCenter.X),
				Height:      math.Abs(toCenter.Y - fromCenter.Y),
				Fill:        stroke,
				Stroke:      &stroke,
				StrokeWidth: 2,
			},
			RelationshipId: id,
			FromEntityId:   fromId,
			ToEntityId:     toId,
			Cardinality:    models.OneToMany,
			FromField:      "id",
			ToField:        tableName + "_id",
			Points:         []models.Point{fromCenter, toCenter},
		})
		inserted = true
	})

	if full {
		m.limitReached()
	}
	return id, inserted
}

func center(b models.XYWH) models.Point {
	return models.Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}
