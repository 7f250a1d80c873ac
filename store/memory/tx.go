package memory

import (
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

type opKind int

const (
	opSet opKind = iota
	opDelete
	opInsertId
	opRemoveId
	opPresence
)

// op is one primitive mutation. History entries are lists of ops that undo
// the recorded mutations when replayed back to front.
type op struct {
	kind     opKind
	id       string
	layer    models.Layer
	index    int
	presence models.PresencePatch
}

// tx applies mutations to a locked room and records their inverses.
type tx struct {
	room    *Room
	conn    *Conn
	inverse []op

	upserts         map[string]models.Layer
	deletes         map[string]struct{}
	orderChanged    bool
	presenceChanged bool
}

var _ store.Tx = (*tx)(nil)

func newTx(room *Room, conn *Conn) *tx {
	return &tx{
		room:    room,
		conn:    conn,
		upserts: make(map[string]models.Layer),
		deletes: make(map[string]struct{}),
	}
}

func (t *tx) Get(id string) (models.Layer, bool) {
	layer, ok := t.room.layers[id]
	return layer, ok
}

func (t *tx) Set(id string, layer models.Layer) {
	if layer == nil {
		return
	}
	if prev, ok := t.room.layers[id]; ok {
		t.inverse = append(t.inverse, op{kind: opSet, id: id, layer: prev})
	} else {
		t.inverse = append(t.inverse, op{kind: opDelete, id: id})
	}
	t.room.layers[id] = layer
	t.upserts[id] = layer
	delete(t.deletes, id)
}

func (t *tx) Delete(id string) {
	prev, ok := t.room.layers[id]
	if !ok {
		return
	}
	t.inverse = append(t.inverse, op{kind: opSet, id: id, layer: prev})
	delete(t.room.layers, id)
	delete(t.upserts, id)
	t.deletes[id] = struct{}{}
}

func (t *tx) Update(id string, patch models.LayerPatch) {
	prev, ok := t.room.layers[id]
	if !ok {
		return
	}
	t.Set(id, models.ApplyPatch(prev, patch))
}

func (t *tx) Size() int {
	return len(t.room.layers)
}

func (t *tx) LayerIds() []string {
	return append([]string(nil), t.room.layerIds...)
}

func (t *tx) PushId(id string) {
	t.InsertId(len(t.room.layerIds), id)
}

// InsertId keeps ids unique: an id already in the list is left where it is.
func (t *tx) InsertId(index int, id string) {
	if t.IndexOf(id) >= 0 {
		return
	}
	ids := t.room.layerIds
	index = max(0, min(index, len(ids)))

	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	t.room.layerIds = ids

	t.inverse = append(t.inverse, op{kind: opRemoveId, id: id})
	t.orderChanged = true
}

func (t *tx) DeleteIdAt(index int) {
	ids := t.room.layerIds
	if index < 0 || index >= len(ids) {
		return
	}
	id := ids[index]
	t.room.layerIds = append(ids[:index], ids[index+1:]...)

	t.inverse = append(t.inverse, op{kind: opInsertId, id: id, index: index})
	t.orderChanged = true
}

func (t *tx) IndexOf(id string) int {
	for i, existing := range t.room.layerIds {
		if existing == id {
			return i
		}
	}
	return -1
}

func (t *tx) SetMyPresence(patch models.PresencePatch, opts store.PresenceOptions) {
	if t.conn == nil {
		return
	}
	prev := t.conn.presence
	t.conn.presence = prev.Apply(patch)
	t.presenceChanged = true

	if opts.AddToHistory {
		t.inverse = append(t.inverse, op{kind: opPresence, presence: inversePresencePatch(prev, patch)})
	}
}

// inversePresencePatch restores only the fields the patch touched.
func inversePresencePatch(prev models.Presence, patch models.PresencePatch) models.PresencePatch {
	prev = prev.Clone()
	var inv models.PresencePatch
	if patch.Cursor.Set {
		inv.Cursor = models.Some(prev.Cursor)
	}
	if patch.Selection.Set {
		inv.Selection = models.Some(prev.Selection)
	}
	if patch.PencilDraft.Set {
		inv.PencilDraft = models.Some(prev.PencilDraft)
	}
	if patch.PenColor.Set {
		inv.PenColor = models.Some(prev.PenColor)
	}
	return inv
}

// replay applies a history entry back to front, recording its own inverse.
// A layer someone else deleted since the entry was recorded stays deleted
// unless the entry itself restores both its value and its id.
func (t *tx) replay(entry []op) {
	restores := restoredIds(entry)
	gone := func(id string) bool {
		_, ok := t.room.layers[id]
		return !ok && !restores[id]
	}

	for i := len(entry) - 1; i >= 0; i-- {
		o := entry[i]
		switch o.kind {
		case opSet:
			if gone(o.id) {
				continue
			}
			t.Set(o.id, o.layer)
		case opDelete:
			t.Delete(o.id)
		case opInsertId:
			if gone(o.id) {
				continue
			}
			t.InsertId(o.index, o.id)
		case opRemoveId:
			if idx := t.IndexOf(o.id); idx >= 0 {
				t.DeleteIdAt(idx)
			}
		case opPresence:
			t.SetMyPresence(o.presence, store.PresenceOptions{AddToHistory: true})
		}
	}
}

// restoredIds are the ids an entry brings back whole: it sets the layer and
// reinserts the id.
func restoredIds(entry []op) map[string]bool {
	sets := make(map[string]bool)
	inserts := make(map[string]bool)
	for _, o := range entry {
		switch o.kind {
		case opSet:
			sets[o.id] = true
		case opInsertId:
			inserts[o.id] = true
		}
	}
	restores := make(map[string]bool)
	for id := range sets {
		if inserts[id] {
			restores[id] = true
		}
	}
	return restores
}

func (t *tx) change() Change {
	c := Change{}
	if t.conn != nil {
		c.Origin = t.conn.id
	}
	if len(t.upserts) > 0 {
		c.Upserts = t.upserts
	}
	for id := range t.deletes {
		c.Deletes = append(c.Deletes, id)
	}
	if t.orderChanged {
		c.LayerIds = append([]string{}, t.room.layerIds...)
	}
	if t.presenceChanged && t.conn != nil {
		c.Presence = &PresenceChange{
			ConnectionId: t.conn.id,
			UserId:       t.conn.user.Id,
			UserName:     t.conn.user.Name,
			Presence:     t.conn.presence.Clone(),
		}
	}
	return c
}
