package canvas_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/store/memory"
)

type seqIds struct{ n int }

func (s *seqIds) NewId() string {
	s.n++
	return fmt.Sprintf("id%d", s.n)
}

type recorder struct{ events []canvas.Event }

func (r *recorder) Emit(e canvas.Event) { r.events = append(r.events, e) }

func (r *recorder) types() []canvas.EventType {
	types := make([]canvas.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

type fixture struct {
	m      *canvas.Machine
	conn   *memory.Conn
	room   *memory.Room
	events *recorder
}

func newFixture(t *testing.T, snapshot models.BoardSnapshot, cfg canvas.Config) fixture {
	t.Helper()
	room := memory.NewRoom(snapshot)
	conn := room.Connect(models.User{Id: "u1", Name: "Alice"})
	m := canvas.NewMachine(conn, conn, conn, &seqIds{}, cfg, zaptest.NewLogger(t))
	events := &recorder{}
	m.SetEmitter(events)
	return fixture{m: m, conn: conn, room: room, events: events}
}

func rectAt(x, y, w, h float64) models.Layer {
	return models.RectangleLayer{Base: models.Base{X: x, Y: y, Width: w, Height: h}}
}

func board(ids []string, layers ...models.Layer) models.BoardSnapshot {
	snapshot := models.BoardSnapshot{LayerIds: ids, Layers: map[string]models.Layer{}}
	for i, id := range ids {
		snapshot.Layers[id] = layers[i]
	}
	return snapshot
}

func at(x, y float64) canvas.PointerEvent {
	return canvas.PointerEvent{ClientX: x, ClientY: y, Pressure: 0.5}
}

func drag(x, y float64) canvas.PointerEvent {
	e := at(x, y)
	e.Buttons = 1
	return e
}

func bounds(t *testing.T, conn *memory.Conn, id string) models.XYWH {
	t.Helper()
	layer, ok := conn.Get(id)
	require.True(t, ok, "layer %s missing", id)
	return layer.Bounds()
}

func TestInsert_ClickUsesDefaultSize(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerRectangle)
	f.m.PointerDown(at(10, 20))
	f.m.PointerUp(at(12, 21))

	assert.Equal(t, models.XYWH{X: 10, Y: 20, Width: 100, Height: 100}, bounds(t, f.conn, "id1"))
	assert.Equal(t, []string{"id1"}, f.conn.LayerIds())
	assert.Equal(t, []string{"id1"}, f.m.Selection())
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
	assert.Contains(t, f.events.types(), canvas.EventLayerInserted)
}

func TestInsert_DragClampsToMinimum(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerEllipse)
	f.m.PointerDown(at(100, 100))
	f.m.PointerUp(at(110, 170))
	assert.Equal(t, models.XYWH{X: 100, Y: 100, Width: 50, Height: 70}, bounds(t, f.conn, "id1"))

	f.m.BeginInsert(models.LayerEllipse)
	f.m.PointerDown(at(200, 200))
	f.m.PointerUp(at(100, 120))
	assert.Equal(t, models.XYWH{X: 100, Y: 120, Width: 100, Height: 80}, bounds(t, f.conn, "id2"))
}

func TestInsert_ERDEntityDefaults(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerERDEntity)
	f.m.PointerDown(at(0, 0))
	f.m.PointerUp(at(30, 30))

	layer, ok := f.conn.Get("id1")
	require.True(t, ok)
	entity, ok := layer.(models.ERDEntityLayer)
	require.True(t, ok)
	assert.Equal(t, 200.0, entity.Width)
	assert.Equal(t, 120.0, entity.Height)
	require.Len(t, entity.Fields, 1)
	assert.True(t, entity.Fields[0].IsPrimaryKey)
}

func TestInsert_WithoutAnchorTreatsReleaseAsClick(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerNote)
	f.m.PointerUp(at(40, 50))

	assert.Equal(t, models.XYWH{X: 40, Y: 50, Width: 100, Height: 100}, bounds(t, f.conn, "id1"))
}

func TestInsert_NoopAtCapacity(t *testing.T) {
	cfg := canvas.DefaultConfig()
	cfg.MaxLayers = 2
	f := newFixture(t, board([]string{"a", "b"}, rectAt(0, 0, 10, 10), rectAt(20, 20, 10, 10)), cfg)

	f.m.BeginInsert(models.LayerRectangle)
	f.m.PointerDown(at(100, 100))
	f.m.PointerUp(at(100, 100))

	assert.Equal(t, 2, f.conn.Size())
	assert.Equal(t, canvas.ModeInserting, f.m.State().Mode())
	assert.Contains(t, f.events.types(), canvas.EventLayerLimitReached)
	assert.False(t, f.conn.CanUndo())
}

func TestInsert_UndoRemovesLayerAndSelection(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerRectangle)
	f.m.PointerDown(at(0, 0))
	f.m.PointerUp(at(0, 0))
	require.Equal(t, 1, f.conn.Size())

	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	assert.Equal(t, 0, f.conn.Size())
	assert.Empty(t, f.m.Selection())

	f.m.KeyDown(canvas.KeyEvent{Key: "Z", Meta: true, Shift: true})
	assert.Equal(t, 1, f.conn.Size())
	assert.Equal(t, []string{"id1"}, f.m.Selection())
}

func TestBeginInsert_IgnoresNonInsertableKind(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerPath)

	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
}

func TestEscape_DisarmsInserting(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.BeginInsert(models.LayerDiamond)
	f.m.KeyDown(canvas.KeyEvent{Key: "Escape"})

	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
}

func TestPressing_BecomesSelectionNetPastThreshold(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b"}, rectAt(0, 0, 10, 10), rectAt(100, 100, 10, 10)), canvas.DefaultConfig())

	f.m.PointerDown(at(-5, -5))
	assert.Equal(t, canvas.ModePressing, f.m.State().Mode())

	f.m.PointerMove(at(-3, -4))
	assert.Equal(t, canvas.ModePressing, f.m.State().Mode())

	f.m.PointerMove(at(20, 20))
	assert.Equal(t, canvas.ModeSelectionNet, f.m.State().Mode())
	assert.Equal(t, []string{"a"}, f.m.Selection())

	f.m.PointerMove(at(120, 120))
	assert.Equal(t, []string{"a", "b"}, f.m.Selection())

	f.m.PointerUp(at(120, 120))
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
	assert.Equal(t, []string{"a", "b"}, f.m.Selection())
}

func TestClickOnEmptyCanvas_ClearsSelection(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a"})}, store.PresenceOptions{})

	f.m.PointerDown(at(500, 500))
	f.m.PointerUp(at(500, 500))

	assert.Empty(t, f.m.Selection())
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
}

func TestTranslate_IsOneUndoStep(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())

	f.m.LayerPointerDown(at(5, 5), "a")
	assert.Equal(t, canvas.ModeTranslating, f.m.State().Mode())
	assert.Equal(t, []string{"a"}, f.m.Selection())

	f.m.PointerMove(at(15, 5))
	f.m.PointerMove(at(25, 10))
	f.m.PointerUp(at(25, 10))

	b := bounds(t, f.conn, "a")
	assert.Equal(t, 20.0, b.X)
	assert.Equal(t, 5.0, b.Y)
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())

	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	b = bounds(t, f.conn, "a")
	assert.Equal(t, 0.0, b.X)
	assert.Equal(t, 0.0, b.Y)
	assert.Empty(t, f.m.Selection())
	assert.False(t, f.conn.CanUndo())
}

func TestTranslate_MovesRelationshipPoints(t *testing.T) {
	rel := models.ERDRelationshipLayer{
		Base:   models.Base{X: 0, Y: 0, Width: 10, Height: 10},
		Points: []models.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
	}
	f := newFixture(t, board([]string{"r"}, rel), canvas.DefaultConfig())

	f.m.LayerPointerDown(at(5, 5), "r")
	f.m.PointerMove(at(8, 9))
	f.m.PointerUp(at(8, 9))

	layer, _ := f.conn.Get("r")
	moved := layer.(models.ERDRelationshipLayer)
	assert.Equal(t, []models.Point{{X: 3, Y: 4}, {X: 13, Y: 14}}, moved.Points)
	assert.Equal(t, 3.0, moved.X)
}

func TestLayerPointerDown_KeepsMultiSelection(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b"}, rectAt(0, 0, 10, 10), rectAt(20, 0, 10, 10)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a", "b"})}, store.PresenceOptions{})

	f.m.LayerPointerDown(at(5, 5), "a")
	f.m.PointerMove(at(6, 5))
	f.m.PointerUp(at(6, 5))

	assert.Equal(t, []string{"a", "b"}, f.m.Selection())
	assert.Equal(t, 1.0, bounds(t, f.conn, "a").X)
	assert.Equal(t, 21.0, bounds(t, f.conn, "b").X)
}

func TestResize(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a"})}, store.PresenceOptions{})

	f.m.ResizeHandleDown(models.SideBottom|models.SideRight, models.XYWH{Width: 10, Height: 10})
	f.m.PointerMove(at(30, 40))
	assert.Equal(t, models.XYWH{Width: 30, Height: 40}, bounds(t, f.conn, "a"))

	f.m.PointerMove(at(-10, 5))
	assert.Equal(t, models.XYWH{X: -10, Width: 10, Height: 5}, bounds(t, f.conn, "a"))

	f.m.PointerUp(at(-10, 5))
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())

	f.conn.Undo()
	assert.Equal(t, models.XYWH{Width: 10, Height: 10}, bounds(t, f.conn, "a"))
}

func TestPencil(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())
	f.m.EnterPencil()

	f.m.PointerDown(at(0, 0))
	f.m.PointerMove(drag(0, 0))
	assert.Len(t, f.conn.Self().PencilDraft, 1, "duplicate first sample is skipped")

	f.m.PointerMove(drag(10, 10))
	f.m.PointerMove(drag(20, 5))
	f.m.PointerMove(at(30, 30))
	assert.Len(t, f.conn.Self().PencilDraft, 3, "moves without the primary button do not draw")

	f.m.PointerUp(at(20, 5))

	layer, ok := f.conn.Get("id1")
	require.True(t, ok)
	path, ok := layer.(models.PathLayer)
	require.True(t, ok)
	assert.Equal(t, models.XYWH{Width: 20, Height: 10}, path.Bounds())
	assert.Equal(t, [3]float64{10, 10, 0.5}, path.Points[1])
	assert.Empty(t, f.conn.Self().PencilDraft)
	assert.Equal(t, canvas.ModePencil, f.m.State().Mode())
}

func TestPencil_SingleSampleIsDiscarded(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())
	f.m.EnterPencil()

	f.m.PointerDown(at(5, 5))
	f.m.PointerUp(at(5, 5))

	assert.Equal(t, 0, f.conn.Size())
	assert.Empty(t, f.conn.Self().PencilDraft)
}

func TestPencil_LeaveFinalisesDraft(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())
	f.m.EnterPencil()

	f.m.PointerDown(at(0, 0))
	f.m.PointerMove(drag(10, 10))
	f.m.PointerLeave(at(10, 10))

	assert.Equal(t, 1, f.conn.Size())
	assert.Nil(t, f.conn.Self().Cursor)
}

func TestEraser_RemovesTopmostOnePerEvent(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b"}, rectAt(0, 0, 10, 10), rectAt(5, 5, 10, 10)), canvas.DefaultConfig())
	f.m.EnterEraser()

	f.m.PointerDown(at(7, 7))
	assert.Equal(t, []string{"a"}, f.conn.LayerIds())

	f.m.PointerMove(drag(50, 50))
	assert.Equal(t, []string{"a"}, f.conn.LayerIds())

	f.m.PointerMove(at(2, 2))
	assert.Equal(t, []string{"a"}, f.conn.LayerIds(), "hover does not erase")

	f.m.PointerMove(drag(2, 2))
	assert.Empty(t, f.conn.LayerIds())
	assert.Equal(t, 0, f.conn.Size())

	f.m.PointerUp(at(2, 2))
	assert.Equal(t, canvas.ModeEraser, f.m.State().Mode())
	assert.Equal(t, []canvas.EventType{canvas.EventLayerErased, canvas.EventLayerErased}, f.events.types())
}

func entity(x, y float64, table string) models.Layer {
	return models.ERDEntityLayer{Base: models.Base{X: x, Y: y, Width: 200, Height: 120}, TableName: table}
}

func TestERDConnect(t *testing.T) {
	f := newFixture(t, board([]string{"e1", "e2", "r"},
		entity(0, 0, "users"), entity(400, 0, "orders"), rectAt(0, 300, 10, 10)), canvas.DefaultConfig())
	f.m.EnterERDConnect()

	f.m.LayerPointerDown(at(5, 305), "r")
	assert.Equal(t, canvas.ERDConnecting{}, f.m.State())

	f.m.LayerPointerDown(at(10, 10), "e1")
	assert.Equal(t, canvas.ERDConnecting{SourceId: "e1"}, f.m.State())

	f.m.LayerPointerDown(at(10, 10), "e1")
	assert.Equal(t, canvas.ERDConnecting{}, f.m.State(), "clicking the source again cancels")

	f.m.LayerPointerDown(at(10, 10), "e1")
	f.m.PointerDown(at(300, 500))
	assert.Equal(t, canvas.ERDConnecting{}, f.m.State(), "empty canvas cancels but stays connecting")

	f.m.LayerPointerDown(at(10, 10), "e1")
	f.m.LayerPointerDown(at(410, 10), "e2")
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())

	layer, ok := f.conn.Get("id1")
	require.True(t, ok)
	rel, ok := layer.(models.ERDRelationshipLayer)
	require.True(t, ok)
	assert.Equal(t, "e1", rel.FromEntityId)
	assert.Equal(t, "e2", rel.ToEntityId)
	assert.Equal(t, models.OneToMany, rel.Cardinality)
	assert.Equal(t, "id", rel.FromField)
	assert.Equal(t, "users_id", rel.ToField)
	assert.Equal(t, []models.Point{{X: 100, Y: 60}, {X: 500, Y: 60}}, rel.Points)
	assert.Equal(t, models.XYWH{X: 100, Y: 60, Width: 400}, rel.Bounds())
	assert.Equal(t, "id1", f.conn.LayerIds()[3])

	assert.Equal(t, []canvas.EventType{
		canvas.EventConnectionStarted,
		canvas.EventConnectionCancelled,
		canvas.EventConnectionStarted,
		canvas.EventConnectionCancelled,
		canvas.EventConnectionStarted,
		canvas.EventRelationshipCreated,
	}, f.events.types())
}

func TestERDConnect_EscapeCancels(t *testing.T) {
	f := newFixture(t, board([]string{"e1"}, entity(0, 0, "")), canvas.DefaultConfig())
	f.m.EnterERDConnect()
	f.m.LayerPointerDown(at(10, 10), "e1")

	f.m.KeyDown(canvas.KeyEvent{Key: "Escape"})

	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
	assert.Contains(t, f.events.types(), canvas.EventConnectionCancelled)
}

func TestLayerDoubleClick_RequestsEntityEdit(t *testing.T) {
	f := newFixture(t, board([]string{"e1", "r"}, entity(0, 0, "users"), rectAt(0, 300, 10, 10)), canvas.DefaultConfig())

	f.m.LayerDoubleClick("r")
	f.m.LayerDoubleClick("missing")
	assert.Empty(t, f.events.events)

	f.m.LayerDoubleClick("e1")
	require.Len(t, f.events.events, 1)
	assert.Equal(t, canvas.Event{Type: canvas.EventEntityEditRequested, LayerIds: []string{"e1"}}, f.events.events[0])

	f.m.EnterPencil()
	f.m.LayerDoubleClick("e1")
	assert.Len(t, f.events.events, 1)
}

func TestDeleteSelection(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b", "c"}, rectAt(0, 0, 1, 1), rectAt(1, 1, 1, 1), rectAt(2, 2, 1, 1)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a", "c"})}, store.PresenceOptions{})

	f.m.KeyDown(canvas.KeyEvent{Key: "Delete"})
	assert.Equal(t, []string{"b"}, f.conn.LayerIds())
	assert.Equal(t, 1, f.conn.Size())
	assert.Empty(t, f.m.Selection())

	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	assert.Equal(t, []string{"a", "b", "c"}, f.conn.LayerIds())
	assert.Equal(t, []string{"a", "c"}, f.m.Selection())
}

func TestReorder(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b", "c", "d"},
		rectAt(0, 0, 1, 1), rectAt(0, 0, 1, 1), rectAt(0, 0, 1, 1), rectAt(0, 0, 1, 1)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"c", "a"})}, store.PresenceOptions{})

	f.m.BringToFront()
	assert.Equal(t, []string{"b", "d", "a", "c"}, f.conn.LayerIds())

	f.m.SendToBack()
	assert.Equal(t, []string{"a", "c", "b", "d"}, f.conn.LayerIds())
}

func TestSetSelectionFill(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 1, 1)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a", "gone"})}, store.PresenceOptions{})
	red := models.RGB(255, 0, 0)

	f.m.SetSelectionFill(red)

	layer, _ := f.conn.Get("a")
	assert.Equal(t, red, layer.(models.RectangleLayer).Fill)
	assert.Equal(t, red, f.m.Style().Fill)
	assert.Equal(t, 1, f.conn.Size())
}

func TestPointerLeave_EndsGesture(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())

	f.m.LayerPointerDown(at(5, 5), "a")
	f.m.PointerMove(at(10, 5))
	assert.False(t, f.conn.CanUndo(), "edits are held while the gesture is open")

	f.m.PointerLeave(at(10, 5))
	assert.True(t, f.conn.CanUndo())
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
	assert.Nil(t, f.conn.Self().Cursor)
}

func TestClose_ResumesHistory(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())

	f.m.LayerPointerDown(at(5, 5), "a")
	f.m.PointerMove(at(6, 5))
	f.m.Close()

	assert.True(t, f.conn.CanUndo())
}

func TestPointerMove_PublishesCursor(t *testing.T) {
	f := newFixture(t, models.BoardSnapshot{}, canvas.DefaultConfig())

	f.m.PointerMove(at(12, 34))

	cursor := f.conn.Self().Cursor
	require.NotNil(t, cursor)
	assert.Equal(t, models.Point{X: 12, Y: 34}, *cursor)
}

func TestUndoIsHeldDuringGesture(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())
	f.m.BeginInsert(models.LayerRectangle)
	f.m.PointerDown(at(100, 100))
	f.m.PointerUp(at(100, 100))
	require.Equal(t, 2, f.conn.Size())

	f.m.LayerPointerDown(at(5, 5), "a")
	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	assert.Equal(t, 2, f.conn.Size())

	f.m.PointerUp(at(5, 5))
}

func removeAs(conn *memory.Conn, id string) {
	conn.Batch(func(tx store.Tx) {
		tx.Delete(id)
		if i := tx.IndexOf(id); i >= 0 {
			tx.DeleteIdAt(i)
		}
	})
}

func assertConsistent(t *testing.T, conn *memory.Conn) {
	t.Helper()
	ids := conn.LayerIds()
	assert.Equal(t, len(ids), conn.Size(), "every layer has exactly one id")
	for _, id := range ids {
		_, ok := conn.Get(id)
		assert.True(t, ok, "id %s has no layer", id)
	}
}

func TestUndoTranslate_AfterOtherParticipantDeleted(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b"}, rectAt(0, 0, 10, 10), rectAt(50, 50, 10, 10)), canvas.DefaultConfig())
	bob := f.room.Connect(models.User{Id: "u2", Name: "Bob"})

	f.m.LayerPointerDown(at(5, 5), "a")
	f.m.PointerMove(at(15, 5))
	f.m.PointerUp(at(15, 5))
	require.Equal(t, 10.0, bounds(t, f.conn, "a").X)

	removeAs(bob, "a")

	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	assert.Equal(t, []string{"b"}, f.conn.LayerIds())
	assert.Equal(t, 1, f.conn.Size())
	assertConsistent(t, f.conn)
}

func TestTranslate_KeepsRelativePositions(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b", "c"},
		rectAt(0, 0, 10, 10), rectAt(30, 10, 20, 20), rectAt(70, 50, 5, 5)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a", "b", "c"})}, store.PresenceOptions{})

	before := map[string]models.XYWH{}
	for _, id := range []string{"a", "b", "c"} {
		before[id] = bounds(t, f.conn, id)
	}

	f.m.LayerPointerDown(at(35, 15), "b")
	f.m.PointerMove(at(47, 8))
	f.m.PointerMove(at(60, -20))
	f.m.PointerUp(at(60, -20))

	assert.Equal(t, []string{"a", "b", "c"}, f.m.Selection())
	for id, b := range before {
		after := bounds(t, f.conn, id)
		assert.Equal(t, b.X+25, after.X, id)
		assert.Equal(t, b.Y-35, after.Y, id)
		assert.Equal(t, b.Width, after.Width, id)
		assert.Equal(t, b.Height, after.Height, id)
	}
	a, b, c := bounds(t, f.conn, "a"), bounds(t, f.conn, "b"), bounds(t, f.conn, "c")
	assert.Equal(t, 30.0, b.X-a.X)
	assert.Equal(t, 40.0, c.X-b.X)
	assert.Equal(t, 40.0, c.Y-b.Y)
}

func TestSelectionNet_IsIdempotent(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b", "c"},
		rectAt(10, 10, 20, 20), rectAt(250, 250, 20, 20), rectAt(400, 400, 10, 10)), canvas.DefaultConfig())

	net := func() {
		f.m.PointerDown(at(0, 0))
		f.m.PointerMove(at(150, 150))
		f.m.PointerMove(at(300, 300))
		f.m.PointerUp(at(300, 300))
	}

	net()
	first := f.m.Selection()
	assert.Equal(t, []string{"a", "b"}, first)
	snapshot := f.room.Snapshot()

	net()
	assert.Equal(t, first, f.m.Selection())
	assert.Equal(t, snapshot, f.room.Snapshot())
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
	assertConsistent(t, f.conn)
}

func TestInsert_SequenceUpToAndPastCapacity(t *testing.T) {
	cfg := canvas.DefaultConfig()
	cfg.MaxLayers = 3
	f := newFixture(t, models.BoardSnapshot{}, cfg)

	for i := 1; i <= 5; i++ {
		x := float64(i * 150)
		f.m.BeginInsert(models.LayerEllipse)
		f.m.PointerDown(at(x, 0))
		f.m.PointerUp(at(x, 0))

		want := min(i, cfg.MaxLayers)
		assert.Len(t, f.conn.LayerIds(), want, "after insert %d", i)
		assert.Equal(t, want, f.conn.Size(), "after insert %d", i)
		assertConsistent(t, f.conn)
	}

	assert.Equal(t, []string{"id1", "id2", "id3"}, f.conn.LayerIds())
	assert.Contains(t, f.events.types(), canvas.EventLayerLimitReached)
}

func TestTranslate_TargetDeletedMidGesture(t *testing.T) {
	f := newFixture(t, board([]string{"a", "b"}, rectAt(0, 0, 10, 10), rectAt(50, 50, 10, 10)), canvas.DefaultConfig())
	bob := f.room.Connect(models.User{Id: "u2", Name: "Bob"})

	f.m.LayerPointerDown(at(5, 5), "a")
	f.m.PointerMove(at(8, 5))
	removeAs(bob, "a")
	f.m.PointerMove(at(20, 5))
	f.m.PointerUp(at(20, 5))

	_, ok := f.conn.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, f.conn.LayerIds())
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())
	assertConsistent(t, f.conn)
}

func TestResize_TargetDeletedMidGesture(t *testing.T) {
	f := newFixture(t, board([]string{"a"}, rectAt(0, 0, 10, 10)), canvas.DefaultConfig())
	f.conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a"})}, store.PresenceOptions{})
	bob := f.room.Connect(models.User{Id: "u2", Name: "Bob"})

	f.m.ResizeHandleDown(models.SideBottom|models.SideRight, models.XYWH{Width: 10, Height: 10})
	removeAs(bob, "a")
	f.m.PointerMove(at(30, 40))
	f.m.PointerUp(at(30, 40))

	assert.Equal(t, 0, f.conn.Size())
	assert.Empty(t, f.conn.LayerIds())
	assert.Equal(t, canvas.ModeNone, f.m.State().Mode())

	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	assert.Equal(t, 0, f.conn.Size())
	assertConsistent(t, f.conn)
}

func TestSetLayerValue(t *testing.T) {
	f := newFixture(t, board([]string{"t", "n", "s", "r"},
		models.TextLayer{Value: "old"},
		models.NoteLayer{Value: "old"},
		models.ShapeLayer{Text: "old"},
		rectAt(0, 0, 10, 10)), canvas.DefaultConfig())

	for _, id := range []string{"t", "n", "s"} {
		f.m.SetLayerValue(id, "new")
	}
	f.m.SetLayerValue("r", "new")
	f.m.SetLayerValue("missing", "new")

	text, _ := f.conn.Get("t")
	assert.Equal(t, "new", text.(models.TextLayer).Value)
	note, _ := f.conn.Get("n")
	assert.Equal(t, "new", note.(models.NoteLayer).Value)
	shape, _ := f.conn.Get("s")
	assert.Equal(t, "new", shape.(models.ShapeLayer).Text)
	rect, _ := f.conn.Get("r")
	assert.Equal(t, rectAt(0, 0, 10, 10), rect)
	_, ok := f.conn.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"t", "n", "s", "r"}, f.conn.LayerIds())

	f.m.KeyDown(canvas.KeyEvent{Key: "z", Ctrl: true})
	shape, _ = f.conn.Get("s")
	assert.Equal(t, "old", shape.(models.ShapeLayer).Text)
	assertConsistent(t, f.conn)
}

func TestUpdateEntity(t *testing.T) {
	f := newFixture(t, board([]string{"e", "r"}, entity(0, 0, "users"), rectAt(0, 300, 10, 10)), canvas.DefaultConfig())

	fields := []models.ERDField{
		{Id: "f1", Name: "id", Type: "UUID", IsPrimaryKey: true, IsRequired: true},
		{Id: "f2", Name: "email", Type: "String", IsUnique: true},
		{Id: "f3", Name: "name", Type: "String"},
		{Id: "f4", Name: "org_id", Type: "UUID", IsForeignKey: true},
	}
	f.m.UpdateEntity("e", "  accounts ", fields)

	layer, _ := f.conn.Get("e")
	got := layer.(models.ERDEntityLayer)
	assert.Equal(t, "accounts", got.TableName)
	assert.Equal(t, "accounts", got.Name)
	assert.Equal(t, fields, got.Fields)
	assert.Equal(t, models.XYWH{X: 0, Y: 0, Width: 200, Height: 150}, got.Bounds())

	// Never shorter than the minimum
	f.m.UpdateEntity("e", "accounts", fields[:1])
	assert.Equal(t, 120.0, bounds(t, f.conn, "e").Height)

	f.m.UpdateEntity("r", "orders", fields)
	f.m.UpdateEntity("missing", "orders", fields)
	rect, _ := f.conn.Get("r")
	assert.Equal(t, rectAt(0, 300, 10, 10), rect)
	assert.Equal(t, []string{"e", "r"}, f.conn.LayerIds())
	assertConsistent(t, f.conn)
}

func TestEntityHeight(t *testing.T) {
	assert.Equal(t, 120.0, canvas.EntityHeight(0))
	assert.Equal(t, 120.0, canvas.EntityHeight(2))
	assert.Equal(t, 125.0, canvas.EntityHeight(3))
	assert.Equal(t, 300.0, canvas.EntityHeight(10))
}
