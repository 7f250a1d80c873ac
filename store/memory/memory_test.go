package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/store/memory"
)

func rect(x, y float64) models.Layer {
	return models.RectangleLayer{Base: models.Base{X: x, Y: y, Width: 10, Height: 10}}
}

func insert(c *memory.Conn, id string, layer models.Layer) {
	c.Batch(func(tx store.Tx) {
		tx.PushId(id)
		tx.Set(id, layer)
	})
}

func TestBatch_InsertAndUndoRedo(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})

	insert(conn, "a", rect(0, 0))
	assert.Equal(t, []string{"a"}, conn.LayerIds())
	assert.Equal(t, 1, conn.Size())
	assert.True(t, conn.CanUndo())

	conn.Undo()
	assert.Empty(t, conn.LayerIds())
	assert.Equal(t, 0, conn.Size())
	assert.True(t, conn.CanRedo())

	conn.Redo()
	assert.Equal(t, []string{"a"}, conn.LayerIds())
	layer, ok := conn.Get("a")
	require.True(t, ok)
	assert.Equal(t, 0.0, layer.Bounds().X)
}

func TestPause_GroupsIntoOneStep(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})
	insert(conn, "a", rect(0, 0))

	conn.Pause()
	for i := 1; i <= 5; i++ {
		conn.Batch(func(tx store.Tx) {
			tx.Update("a", models.LayerPatch{X: models.Float(float64(i * 10))})
		})
	}
	conn.Resume()

	layer, _ := conn.Get("a")
	assert.Equal(t, 50.0, layer.Bounds().X)

	conn.Undo()
	layer, _ = conn.Get("a")
	assert.Equal(t, 0.0, layer.Bounds().X, "one undo restores the pre-drag position")
	assert.Equal(t, 1, conn.Size())

	conn.Undo()
	assert.Equal(t, 0, conn.Size())
}

func TestNewBatchClearsRedo(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})

	insert(conn, "a", rect(0, 0))
	conn.Undo()
	require.True(t, conn.CanRedo())

	insert(conn, "b", rect(0, 0))
	assert.False(t, conn.CanRedo())
}

func TestUndoDelete_RestoresOrder(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{
		LayerIds: []string{"a", "b", "c"},
		Layers:   map[string]models.Layer{"a": rect(0, 0), "b": rect(1, 1), "c": rect(2, 2)},
	})
	conn := room.Connect(models.User{Id: "u1"})

	conn.Batch(func(tx store.Tx) {
		tx.Delete("b")
		tx.DeleteIdAt(tx.IndexOf("b"))
	})
	assert.Equal(t, []string{"a", "c"}, conn.LayerIds())

	conn.Undo()
	assert.Equal(t, []string{"a", "b", "c"}, conn.LayerIds())
	_, ok := conn.Get("b")
	assert.True(t, ok)
}

func TestHistoryIsPerConnection(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	alice := room.Connect(models.User{Id: "alice"})
	bob := room.Connect(models.User{Id: "bob"})

	insert(alice, "a", rect(0, 0))
	insert(bob, "b", rect(0, 0))

	alice.Undo()
	assert.Equal(t, []string{"b"}, bob.LayerIds())
	assert.False(t, bob.CanRedo())
}

func TestPresence_HistoryRestoresOnlyPatchedFields(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})

	conn.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"a"})}, store.PresenceOptions{AddToHistory: true})
	conn.SetMyPresence(models.PresencePatch{Cursor: models.Some(&models.Point{X: 3, Y: 4})}, store.PresenceOptions{})

	conn.Undo()
	self := conn.Self()
	assert.Empty(t, self.Selection)
	require.NotNil(t, self.Cursor)
	assert.Equal(t, 3.0, self.Cursor.X)
}

func TestOthers(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	alice := room.Connect(models.User{Id: "alice", Name: "Alice"})
	bob := room.Connect(models.User{Id: "bob"})

	bob.SetMyPresence(models.PresencePatch{Selection: models.Some([]string{"x"})}, store.PresenceOptions{})
	room.ApplyRemotePresence("other-server#1", models.OtherPresence{ConnectionId: 100, UserId: "carol"}, false)

	others := alice.Others()
	require.Len(t, others, 2)
	assert.Equal(t, "bob", others[0].UserId)
	assert.Equal(t, []string{"x"}, others[0].Presence.Selection)
	assert.Equal(t, "carol", others[1].UserId)

	bob.Disconnect()
	room.ApplyRemotePresence("other-server#1", models.OtherPresence{}, true)
	assert.Empty(t, alice.Others())
}

func TestListeners(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	var changes []memory.Change
	room.OnChange(func(c memory.Change) { changes = append(changes, c) })

	conn := room.Connect(models.User{Id: "u1"})
	insert(conn, "a", rect(0, 0))

	require.Len(t, changes, 2)
	assert.NotNil(t, changes[0].Presence, "connect announces presence")
	assert.Equal(t, conn.Id(), changes[1].Origin)
	assert.Contains(t, changes[1].Upserts, "a")
	assert.Equal(t, []string{"a"}, changes[1].LayerIds)
	assert.False(t, changes[1].Remote)
}

func TestApplyRemote_SkipsHistory(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})
	var remote []memory.Change
	room.OnChange(func(c memory.Change) {
		if c.Remote {
			remote = append(remote, c)
		}
	})

	room.ApplyRemote(memory.Change{
		Upserts:  map[string]models.Layer{"r": rect(5, 5)},
		LayerIds: []string{"r", "r"},
	})

	assert.Equal(t, []string{"r"}, conn.LayerIds())
	assert.False(t, conn.CanUndo())
	require.Len(t, remote, 1)
}

func TestInsertId_KeepsIdsUnique(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})

	conn.Batch(func(tx store.Tx) {
		tx.PushId("a")
		tx.PushId("a")
		tx.InsertId(0, "b")
	})

	assert.Equal(t, []string{"b", "a"}, conn.LayerIds())
}

func TestReset(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{})
	conn := room.Connect(models.User{Id: "u1"})
	insert(conn, "a", rect(0, 0))

	room.Reset()

	assert.Equal(t, 0, conn.Size())
	assert.Empty(t, conn.LayerIds())
	assert.False(t, conn.CanUndo())
}

func TestUUIDGenerator(t *testing.T) {
	gen := memory.UUIDGenerator{}
	a, b := gen.NewId(), gen.NewId()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func deleteLayer(c *memory.Conn, id string) {
	c.Batch(func(tx store.Tx) {
		tx.Delete(id)
		if i := tx.IndexOf(id); i >= 0 {
			tx.DeleteIdAt(i)
		}
	})
}

func TestUndo_LeavesLayerDeletedByOthersDeleted(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{
		LayerIds: []string{"a"},
		Layers:   map[string]models.Layer{"a": rect(0, 0)},
	})
	alice := room.Connect(models.User{Id: "alice"})
	bob := room.Connect(models.User{Id: "bob"})

	alice.Batch(func(tx store.Tx) {
		tx.Update("a", models.LayerPatch{X: models.Float(10)})
	})
	deleteLayer(bob, "a")

	alice.Undo()
	assert.Equal(t, 0, alice.Size())
	assert.Empty(t, alice.LayerIds())
	_, ok := alice.Get("a")
	assert.False(t, ok)
}

func TestUndoReorder_LeavesLayerDeletedByOthersDeleted(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{
		LayerIds: []string{"a", "b"},
		Layers:   map[string]models.Layer{"a": rect(0, 0), "b": rect(1, 1)},
	})
	alice := room.Connect(models.User{Id: "alice"})
	bob := room.Connect(models.User{Id: "bob"})

	alice.Batch(func(tx store.Tx) {
		tx.DeleteIdAt(tx.IndexOf("a"))
		tx.PushId("a")
	})
	require.Equal(t, []string{"b", "a"}, alice.LayerIds())
	deleteLayer(bob, "a")

	alice.Undo()
	assert.Equal(t, []string{"b"}, alice.LayerIds())
	assert.Equal(t, 1, alice.Size())
}

func TestUndoOwnDelete_StillRestoresAfterOthersEdit(t *testing.T) {
	room := memory.NewRoom(models.BoardSnapshot{
		LayerIds: []string{"a", "b"},
		Layers:   map[string]models.Layer{"a": rect(0, 0), "b": rect(1, 1)},
	})
	alice := room.Connect(models.User{Id: "alice"})
	bob := room.Connect(models.User{Id: "bob"})

	deleteLayer(alice, "a")
	bob.Batch(func(tx store.Tx) {
		tx.Update("b", models.LayerPatch{X: models.Float(50)})
	})

	alice.Undo()
	assert.Equal(t, []string{"a", "b"}, alice.LayerIds())
	assert.Equal(t, 2, alice.Size())

	alice.Redo()
	assert.Equal(t, []string{"b"}, alice.LayerIds())
	assert.Equal(t, 1, alice.Size())
}
