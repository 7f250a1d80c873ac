package memory

import (
	"github.com/gofrs/uuid/v5"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

const maxHistory = 100

// Conn is one participant's handle on a room. It carries that participant's
// presence and undo history; everything else is shared through the room.
//
// Conn implements store.Document, store.History and store.Presence. Its
// fields are guarded by the room lock.
type Conn struct {
	room     *Room
	id       int
	user     models.User
	presence models.Presence

	undoStack [][]op
	redoStack [][]op
	paused    bool
	pending   []op
}

var (
	_ store.Document = (*Conn)(nil)
	_ store.History  = (*Conn)(nil)
	_ store.Presence = (*Conn)(nil)
)

func (c *Conn) Id() int {
	return c.id
}

func (c *Conn) User() models.User {
	return c.user
}

func (c *Conn) Room() *Room {
	return c.room
}

func (c *Conn) Get(id string) (models.Layer, bool) {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	layer, ok := c.room.layers[id]
	return layer, ok
}

func (c *Conn) Size() int {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return len(c.room.layers)
}

func (c *Conn) LayerIds() []string {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return append([]string(nil), c.room.layerIds...)
}

func (c *Conn) IndexOf(id string) int {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	for i, existing := range c.room.layerIds {
		if existing == id {
			return i
		}
	}
	return -1
}

// Batch runs fn under the room lock. fn must only touch the room through tx.
func (c *Conn) Batch(fn func(tx store.Tx)) {
	c.room.batch(c, func(t *tx) { fn(t) }, true)
}

func (c *Conn) SetMyPresence(patch models.PresencePatch, opts store.PresenceOptions) {
	c.room.batch(c, func(t *tx) { t.SetMyPresence(patch, opts) }, true)
}

func (c *Conn) Self() models.Presence {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return c.presence.Clone()
}

func (c *Conn) Others() []models.OtherPresence {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return c.room.others(c.id)
}

// record must be called with the room lock held.
func (c *Conn) record(inverse []op) {
	if len(inverse) == 0 {
		return
	}
	if c.paused {
		c.pending = append(c.pending, inverse...)
		return
	}
	c.pushUndo(inverse)
	c.redoStack = nil
}

func (c *Conn) pushUndo(entry []op) {
	c.undoStack = append(c.undoStack, entry)
	if len(c.undoStack) > maxHistory {
		c.undoStack = c.undoStack[len(c.undoStack)-maxHistory:]
	}
}

func (c *Conn) Undo() {
	c.room.batch(c, func(t *tx) {
		if c.paused || len(c.undoStack) == 0 {
			return
		}
		entry := c.undoStack[len(c.undoStack)-1]
		c.undoStack = c.undoStack[:len(c.undoStack)-1]

		t.replay(entry)
		if len(t.inverse) > 0 {
			c.redoStack = append(c.redoStack, t.inverse)
		}
	}, false)
}

func (c *Conn) Redo() {
	c.room.batch(c, func(t *tx) {
		if c.paused || len(c.redoStack) == 0 {
			return
		}
		entry := c.redoStack[len(c.redoStack)-1]
		c.redoStack = c.redoStack[:len(c.redoStack)-1]

		t.replay(entry)
		if len(t.inverse) > 0 {
			c.pushUndo(t.inverse)
		}
	}, false)
}

// Pause groups every following batch into a single history entry until
// Resume.
func (c *Conn) Pause() {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.pending = nil
}

func (c *Conn) Resume() {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	if len(c.pending) > 0 {
		c.pushUndo(c.pending)
		c.redoStack = nil
	}
	c.pending = nil
}

func (c *Conn) CanUndo() bool {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return len(c.undoStack) > 0
}

func (c *Conn) CanRedo() bool {
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return len(c.redoStack) > 0
}

// Disconnect removes the participant and announces that it left.
func (c *Conn) Disconnect() {
	r := c.room
	r.mu.Lock()
	if _, ok := r.conns[c.id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, c.id)
	change := Change{Origin: c.id, Presence: &PresenceChange{ConnectionId: c.id, UserId: c.user.Id, UserName: c.user.Name, Left: true}}
	listeners := r.listeners
	r.mu.Unlock()

	notify(listeners, change)
}

// UUIDGenerator issues time-ordered layer ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewId() string {
	return uuid.Must(uuid.NewV7()).String()
}
