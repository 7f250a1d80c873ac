// Package memory is the in-process shared document behind a board: one Room
// per board, one Conn per participant. Writes are last-writer-wins in arrival
// order and every batch is applied atomically under the room lock.
package memory

import (
	"sort"
	"sync"

	"github.com/zlnvch/whiteboard/models"
)

type PresenceChange struct {
	ConnectionId int
	UserId       string
	UserName     string
	Presence     models.Presence
	Left         bool
}

// Change describes what one batch did. LayerIds is set only when the order
// changed and then holds the full order.
type Change struct {
	Origin   int
	Remote   bool
	Upserts  map[string]models.Layer
	Deletes  []string
	LayerIds []string
	Presence *PresenceChange
}

func (c Change) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0 && c.LayerIds == nil && c.Presence == nil
}

type Room struct {
	mu             sync.Mutex
	layers         map[string]models.Layer
	layerIds       []string
	conns          map[int]*Conn
	remotePresence map[string]models.OtherPresence
	nextConnId     int
	listeners      []func(Change)
}

func NewRoom(snapshot models.BoardSnapshot) *Room {
	r := &Room{
		layers:         make(map[string]models.Layer, len(snapshot.Layers)),
		conns:          make(map[int]*Conn),
		remotePresence: make(map[string]models.OtherPresence),
	}
	for id, layer := range snapshot.Layers {
		r.layers[id] = layer
	}
	r.layerIds = dedupe(snapshot.LayerIds)
	return r
}

// OnChange registers fn for every applied change. fn runs outside the room
// lock on the goroutine that made the change.
func (r *Room) OnChange(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Room) Connect(user models.User) *Conn {
	r.mu.Lock()
	r.nextConnId++
	c := &Conn{room: r, id: r.nextConnId, user: user}
	r.conns[c.id] = c
	change := Change{Origin: c.id, Presence: &PresenceChange{ConnectionId: c.id, UserId: user.Id, UserName: user.Name}}
	listeners := r.listeners
	r.mu.Unlock()

	notify(listeners, change)
	return c
}

func (r *Room) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Room) Snapshot() models.BoardSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	layers := make(map[string]models.Layer, len(r.layers))
	for id, layer := range r.layers {
		layers[id] = layer
	}
	return models.BoardSnapshot{LayerIds: append([]string{}, r.layerIds...), Layers: layers}
}

// ApplyRemote merges a change made on another server. It never enters any
// participant's history.
func (r *Room) ApplyRemote(change Change) {
	r.mu.Lock()
	for id, layer := range change.Upserts {
		r.layers[id] = layer
	}
	for _, id := range change.Deletes {
		delete(r.layers, id)
	}
	if change.LayerIds != nil {
		r.layerIds = dedupe(change.LayerIds)
	}
	listeners := r.listeners
	r.mu.Unlock()

	change.Remote = true
	change.Presence = nil
	if !change.Empty() {
		notify(listeners, change)
	}
}

// ApplyRemotePresence records the presence of a participant connected to
// another server; key identifies that participant across updates.
func (r *Room) ApplyRemotePresence(key string, other models.OtherPresence, left bool) {
	r.mu.Lock()
	if left {
		delete(r.remotePresence, key)
	} else {
		other.Presence = other.Presence.Clone()
		r.remotePresence[key] = other
	}
	r.mu.Unlock()
}

// Reset empties the board and every participant's history and selection.
func (r *Room) Reset() {
	r.mu.Lock()
	deletes := make([]string, 0, len(r.layers))
	for id := range r.layers {
		deletes = append(deletes, id)
	}
	r.layers = make(map[string]models.Layer)
	r.layerIds = nil
	for _, c := range r.conns {
		c.undoStack = nil
		c.redoStack = nil
		c.pending = nil
		c.presence.Selection = nil
	}
	listeners := r.listeners
	r.mu.Unlock()

	notify(listeners, Change{Remote: true, Deletes: deletes, LayerIds: []string{}})
}

func (r *Room) batch(c *Conn, fn func(t *tx), record bool) {
	r.mu.Lock()
	t := newTx(r, c)
	fn(t)
	if record && c != nil {
		c.record(t.inverse)
	}
	change := t.change()
	listeners := r.listeners
	r.mu.Unlock()

	if !change.Empty() {
		notify(listeners, change)
	}
}

// others must be called with r.mu held.
func (r *Room) others(self int) []models.OtherPresence {
	others := make([]models.OtherPresence, 0, len(r.conns)+len(r.remotePresence))
	for id, c := range r.conns {
		if id == self {
			continue
		}
		others = append(others, models.OtherPresence{
			ConnectionId: id,
			UserId:       c.user.Id,
			UserName:     c.user.Name,
			Presence:     c.presence.Clone(),
		})
	}
	for _, other := range r.remotePresence {
		other.Presence = other.Presence.Clone()
		others = append(others, other)
	}
	sort.Slice(others, func(i, j int) bool { return others[i].ConnectionId < others[j].ConnectionId })
	return others
}

func notify(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
