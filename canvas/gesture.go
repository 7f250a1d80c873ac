package canvas

import "github.com/zlnvch/whiteboard/store"

// gesture scopes a history pause to one pointer interaction so every edit
// made between press and release is undone in one step. end only resumes a
// pause this gesture started.
type gesture struct {
	history store.History
	active  bool
}

func (g *gesture) begin() {
	if g.active {
		return
	}
	g.history.Pause()
	g.active = true
}

func (g *gesture) end() {
	if !g.active {
		return
	}
	g.active = false
	g.history.Resume()
}
