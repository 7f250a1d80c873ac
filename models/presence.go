package models

// Presence is the ephemeral per-connection state shared with other participants.
type Presence struct {
	Cursor      *Point       `json:"cursor"`
	Selection   []string     `json:"selection"`
	PencilDraft [][3]float64 `json:"pencilDraft"`
	PenColor    *Color       `json:"penColor"`
}

type OtherPresence struct {
	ConnectionId int      `json:"connectionId"`
	UserId       string   `json:"userId"`
	UserName     string   `json:"userName"`
	Presence     Presence `json:"presence"`
}

// Optional distinguishes "leave as is" from "set to the zero value" in a patch.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

type PresencePatch struct {
	Cursor      Optional[*Point]
	Selection   Optional[[]string]
	PencilDraft Optional[[][3]float64]
	PenColor    Optional[*Color]
}

func (p Presence) Apply(patch PresencePatch) Presence {
	if patch.Cursor.Set {
		p.Cursor = patch.Cursor.Value
	}
	if patch.Selection.Set {
		p.Selection = append([]string(nil), patch.Selection.Value...)
	}
	if patch.PencilDraft.Set {
		p.PencilDraft = append([][3]float64(nil), patch.PencilDraft.Value...)
	}
	if patch.PenColor.Set {
		p.PenColor = patch.PenColor.Value
	}
	return p
}

// Clone returns a copy that shares no slices with p.
func (p Presence) Clone() Presence {
	c := p
	c.Selection = append([]string(nil), p.Selection...)
	c.PencilDraft = append([][3]float64(nil), p.PencilDraft...)
	if p.Cursor != nil {
		cursor := *p.Cursor
		c.Cursor = &cursor
	}
	if p.PenColor != nil {
		pen := *p.PenColor
		c.PenColor = &pen
	}
	return c
}
