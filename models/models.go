package models

type User struct {
	Id   string
	Name string
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type XYWH struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Color struct {
	R uint8    `json:"r"`
	G uint8    `json:"g"`
	B uint8    `json:"b"`
	A *float64 `json:"a,omitempty"`
}

func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

func RGBA(r, g, b uint8, a float64) Color {
	return Color{R: r, G: g, B: b, A: &a}
}

// Side is a bit set; corners combine one vertical and one horizontal side.
type Side uint8

const (
	SideTop    Side = 1
	SideBottom Side = 2
	SideLeft   Side = 4
	SideRight  Side = 8
)

type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// LayerRecord is the persisted form of a layer: its encoded JSON or a tombstone.
type LayerRecord struct {
	BoardId string
	LayerId string
	Data    []byte
	Deleted bool
}

type BoardSnapshot struct {
	LayerIds []string
	Layers   map[string]Layer
}
