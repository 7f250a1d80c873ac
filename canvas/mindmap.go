package canvas

import (
	"math"

	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

type MindMapNode struct {
	Id          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Level       int     `json:"level"`
	ParentId    string  `json:"parentId,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Color       string  `json:"color,omitempty"`
}

type MindMapConnection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MindMap is a generated outline laid out in its own coordinate space.
type MindMap struct {
	Nodes       []MindMapNode       `json:"nodes"`
	Connections []MindMapConnection `json:"connections,omitempty"`
}

const (
	mindMapNodeWidth  = 120
	mindMapNodeHeight = 60
	mindMapGap        = 200
)

var (
	mindMapEmptyTarget = models.Point{X: 400, Y: 300}

	levelColors = []models.Color{
		models.RGB(59, 130, 246),
		models.RGB(16, 185, 129),
		models.RGB(245, 158, 11),
		models.RGB(239, 68, 68),
		models.RGB(139, 92, 246),
		models.RGB(6, 182, 212),
		models.RGB(132, 204, 22),
		models.RGB(249, 115, 22),
	}
)

func levelColor(level int) models.Color {
	if level < 0 {
		level = 0
	}
	return levelColors[level%len(levelColors)]
}

// nodeFill uses the level colour only for nodes without a colour. A colour
// that does not parse falls back to blue.
func nodeFill(node MindMapNode) models.Color {
	if node.Color == "" {
		return levelColor(node.Level)
	}
	if fill, ok := geometry.HexToRGB(node.Color); ok {
		return fill
	}
	return models.RGB(59, 130, 246)
}

// InsertMindMap adds the nodes of mm as mind map layers to the right of the
// existing content, vertically centred on it, and selects them. Nodes past
// the layer limit are dropped. It returns the ids of the inserted layers.
func (m *Machine) InsertMindMap(mm MindMap) []string {
	if len(mm.Nodes) == 0 {
		return nil
	}
	mindMapId := m.ids.NewId()

	layers := make([]models.MindMapNodeLayer, len(mm.Nodes))
	var cx, cy float64
	for i, node := range mm.Nodes {
		width, height := node.Width, node.Height
		if width <= 0 {
			width = mindMapNodeWidth
		}
		if height <= 0 {
			height = mindMapNodeHeight
		}
		fill := nodeFill(node)
		stroke := models.RGB(0, 0, 0)

		layers[i] = models.MindMapNodeLayer{
			Base: models.Base{
				X: node.X, Y: node.Y, Width: width, Height: height,
				Fill: fill, Stroke: &stroke, StrokeWidth: 2,
			},
			Value:       node.Title,
			MindMapId:   mindMapId,
			NodeId:      node.Id,
			Level:       node.Level,
			ParentId:    node.ParentId,
			Description: node.Description,
			IsExpanded:  true,
		}
		cx += node.X + width/2
		cy += node.Y + height/2
	}
	cx /= float64(len(layers))
	cy /= float64(len(layers))

	var inserted []string
	full := false
	m.doc.Batch(func(tx store.Tx) {
		target := mindMapTarget(tx)
		dx, dy := target.X-cx, target.Y-cy

		for _, layer := range layers {
			if m.full(tx.Size()) {
				full = true
				break
			}
			layer.X += dx
			layer.Y += dy
			id := m.ids.NewId()
			tx.PushId(id)
			tx.Set(id, layer)
			inserted = append(inserted, id)
		}
		if len(inserted) > 0 {
			tx.SetMyPresence(models.PresencePatch{Selection: models.Some(inserted)}, store.PresenceOptions{AddToHistory: true})
		}
	})

	if full {
		m.limitReached()
	}
	if len(inserted) == 0 {
		return nil
	}
	m.state = None{}
	m.emit(EventMindMapInserted, inserted...)
	m.emit(EventSelectionChanged, inserted...)
	return inserted
}

// mindMapTarget picks the point the mind map is centred on: a fixed spot on
// an empty board, otherwise past the right edge of the content.
func mindMapTarget(tx store.Tx) models.Point {
	minY, maxX, maxY := math.Inf(1), math.Inf(-1), math.Inf(-1)
	found := false
	for _, id := range tx.LayerIds() {
		layer, ok := tx.Get(id)
		if !ok {
			continue
		}
		found = true
		b := layer.Bounds()
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.Width)
		maxY = math.Max(maxY, b.Y+b.Height)
	}
	if !found {
		return mindMapEmptyTarget
	}
	return models.Point{X: maxX + mindMapGap, Y: minY + (maxY-minY)/2}
}
