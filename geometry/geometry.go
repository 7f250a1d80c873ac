// Package geometry holds the pure bounds, hit-testing and coordinate helpers
// used by the canvas.
package geometry

import (
	"errors"
	"math"

	"github.com/zlnvch/whiteboard/models"
)

// ResizeBounds moves the grabbed sides of b to p while the opposite sides stay
// anchored. Width and height never go negative; dragging past the anchor
// flips the box instead.
func ResizeBounds(b models.XYWH, corner models.Side, p models.Point) models.XYWH {
	result := b

	if corner&models.SideLeft != 0 {
		result.X = math.Min(p.X, b.X+b.Width)
		result.Width = math.Abs(b.X + b.Width - p.X)
	}
	if corner&models.SideRight != 0 {
		result.X = math.Min(p.X, b.X)
		result.Width = math.Abs(p.X - b.X)
	}
	if corner&models.SideTop != 0 {
		result.Y = math.Min(p.Y, b.Y+b.Height)
		result.Height = math.Abs(b.Y + b.Height - p.Y)
	}
	if corner&models.SideBottom != 0 {
		result.Y = math.Min(p.Y, b.Y)
		result.Height = math.Abs(p.Y - b.Y)
	}

	return result
}

// Contains reports whether p lies inside b, edges included.
func Contains(b models.XYWH, p models.Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Intersects reports whether a and b overlap with a positive area.
func Intersects(a, b models.XYWH) bool {
	return a.X+a.Width > b.X && a.X < b.X+b.Width && a.Y+a.Height > b.Y && a.Y < b.Y+b.Height
}

// RectFromPoints normalises two corners into a box anchored at the min corner.
func RectFromPoints(a, b models.Point) models.XYWH {
	return models.XYWH{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

// FindIntersectingLayers returns the ids, in z-order, whose bounds overlap the
// rectangle spanned by a and b. Ids that no longer resolve are skipped.
func FindIntersectingLayers(layerIds []string, get func(id string) (models.Layer, bool), a, b models.Point) []string {
	rect := RectFromPoints(a, b)
	ids := []string{}

	for _, id := range layerIds {
		layer, ok := get(id)
		if !ok {
			continue
		}
		if Intersects(rect, layer.Bounds()) {
			ids = append(ids, id)
		}
	}

	return ids
}

func ManhattanDistance(a, b models.Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

func ScreenToWorld(p models.Point, camera models.Camera) models.Point {
	return models.Point{X: (p.X - camera.X) / camera.Zoom, Y: (p.Y - camera.Y) / camera.Zoom}
}

func WorldToScreen(p models.Point, camera models.Camera) models.Point {
	return models.Point{X: p.X*camera.Zoom + camera.X, Y: p.Y*camera.Zoom + camera.Y}
}

// ZoomAt changes the zoom to zoom while keeping the world point under screen
// point p fixed.
func ZoomAt(camera models.Camera, p models.Point, zoom float64) models.Camera {
	world := ScreenToWorld(p, camera)
	return models.Camera{
		X:    p.X - world.X*zoom,
		Y:    p.Y - world.Y*zoom,
		Zoom: zoom,
	}
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

var ErrPathTooShort = errors.New("a path needs at least two points")

// PenPointsToPathLayer turns absolute [x, y, pressure] samples into a path layer
// whose bounds are the samples' extents and whose points are stored relative
// to the top-left corner.
func PenPointsToPathLayer(points [][3]float64, fill models.Color) (models.PathLayer, error) {
	if len(points) < 2 {
		return models.PathLayer{}, ErrPathTooShort
	}

	left, top := math.Inf(1), math.Inf(1)
	right, bottom := math.Inf(-1), math.Inf(-1)
	for _, pt := range points {
		left = math.Min(left, pt[0])
		right = math.Max(right, pt[0])
		top = math.Min(top, pt[1])
		bottom = math.Max(bottom, pt[1])
	}

	relative := make([][3]float64, len(points))
	for i, pt := range points {
		relative[i] = [3]float64{pt[0] - left, pt[1] - top, pt[2]}
	}

	return models.PathLayer{
		Base: models.Base{
			X:      left,
			Y:      top,
			Width:  right - left,
			Height: bottom - top,
			Fill:   fill,
		},
		Points: relative,
	}, nil
}
