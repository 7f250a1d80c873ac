// Package shapes is the catalog of insertable tools and the defaults each one
// starts with.
package shapes

import (
	"errors"
	"fmt"

	"github.com/zlnvch/whiteboard/models"
)

type Tool struct {
	Kind          models.LayerType
	DefaultWidth  float64
	DefaultHeight float64
	// MinWidth and MinHeight clamp drag-sized inserts.
	MinWidth    float64
	MinHeight   float64
	Fill        *models.Color
	Stroke      *models.Color
	StrokeWidth float64
	Label       string
}

// Style is the drawing style currently chosen by the user.
type Style struct {
	Fill        models.Color
	Stroke      *models.Color
	StrokeWidth float64
}

const (
	defaultSize = 100
	minDragSize = 50
)

var (
	erdBlue = models.RGB(59, 130, 246)

	ErrNotInsertable = errors.New("layer type is not insertable from a tool")
)

var registry = buildRegistry()

func buildRegistry() map[models.LayerType]Tool {
	tools := make(map[models.LayerType]Tool)

	add := func(kind models.LayerType, label string) {
		tools[kind] = Tool{
			Kind:          kind,
			DefaultWidth:  defaultSize,
			DefaultHeight: defaultSize,
			MinWidth:      minDragSize,
			MinHeight:     minDragSize,
			Label:         label,
		}
	}

	add(models.LayerRectangle, "")
	add(models.LayerEllipse, "")
	add(models.LayerText, "")
	add(models.LayerNote, "")

	for _, kind := range []models.LayerType{
		models.LayerDiamond, models.LayerTriangle, models.LayerHexagon, models.LayerStar,
		models.LayerArrow, models.LayerParallelogram, models.LayerTrapezoid,
		models.LayerFlowStart, models.LayerFlowProcess, models.LayerFlowDecision,
		models.LayerFlowDocument, models.LayerFlowDatabase, models.LayerFlowConnector,
		models.LayerWireImage,
	} {
		add(kind, "")
	}

	add(models.LayerUMLClass, "Class Name")
	add(models.LayerUMLInterface, "Interface Name")
	add(models.LayerUMLActor, "Actor")
	add(models.LayerUMLUseCase, "Use Case")
	add(models.LayerWireButton, "Button")
	add(models.LayerWireInput, "Input Field")
	add(models.LayerWireText, "Text Block")
	add(models.LayerWireCheckbox, "Checkbox")

	fill, stroke := erdBlue, erdBlue
	tools[models.LayerERDEntity] = Tool{
		Kind:          models.LayerERDEntity,
		DefaultWidth:  200,
		DefaultHeight: 120,
		MinWidth:      200,
		MinHeight:     120,
		Fill:          &fill,
		Stroke:        &stroke,
		StrokeWidth:   2,
	}

	return tools
}

// Lookup returns the tool for kind; ok is false for kinds that cannot be
// inserted directly (paths, relationships, mind map nodes).
func Lookup(kind models.LayerType) (Tool, bool) {
	tool, ok := registry[kind]
	return tool, ok
}

func Insertable(kind models.LayerType) bool {
	_, ok := registry[kind]
	return ok
}

// Tools lists every insertable tool in layer type order.
func Tools() []Tool {
	tools := make([]Tool, 0, len(registry))
	for kind := models.LayerType(0); kind.Valid(); kind++ {
		if tool, ok := registry[kind]; ok {
			tools = append(tools, tool)
		}
	}
	return tools
}

// IsAdvancedShape reports whether kind carries a shapeType and text payload,
// which is everything outside the primitive set.
func IsAdvancedShape(kind models.LayerType) bool {
	switch kind {
	case models.LayerRectangle, models.LayerEllipse, models.LayerText, models.LayerNote, models.LayerERDEntity:
		return false
	}
	return true
}

func ParseKind(name string) (models.LayerType, error) {
	kind, err := models.ParseLayerType(name)
	if err != nil {
		return 0, err
	}
	if !Insertable(kind) {
		return 0, fmt.Errorf("%w: %s", ErrNotInsertable, kind)
	}
	return kind, nil
}

// NewLayer builds the default layer of kind within bounds. Tool defaults
// override the user style where the tool defines them.
func NewLayer(kind models.LayerType, id string, bounds models.XYWH, style Style) (models.Layer, error) {
	tool, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInsertable, kind)
	}

	base := models.Base{
		X:           bounds.X,
		Y:           bounds.Y,
		Width:       bounds.Width,
		Height:      bounds.Height,
		Fill:        style.Fill,
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
	}
	if tool.Fill != nil {
		base.Fill = *tool.Fill
	}
	if tool.Stroke != nil {
		stroke := *tool.Stroke
		base.Stroke = &stroke
		base.StrokeWidth = tool.StrokeWidth
	}

	switch kind {
	case models.LayerRectangle:
		return models.RectangleLayer{Base: base}, nil
	case models.LayerEllipse:
		return models.EllipseLayer{Base: base}, nil
	case models.LayerText:
		return models.TextLayer{Base: base}, nil
	case models.LayerNote:
		return models.NoteLayer{Base: base}, nil
	case models.LayerERDEntity:
		return models.ERDEntityLayer{
			Base:      base,
			EntityId:  id,
			Name:      "NewEntity",
			TableName: "new_entity",
			Fields: []models.ERDField{{
				Id:           id + "-id",
				Name:         "id",
				Type:         "UUID",
				IsPrimaryKey: true,
				IsRequired:   true,
				IsUnique:     true,
			}},
		}, nil
	}

	return models.ShapeLayer{Base: base, Shape: kind, Text: tool.Label}, nil
}
