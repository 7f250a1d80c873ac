package models

import "fmt"

type LayerType int

const (
	LayerRectangle LayerType = iota
	LayerEllipse
	LayerPath
	LayerText
	LayerNote
	LayerMindMapNode
	LayerERDEntity
	LayerERDRelationship
	LayerDiamond
	LayerTriangle
	LayerHexagon
	LayerStar
	LayerArrow
	LayerParallelogram
	LayerTrapezoid
	LayerFlowStart
	LayerFlowProcess
	LayerFlowDecision
	LayerFlowDocument
	LayerFlowDatabase
	LayerFlowConnector
	LayerUMLClass
	LayerUMLInterface
	LayerUMLActor
	LayerUMLUseCase
	LayerWireButton
	LayerWireInput
	LayerWireImage
	LayerWireText
	LayerWireCheckbox
	layerTypeCount
)

var layerTypeNames = [...]string{
	"Rectangle", "Ellipse", "Path", "Text", "Note", "MindMapNode", "ERDEntity", "ERDRelationship",
	"Diamond", "Triangle", "Hexagon", "Star", "Arrow", "Parallelogram", "Trapezoid",
	"FlowStart", "FlowProcess", "FlowDecision", "FlowDocument", "FlowDatabase", "FlowConnector",
	"UMLClass", "UMLInterface", "UMLActor", "UMLUseCase",
	"WireButton", "WireInput", "WireImage", "WireText", "WireCheckbox",
}

func (t LayerType) Valid() bool {
	return t >= 0 && t < layerTypeCount
}

func (t LayerType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("LayerType(%d)", int(t))
	}
	return layerTypeNames[t]
}

func ParseLayerType(name string) (LayerType, error) {
	for i, n := range layerTypeNames {
		if n == name {
			return LayerType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer type: %q", name)
}

func (t LayerType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid layer type: %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *LayerType) UnmarshalText(b []byte) error {
	parsed, err := ParseLayerType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Layer is one object on the canvas. The set of implementations is closed.
type Layer interface {
	Type() LayerType
	Bounds() XYWH
	base() Base
}

type Base struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Fill        Color   `json:"fill"`
	Stroke      *Color  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

func (b Base) Bounds() XYWH {
	return XYWH{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

func (b Base) base() Base { return b }

type RectangleLayer struct {
	Base
}

type EllipseLayer struct {
	Base
}

type TextLayer struct {
	Base
	Value string `json:"value,omitempty"`
}

type NoteLayer struct {
	Base
	Value string `json:"value,omitempty"`
}

// PathLayer points are [x, y, pressure] samples relative to the layer origin.
type PathLayer struct {
	Base
	Points [][3]float64 `json:"points"`
}

// ShapeLayer covers the geometric, flowchart, UML and wireframe kinds.
type ShapeLayer struct {
	Base
	Shape LayerType `json:"shapeType"`
	Text  string    `json:"text"`
}

type MindMapNodeLayer struct {
	Base
	Value       string `json:"value,omitempty"`
	MindMapId   string `json:"mindMapId,omitempty"`
	NodeId      string `json:"nodeId"`
	Level       int    `json:"level"`
	ParentId    string `json:"parentId,omitempty"`
	Description string `json:"description,omitempty"`
	IsExpanded  bool   `json:"isExpanded"`
}

type ERDField struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsForeignKey bool   `json:"isForeignKey"`
	IsRequired   bool   `json:"isRequired"`
	IsUnique     bool   `json:"isUnique"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

type ERDEntityLayer struct {
	Base
	EntityId  string     `json:"erdEntityId"`
	Name      string     `json:"name"`
	TableName string     `json:"tableName"`
	Fields    []ERDField `json:"fields"`
}

type Cardinality string

const (
	OneToOne   Cardinality = "one-to-one"
	OneToMany  Cardinality = "one-to-many"
	ManyToMany Cardinality = "many-to-many"
)

type ERDRelationshipLayer struct {
	Base
	RelationshipId string      `json:"erdRelationshipId"`
	FromEntityId   string      `json:"fromEntityId"`
	ToEntityId     string      `json:"toEntityId"`
	Cardinality    Cardinality `json:"relationshipType"`
	FromField      string      `json:"fromField"`
	ToField        string      `json:"toField"`
	Name           string      `json:"relationshipName,omitempty"`
	Points         []Point     `json:"points"`
}

func (RectangleLayer) Type() LayerType       { return LayerRectangle }
func (EllipseLayer) Type() LayerType         { return LayerEllipse }
func (TextLayer) Type() LayerType            { return LayerText }
func (NoteLayer) Type() LayerType            { return LayerNote }
func (PathLayer) Type() LayerType            { return LayerPath }
func (l ShapeLayer) Type() LayerType         { return l.Shape }
func (MindMapNodeLayer) Type() LayerType     { return LayerMindMapNode }
func (ERDEntityLayer) Type() LayerType       { return LayerERDEntity }
func (ERDRelationshipLayer) Type() LayerType { return LayerERDRelationship }

// LayerPatch is a shallow update; nil fields are left untouched.
type LayerPatch struct {
	X           *float64
	Y           *float64
	Width       *float64
	Height      *float64
	Fill        *Color
	Stroke      *Color
	StrokeWidth *float64
	Value       *string
	Points      []Point
}

func (p LayerPatch) apply(b Base) Base {
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
	if p.Fill != nil {
		b.Fill = *p.Fill
	}
	if p.Stroke != nil {
		c := *p.Stroke
		b.Stroke = &c
	}
	if p.StrokeWidth != nil {
		b.StrokeWidth = *p.StrokeWidth
	}
	return b
}

// ApplyPatch returns a copy of l with the patch merged in. Value applies to
// the text-bearing kinds and Points to relationships.
func ApplyPatch(l Layer, p LayerPatch) Layer {
	switch v := l.(type) {
	case RectangleLayer:
		v.Base = p.apply(v.Base)
		return v
	case EllipseLayer:
		v.Base = p.apply(v.Base)
		return v
	case TextLayer:
		v.Base = p.apply(v.Base)
		if p.Value != nil {
			v.Value = *p.Value
		}
		return v
	case NoteLayer:
		v.Base = p.apply(v.Base)
		if p.Value != nil {
			v.Value = *p.Value
		}
		return v
	case PathLayer:
		v.Base = p.apply(v.Base)
		return v
	case ShapeLayer:
		v.Base = p.apply(v.Base)
		if p.Value != nil {
			v.Text = *p.Value
		}
		return v
	case MindMapNodeLayer:
		v.Base = p.apply(v.Base)
		if p.Value != nil {
			v.Value = *p.Value
		}
		return v
	case ERDEntityLayer:
		v.Base = p.apply(v.Base)
		return v
	case ERDRelationshipLayer:
		v.Base = p.apply(v.Base)
		if p.Points != nil {
			v.Points = append([]Point(nil), p.Points...)
		}
		return v
	}
	return l
}

func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }
