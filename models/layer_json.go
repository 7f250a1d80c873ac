package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type layerHeader struct {
	Type LayerType `json:"type"`
}

// MarshalLayer encodes a layer with a "type" discriminator alongside its fields.
func MarshalLayer(l Layer) ([]byte, error) {
	if l == nil {
		return nil, errors.New("nil layer")
	}

	body, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal layer: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal layer: %w", err)
	}

	typeBytes, err := json.Marshal(l.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = typeBytes

	return json.Marshal(fields)
}

func UnmarshalLayer(data []byte) (Layer, error) {
	var header layerHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("unmarshal layer header: %w", err)
	}

	var (
		layer Layer
		err   error
	)
	switch header.Type {
	case LayerRectangle:
		layer, err = decodeLayer[RectangleLayer](data)
	case LayerEllipse:
		layer, err = decodeLayer[EllipseLayer](data)
	case LayerText:
		layer, err = decodeLayer[TextLayer](data)
	case LayerNote:
		layer, err = decodeLayer[NoteLayer](data)
	case LayerPath:
		layer, err = decodeLayer[PathLayer](data)
	case LayerMindMapNode:
		layer, err = decodeLayer[MindMapNodeLayer](data)
	case LayerERDEntity:
		layer, err = decodeLayer[ERDEntityLayer](data)
	case LayerERDRelationship:
		layer, err = decodeLayer[ERDRelationshipLayer](data)
	default:
		var shape ShapeLayer
		shape, err = decodeLayer[ShapeLayer](data)
		// the discriminator wins over a stale shapeType field
		shape.Shape = header.Type
		layer = shape
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s layer: %w", header.Type, err)
	}

	return layer, nil
}

func decodeLayer[T Layer](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
