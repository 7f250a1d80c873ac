package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/geometry"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/shapes"
)

var boardIdRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

const (
	minStrokeWidth     = 1
	maxStrokeWidth     = 20
	maxMindMapNodes    = 50
	maxMindMapTitleLen = 200
	maxMindMapDescLen  = 1000
	maxMindMapLevel    = 10
	maxLayerValueLen   = 10000
	maxEntityFields    = 50
	maxEntityNameLen   = 64
)

func ValidateBoardId(boardId string) error {
	if !boardIdRegex.MatchString(boardId) {
		return errors.New("invalid board id")
	}
	return nil
}

func ValidateStyle(style shapes.Style) error {
	if style.Fill.A != nil && (*style.Fill.A < 0 || *style.Fill.A > 1) {
		return errors.New("invalid fill alpha")
	}
	if style.Stroke == nil {
		return nil
	}
	if style.StrokeWidth < minStrokeWidth || style.StrokeWidth > maxStrokeWidth {
		return errors.New("invalid stroke width")
	}
	return nil
}

// ValidateMindMap checks a generated outline before it is laid onto a board.
func ValidateMindMap(mm canvas.MindMap) error {
	if len(mm.Nodes) == 0 {
		return errors.New("mind map has no nodes")
	}
	if len(mm.Nodes) > maxMindMapNodes {
		return fmt.Errorf("mind map has more than %d nodes", maxMindMapNodes)
	}

	ids := make(map[string]struct{}, len(mm.Nodes))
	for _, node := range mm.Nodes {
		if node.Id == "" {
			return errors.New("mind map node without id")
		}
		if _, dup := ids[node.Id]; dup {
			return fmt.Errorf("duplicate mind map node %q", node.Id)
		}
		ids[node.Id] = struct{}{}

		if len(node.Title) > maxMindMapTitleLen || len(node.Description) > maxMindMapDescLen {
			return fmt.Errorf("mind map node %q text too long", node.Id)
		}
		if node.Level < 0 || node.Level > maxMindMapLevel {
			return fmt.Errorf("mind map node %q has invalid level", node.Id)
		}
		if node.Width < 0 || node.Height < 0 {
			return fmt.Errorf("mind map node %q has negative size", node.Id)
		}
		if node.Color != "" {
			if _, ok := geometry.HexToRGB(node.Color); !ok {
				return fmt.Errorf("mind map node %q has invalid color", node.Id)
			}
		}
	}

	if len(mm.Connections) > 2*maxMindMapNodes {
		return errors.New("too many mind map connections")
	}
	for _, c := range mm.Connections {
		if _, ok := ids[c.From]; !ok {
			return fmt.Errorf("connection from unknown node %q", c.From)
		}
		if _, ok := ids[c.To]; !ok {
			return fmt.Errorf("connection to unknown node %q", c.To)
		}
	}

	return nil
}

func ValidateLayerValue(value string) error {
	if len(value) > maxLayerValueLen {
		return fmt.Errorf("layer value longer than %d bytes", maxLayerValueLen)
	}
	return nil
}

func ValidateEntity(tableName string, fields []models.ERDField) error {
	name := strings.TrimSpace(tableName)
	if name == "" {
		return errors.New("entity table name is empty")
	}
	if len(name) > maxEntityNameLen {
		return errors.New("entity table name too long")
	}
	if len(fields) > maxEntityFields {
		return fmt.Errorf("entity has more than %d fields", maxEntityFields)
	}
	for _, field := range fields {
		if len(field.Name) > maxEntityNameLen || len(field.Type) > maxEntityNameLen {
			return fmt.Errorf("entity field %q too long", field.Id)
		}
	}
	return nil
}

// NormalizeEntityFields drops unnamed fields. When no field is a primary key
// the first one becomes a required primary key before the unnamed ones are
// dropped.
func NormalizeEntityFields(fields []models.ERDField) []models.ERDField {
	fields = append([]models.ERDField(nil), fields...)
	hasPrimaryKey := false
	for _, field := range fields {
		if field.IsPrimaryKey {
			hasPrimaryKey = true
			break
		}
	}
	if !hasPrimaryKey && len(fields) > 0 {
		fields[0].IsPrimaryKey = true
		fields[0].IsRequired = true
	}

	named := fields[:0]
	for _, field := range fields {
		if strings.TrimSpace(field.Name) != "" {
			named = append(named, field)
		}
	}
	return named
}
