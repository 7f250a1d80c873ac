package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/service"
	"github.com/zlnvch/whiteboard/shapes"
)

func TestValidateBoardId(t *testing.T) {
	tests := []struct {
		name    string
		boardId string
		wantErr bool
	}{
		{"Simple", "team-board_1", false},
		{"UUID", "0190f1a2-7b3c-7d4e-8f90-123456789abc", false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", 65), true},
		{"Channel Separator", "a:b", true},
		{"Hash Tag Braces", "a{b}", true},
		{"Whitespace", "a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateBoardId(tt.boardId)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStyle(t *testing.T) {
	black := models.RGB(0, 0, 0)

	tests := []struct {
		name    string
		style   shapes.Style
		wantErr string
	}{
		{"Fill Only", shapes.Style{Fill: black}, ""},
		{"Stroke", shapes.Style{Fill: black, Stroke: &black, StrokeWidth: 2}, ""},
		{"Stroke Width Too Small", shapes.Style{Fill: black, Stroke: &black, StrokeWidth: 0}, "invalid stroke width"},
		{"Stroke Width Too Large", shapes.Style{Fill: black, Stroke: &black, StrokeWidth: 21}, "invalid stroke width"},
		{"Alpha Out Of Range", shapes.Style{Fill: models.RGBA(0, 0, 0, 1.5)}, "invalid fill alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateStyle(tt.style)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMindMap(t *testing.T) {
	root := canvas.MindMapNode{Id: "root", Title: "Launch", Level: 0}
	child := canvas.MindMapNode{Id: "c1", Title: "Marketing", Level: 1, ParentId: "root", Color: "#10b981"}

	tests := []struct {
		name    string
		mm      canvas.MindMap
		wantErr string
	}{
		{
			"Valid",
			canvas.MindMap{Nodes: []canvas.MindMapNode{root, child}, Connections: []canvas.MindMapConnection{{From: "root", To: "c1"}}},
			"",
		},
		{
			"Empty",
			canvas.MindMap{},
			"mind map has no nodes",
		},
		{
			"Duplicate Id",
			canvas.MindMap{Nodes: []canvas.MindMapNode{root, root}},
			`duplicate mind map node "root"`,
		},
		{
			"Bad Color",
			canvas.MindMap{Nodes: []canvas.MindMapNode{{Id: "n", Color: "green"}}},
			`mind map node "n" has invalid color`,
		},
		{
			"Negative Level",
			canvas.MindMap{Nodes: []canvas.MindMapNode{{Id: "n", Level: -1}}},
			`mind map node "n" has invalid level`,
		},
		{
			"Dangling Connection",
			canvas.MindMap{Nodes: []canvas.MindMapNode{root}, Connections: []canvas.MindMapConnection{{From: "root", To: "ghost"}}},
			`connection to unknown node "ghost"`,
		},
		{
			"Title Too Long",
			canvas.MindMap{Nodes: []canvas.MindMapNode{{Id: "n", Title: strings.Repeat("x", 201)}}},
			`mind map node "n" text too long`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateMindMap(tt.mm)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMindMap_TooManyNodes(t *testing.T) {
	nodes := make([]canvas.MindMapNode, 51)
	for i := range nodes {
		nodes[i] = canvas.MindMapNode{Id: strings.Repeat("n", i+1)}
	}
	assert.Error(t, service.ValidateMindMap(canvas.MindMap{Nodes: nodes}))
}

func TestValidateEntity(t *testing.T) {
	field := models.ERDField{Id: "f1", Name: "id", Type: "UUID"}

	tests := []struct {
		name      string
		tableName string
		fields    []models.ERDField
		wantErr   bool
	}{
		{"Valid", "users", []models.ERDField{field}, false},
		{"No Fields", "users", nil, false},
		{"Blank Name", "  ", nil, true},
		{"Long Name", strings.Repeat("t", 65), nil, true},
		{"Too Many Fields", "users", make([]models.ERDField, 51), true},
		{"Long Field Type", "users", []models.ERDField{{Id: "f1", Name: "id", Type: strings.Repeat("x", 65)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateEntity(tt.tableName, tt.fields)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeEntityFields(t *testing.T) {
	in := []models.ERDField{
		{Id: "f1", Name: "", Type: "UUID"},
		{Id: "f2", Name: "email", Type: "String"},
	}

	// The first field becomes the key and is then dropped for having no name
	assert.Equal(t, []models.ERDField{{Id: "f2", Name: "email", Type: "String"}}, service.NormalizeEntityFields(in))
	assert.Equal(t, "", in[0].Name)
	assert.False(t, in[0].IsPrimaryKey)

	keyed := []models.ERDField{{Id: "f1", Name: "id"}, {Id: "f2", Name: "sku", IsPrimaryKey: true}}
	assert.Equal(t, keyed, service.NormalizeEntityFields(keyed))
	assert.Empty(t, service.NormalizeEntityFields(nil))

	assert.NoError(t, service.ValidateLayerValue(strings.Repeat("a", 10000)))
	assert.Error(t, service.ValidateLayerValue(strings.Repeat("a", 10001)))
}
