package canvas

import (
	"strings"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

const (
	entityMinHeight   = 120
	entityHeaderSize  = 50
	entityFieldHeight = 25
)

// SetLayerValue replaces the text of a text, note, shape or mind map node
// layer. Other layers and missing ids are left alone.
func (m *Machine) SetLayerValue(id, value string) {
	m.doc.Batch(func(tx store.Tx) {
		layer, ok := tx.Get(id)
		if !ok || !holdsText(layer) {
			return
		}
		tx.Update(id, models.LayerPatch{Value: models.String(value)})
	})
}

func holdsText(layer models.Layer) bool {
	switch layer.(type) {
	case models.TextLayer, models.NoteLayer, models.ShapeLayer, models.MindMapNodeLayer:
		return true
	}
	return false
}

// UpdateEntity saves an edited ERD entity. The entity grows to fit its fields
// but never shrinks below its minimum height.
func (m *Machine) UpdateEntity(id, tableName string, fields []models.ERDField) {
	m.doc.Batch(func(tx store.Tx) {
		layer, ok := tx.Get(id)
		if !ok {
			return
		}
		entity, ok := layer.(models.ERDEntityLayer)
		if !ok {
			return
		}
		name := strings.TrimSpace(tableName)
		entity.Name = name
		entity.TableName = name
		entity.Fields = append([]models.ERDField(nil), fields...)
		entity.Height = EntityHeight(len(fields))
		tx.Set(id, entity)
	})
}

func EntityHeight(fieldCount int) float64 {
	return max(entityMinHeight, entityHeaderSize+entityFieldHeight*float64(fieldCount))
}
