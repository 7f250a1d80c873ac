package canvas

import "github.com/zlnvch/whiteboard/models"

type EventType string

const (
	EventLayerInserted       EventType = "layer_inserted"
	EventPathInserted        EventType = "path_inserted"
	EventLayerErased         EventType = "layer_erased"
	EventLayersDeleted       EventType = "layers_deleted"
	EventSelectionChanged    EventType = "selection_changed"
	EventConnectionStarted   EventType = "erd_connection_started"
	EventConnectionCancelled EventType = "erd_connection_cancelled"
	EventRelationshipCreated EventType = "relationship_created"
	EventMindMapInserted     EventType = "mindmap_inserted"
	EventLayerLimitReached   EventType = "layer_limit_reached"
	EventEntityEditRequested EventType = "erd_entity_edit_requested"
	EventHistoryUndo         EventType = "history_undo"
	EventHistoryRedo         EventType = "history_redo"
)

type Event struct {
	Type     EventType         `json:"type"`
	LayerIds []string          `json:"layerIds,omitempty"`
	Kind     *models.LayerType `json:"kind,omitempty"`
}

// Emitter receives the machine's notable transitions so a host can react
// (open an editor, show a toast) without the machine reaching for shared UI
// state.
type Emitter interface {
	Emit(event Event)
}

type EmitterFunc func(event Event)

func (f EmitterFunc) Emit(event Event) { f(event) }

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}
