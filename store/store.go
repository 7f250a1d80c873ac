package store

import (
	"context"
	"errors"

	"github.com/zlnvch/whiteboard/models"
)

// LayerStore is the shared layer map plus its z-ordered id list.
type LayerStore interface {
	Get(id string) (models.Layer, bool)
	Set(id string, layer models.Layer)
	Delete(id string)
	Update(id string, patch models.LayerPatch)
	Size() int

	LayerIds() []string
	PushId(id string)
	InsertId(index int, id string)
	DeleteIdAt(index int)
	IndexOf(id string) int
}

type PresenceOptions struct {
	AddToHistory bool
}

// Tx is the view handed to a batch. Everything done through it becomes
// visible to other participants as one unit and is undone as one step.
type Tx interface {
	LayerStore
	SetMyPresence(patch models.PresencePatch, opts PresenceOptions)
}

type Document interface {
	Get(id string) (models.Layer, bool)
	Size() int
	LayerIds() []string
	IndexOf(id string) int
	Batch(fn func(tx Tx))
}

type History interface {
	Undo()
	Redo()
	Pause()
	Resume()
	CanUndo() bool
	CanRedo() bool
}

type Presence interface {
	SetMyPresence(patch models.PresencePatch, opts PresenceOptions)
	Self() models.Presence
	Others() []models.OtherPresence
}

type IdGenerator interface {
	NewId() string
}

// BoardStore persists layers and their order per board.
type BoardStore interface {
	// EnsureBoard creates the board's metadata if missing and reports whether it did.
	EnsureBoard(ctx context.Context, boardId string) (bool, error)
	GetBoardLayers(ctx context.Context, boardId string) ([]models.LayerRecord, error)
	GetLayerOrder(ctx context.Context, boardId string) ([]string, error)
	WriteLayerBatch(ctx context.Context, records []models.LayerRecord) ([]models.LayerRecord, error)
	SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error
	IncrementBoardEdits(ctx context.Context, boardId string, count int) error
	DeleteBoard(ctx context.Context, boardId string) error
}

// Custom error types for clarity
var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
	ErrBoardNotFound   = errors.New("board does not exist")
)
