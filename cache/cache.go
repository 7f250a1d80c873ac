package cache

import "context"

// BoardEntry is a cached board: its layer order and the encoded layers.
type BoardEntry struct {
	LayerIds []string
	Layers   map[string][]byte
}

type BoardCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	SetLayers(ctx context.Context, boardId string, layers map[string][]byte) error
	RemoveLayers(ctx context.Context, boardId string, layerIds []string) error
	SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error
	GetBoard(ctx context.Context, boardId string) (BoardEntry, error)

	SetBoardComplete(ctx context.Context, boardId string) error
	IsBoardComplete(ctx context.Context, boardId string) (bool, error)
	InvalidateBoard(ctx context.Context, boardId string) error

	SetPresence(ctx context.Context, boardId string, key string, presence []byte) error
	RemovePresence(ctx context.Context, boardId string, key string) error
	GetPresence(ctx context.Context, boardId string) (map[string][]byte, error)
}
