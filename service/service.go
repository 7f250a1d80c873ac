package service

import (
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/mq"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/store/memory"
	"github.com/zlnvch/whiteboard/worker"
)

type Service struct {
	Store         store.BoardStore
	Cache         cache.BoardCache
	MQ            mq.MessageQueue
	LayerBatcher  *worker.LayerBatcher
	JWTSecret     []byte
	MachineConfig canvas.Config
	// InstanceId tags everything this server publishes so it can skip its own echoes.
	InstanceId string
	Ids        store.IdGenerator

	logger *zap.Logger
	mu     sync.Mutex
	boards map[string]*Board
}

var _ worker.DeleteNotifier = (*Service)(nil)

func NewService(
	store store.BoardStore,
	cache cache.BoardCache,
	mq mq.MessageQueue,
	layerBatcher *worker.LayerBatcher,
	jwtSecret []byte,
	machineConfig canvas.Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:         store,
		Cache:         cache,
		MQ:            mq,
		LayerBatcher:  layerBatcher,
		JWTSecret:     jwtSecret,
		MachineConfig: machineConfig,
		InstanceId:    uuid.Must(uuid.NewV4()).String(),
		Ids:           memory.UUIDGenerator{},
		logger:        logger,
		boards:        make(map[string]*Board),
	}
}

// ActiveBoards is the number of boards with at least one local participant.
func (s *Service) ActiveBoards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.boards)
}

func (s *Service) activeBoard(boardId string) *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boards[boardId]
}
