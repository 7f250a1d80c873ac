package api

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zlnvch/whiteboard/api/rest"
	"github.com/zlnvch/whiteboard/api/ws"
	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/mq"
	"github.com/zlnvch/whiteboard/service"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/worker"
)

type WorkerIntervals struct {
	LayerBatchMs int
	EditCountMs  int
}

type WhiteboardAPI struct {
	Service      *service.Service
	restHandler  *rest.Handler
	wsHandler    *ws.Handler
	editCounter  *worker.EditCounter
	layerBatcher *worker.LayerBatcher
	mqConsumer   *worker.MQConsumer
	shutdownCtx  context.Context
	logger       *zap.Logger
}

func NewWhiteboardAPI(
	boardStore store.BoardStore,
	deleteBoardQueue mq.MessageQueue,
	boardCache cache.BoardCache,
	jwtSecret []byte,
	machineConfig canvas.Config,
	intervals WorkerIntervals,
	shutdownCtx context.Context,
	logger *zap.Logger,
) *WhiteboardAPI {
	wsHub := ws.NewHub(logger.Named("hub"))
	go wsHub.Run()

	editCounter := worker.NewEditCounter(boardStore, intervals.EditCountMs, logger.Named("edit_counter"))
	layerBatcher := worker.NewLayerBatcher(boardStore, intervals.LayerBatchMs, editCounter, logger.Named("layer_batcher"))

	svc := service.NewService(
		boardStore,
		boardCache,
		deleteBoardQueue,
		layerBatcher,
		jwtSecret,
		machineConfig,
		logger.Named("service"),
	)

	mqConsumer := worker.NewMQConsumer(deleteBoardQueue, boardStore, boardCache, svc, logger.Named("mq_consumer"))

	return &WhiteboardAPI{
		Service:      svc,
		restHandler:  rest.NewHandler(svc, logger.Named("rest")),
		wsHandler:    ws.NewHandler(svc, wsHub, logger.Named("ws")),
		editCounter:  editCounter,
		layerBatcher: layerBatcher,
		mqConsumer:   mqConsumer,
		shutdownCtx:  shutdownCtx,
		logger:       logger,
	}
}

// StartWorkers runs the background workers in g until shutdownCtx is done.
// Each worker flushes what it holds before returning.
func (whiteboardAPI *WhiteboardAPI) StartWorkers(g *errgroup.Group) {
	g.Go(func() error {
		whiteboardAPI.editCounter.Run(whiteboardAPI.shutdownCtx)
		return nil
	})
	g.Go(func() error {
		whiteboardAPI.layerBatcher.Run(whiteboardAPI.shutdownCtx)
		return nil
	})
	g.Go(func() error {
		whiteboardAPI.mqConsumer.Run(whiteboardAPI.shutdownCtx)
		return nil
	})
}

func (whiteboardAPI *WhiteboardAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("GET /health", whiteboardAPI.restHandler.HandleHealth)

	mux.HandleFunc("GET /boards/{id}/layers", whiteboardAPI.restHandler.HandleBoardLayers)
	mux.HandleFunc("GET /boards/{id}/presence", whiteboardAPI.restHandler.HandleBoardPresence)
	mux.HandleFunc("DELETE /boards/{id}", whiteboardAPI.restHandler.HandleDeleteBoard)

	wsUpgrader := whiteboardAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		whiteboardAPI.wsHandler.ServeWS(wsUpgrader, w, r, whiteboardAPI.shutdownCtx)
	})
}
