package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/zlnvch/whiteboard/api"
	"github.com/zlnvch/whiteboard/cache/redis"
	"github.com/zlnvch/whiteboard/config"
	"github.com/zlnvch/whiteboard/mq/sqsmq"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/store/dynamo"
	"github.com/zlnvch/whiteboard/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "whiteboard",
	Short: "Collaborative whiteboard server",
	Long: `whiteboard serves shared boards over websockets.

Every participant's pointer and keyboard input drives a canvas state machine
on the server; layer changes are persisted and fanned out to everyone else on
the board, across servers through redis.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger(cfg.DevMode)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		return serve(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "whiteboard.yaml", "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(devMode bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if devMode {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapConfig.Build()
}

func newBoardStore(ctx context.Context, cfg *config.Config) (store.BoardStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		s, err := sqlite.NewSQLiteBoardStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := dynamo.NewDynamoBoardStore(ctx, cfg.DevMode, cfg.Store.DynamoEndpoint, cfg.Store.DynamoTable)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create dynamodb store: %w", err)
		}
		return s, func() {}, nil
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	boardStore, closeStore, err := newBoardStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	deleteBoardQueue, err := sqsmq.NewSQSMessageQueue(ctx, cfg.DevMode, cfg.Queue.Endpoint, cfg.Queue.DeleteBoardQueue)
	if err != nil {
		return fmt.Errorf("failed to create SQS MQ: %w", err)
	}

	boardCache, err := redis.NewRedisBoardCache(ctx, cfg.DevMode, cfg.Redis.Endpoint, logger.Named("redis"))
	if err != nil {
		return fmt.Errorf("failed to create redis cache: %w", err)
	}
	defer boardCache.Close()

	jwtSecret, err := cfg.JWTSecretBytes()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(shutdownCtx)

	whiteboardAPI := api.NewWhiteboardAPI(
		boardStore,
		deleteBoardQueue,
		boardCache,
		jwtSecret,
		cfg.MachineConfig(),
		api.WorkerIntervals{LayerBatchMs: cfg.Workers.LayerBatchMs, EditCountMs: cfg.Workers.EditCountMs},
		gctx,
		logger,
	)
	whiteboardAPI.StartWorkers(g)

	mux := http.NewServeMux()
	whiteboardAPI.RegisterRoutes(mux, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              ":" + cfg.HostPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("starting server", zap.String("hostPort", cfg.HostPort), zap.String("store", cfg.Store.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	})

	return g.Wait()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
