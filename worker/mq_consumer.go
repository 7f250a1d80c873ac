package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/mq"
	"github.com/zlnvch/whiteboard/store"
)

// DeleteNotifier tells connected participants that a board is gone.
type DeleteNotifier interface {
	BoardDeleted(ctx context.Context, boardId string) error
}

type MQConsumer struct {
	deleteBoardQueue mq.MessageQueue
	boardStore       store.BoardStore
	boardCache       cache.BoardCache
	notifier         DeleteNotifier
	logger           *zap.Logger
}

func NewMQConsumer(deleteBoardQueue mq.MessageQueue, boardStore store.BoardStore, boardCache cache.BoardCache, notifier DeleteNotifier, logger *zap.Logger) *MQConsumer {
	return &MQConsumer{
		deleteBoardQueue: deleteBoardQueue,
		boardStore:       boardStore,
		boardCache:       boardCache,
		notifier:         notifier,
		logger:           logger,
	}
}

// Allow up to 5 minutes for the throttled batch deletion of a board
const visibilityTimeout = 300

func (mqConsumer *MQConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := mqConsumer.deleteBoardQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			mqConsumer.logger.Warn("mqConsumer receive error", zap.Error(err))
			continue
		}

		if msg == nil {
			continue
		}

		job, err := mq.DecodeJob(msg)
		if err != nil {
			mqConsumer.logger.Warn("dropping malformed job", zap.String("messageId", msg.Id), zap.Error(err))
			continue
		}

		if err := mqConsumer.handle(job); err != nil {
			// Left on the queue; it becomes visible again after the timeout
			mqConsumer.logger.Error("job failed", zap.String("kind", string(job.Kind)), zap.String("boardId", job.BoardId), zap.Error(err))
			continue
		}

		if err := mqConsumer.deleteBoardQueue.Delete(context.Background(), msg); err != nil {
			mqConsumer.logger.Warn("mqConsumer delete error", zap.Error(err))
			continue
		}
	}
}

func (mqConsumer *MQConsumer) handle(job mq.Job) error {
	// timeout should be a little less than queue visibility timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)
	defer cancel()

	switch job.Kind {
	case mq.JobDeleteBoard:
		if err := mqConsumer.boardStore.DeleteBoard(ctx, job.BoardId); err != nil {
			return err
		}
		// Drop the cached copy so no instance reloads stale layers
		if err := mqConsumer.boardCache.InvalidateBoard(ctx, job.BoardId); err != nil {
			mqConsumer.logger.Warn("failed to invalidate board", zap.String("boardId", job.BoardId), zap.Error(err))
		}
		if mqConsumer.notifier != nil {
			if err := mqConsumer.notifier.BoardDeleted(ctx, job.BoardId); err != nil {
				mqConsumer.logger.Warn("failed to announce board deletion", zap.String("boardId", job.BoardId), zap.Error(err))
			}
		}
		mqConsumer.logger.Info("board deleted", zap.String("boardId", job.BoardId), zap.String("requestedBy", job.RequestedBy))
		return nil
	}

	mqConsumer.logger.Warn("unknown job kind", zap.String("kind", string(job.Kind)))
	return nil
}
