package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/store"
)

type EditUpdate struct {
	BoardId string
	Delta   int
}

// EditCounter sums persisted edits per board and writes the totals to the
// board metadata on every tick.
type EditCounter struct {
	UpdateCh           chan EditUpdate
	boardStore         store.BoardStore
	logger             *zap.Logger
	tickerMilliseconds int
}

func NewEditCounter(boardStore store.BoardStore, tickerMilliseconds int, logger *zap.Logger) *EditCounter {
	return &EditCounter{
		UpdateCh:           make(chan EditUpdate, 1024),
		boardStore:         boardStore,
		logger:             logger,
		tickerMilliseconds: tickerMilliseconds,
	}
}

func (b *EditCounter) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(b.tickerMilliseconds) * time.Millisecond)
	defer ticker.Stop()

	boardCounts := make(map[string]int)

	flush := func() {
		for boardId, count := range boardCounts {
			if count == 0 {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := b.boardStore.IncrementBoardEdits(ctx, boardId, count); err != nil {
				b.logger.Warn("failed to update board edit count", zap.String("boardId", boardId), zap.Int("count", count), zap.Error(err))
			}
			cancel()
		}
		clear(boardCounts)
	}

	for {
		select {
		case update := <-b.UpdateCh:
			if update.BoardId != "" {
				boardCounts[update.BoardId] += update.Delta
			}
			if len(boardCounts) >= 100 {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			flush()
			return
		}
	}
}
