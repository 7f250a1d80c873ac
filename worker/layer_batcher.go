package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

const (
	// DynamoDB BatchWriteItem accepts at most 25 items.
	maxBatchSize        = 25
	maxShutdownAttempts = 3
)

type OrderUpdate struct {
	BoardId  string
	LayerIds []string
}

type layerKey struct {
	boardId string
	layerId string
}

// LayerBatcher buffers layer writes and order changes and persists them in
// batches. Writes to the same layer coalesce so only the latest state (or
// tombstone) is stored.
type LayerBatcher struct {
	WriteCh            chan models.LayerRecord
	OrderCh            chan OrderUpdate
	boardStore         store.BoardStore
	editCounter        *EditCounter
	logger             *zap.Logger
	tickerMilliseconds int
}

func NewLayerBatcher(boardStore store.BoardStore, tickerMilliseconds int, editCounter *EditCounter, logger *zap.Logger) *LayerBatcher {
	return &LayerBatcher{
		WriteCh:            make(chan models.LayerRecord, 1024), // buffer to absorb bursts
		OrderCh:            make(chan OrderUpdate, 256),
		boardStore:         boardStore,
		editCounter:        editCounter,
		logger:             logger,
		tickerMilliseconds: tickerMilliseconds,
	}
}

func (b *LayerBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(b.tickerMilliseconds) * time.Millisecond)
	defer ticker.Stop()

	pending := make(map[layerKey]models.LayerRecord)
	// Insertion order of pending keys so batches go out oldest first
	queue := make([]layerKey, 0, maxBatchSize)
	orders := make(map[string][]string)

	add := func(record models.LayerRecord) {
		k := layerKey{record.BoardId, record.LayerId}
		if _, ok := pending[k]; !ok {
			queue = append(queue, k)
		}
		pending[k] = record
	}

	// flushWrites writes the queue in batches. Failed records go back on the
	// queue unless a newer write superseded them. A regular flush stops at the
	// first failure and leaves the rest for the next tick; the final flush
	// keeps going and gives each record a bounded number of attempts.
	flushWrites := func(final bool) {
		attempts := make(map[layerKey]int)
		for len(queue) > 0 {
			n := min(maxBatchSize, len(queue))
			batch := make([]models.LayerRecord, 0, n)
			for _, k := range queue[:n] {
				batch = append(batch, pending[k])
				delete(pending, k)
			}
			queue = queue[n:]

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			unprocessed, err := b.boardStore.WriteLayerBatch(ctx, batch)
			cancel()

			failed := make(map[layerKey]bool, len(unprocessed))
			for _, u := range unprocessed {
				failed[layerKey{u.BoardId, u.LayerId}] = true
			}
			if err != nil {
				b.logger.Error("error writing layer batch", zap.Int("size", len(batch)), zap.Error(err))
				for _, r := range batch {
					failed[layerKey{r.BoardId, r.LayerId}] = true
				}
			}

			edits := make(map[string]int)
			dropped := 0
			for _, r := range batch {
				k := layerKey{r.BoardId, r.LayerId}
				if !failed[k] {
					edits[r.BoardId]++
					continue
				}
				if _, ok := pending[k]; ok {
					continue
				}
				if final {
					attempts[k]++
					if attempts[k] >= maxShutdownAttempts {
						dropped++
						continue
					}
				}
				add(r)
			}
			if dropped > 0 {
				b.logger.Error("dropping layer writes on shutdown", zap.Int("count", dropped))
			}
			b.countEdits(edits)

			if len(failed) > 0 && !final {
				return
			}
		}
	}

	flushOrders := func() {
		for boardId, layerIds := range orders {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := b.boardStore.SetLayerOrder(ctx, boardId, layerIds); err != nil {
				b.logger.Error("error writing layer order", zap.String("boardId", boardId), zap.Error(err))
			}
			cancel()
		}
		clear(orders)
	}

	for {
		select {
		case record := <-b.WriteCh:
			add(record)
			if len(queue) >= maxBatchSize {
				flushWrites(false)
			}

		case update := <-b.OrderCh:
			orders[update.BoardId] = update.LayerIds

		case <-ticker.C:
			flushWrites(false)
			flushOrders()

		case <-shutdownCtx.Done():
			// Take what is already buffered into the final flush
		drain:
			for {
				select {
				case record := <-b.WriteCh:
					add(record)
				case update := <-b.OrderCh:
					orders[update.BoardId] = update.LayerIds
				default:
					break drain
				}
			}
			flushWrites(true)
			flushOrders()
			return
		}
	}
}

func (b *LayerBatcher) countEdits(edits map[string]int) {
	if b.editCounter == nil {
		return
	}
	for boardId, delta := range edits {
		select {
		case b.editCounter.UpdateCh <- EditUpdate{BoardId: boardId, Delta: delta}:
		default:
			b.logger.Warn("edit counter full, dropping update", zap.String("boardId", boardId))
		}
	}
}
