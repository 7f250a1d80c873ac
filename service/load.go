package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/models"
)

// LoadBoard returns the persisted board. A complete cached copy wins;
// otherwise the store is read and the cache is seeded for the next load.
func (s *Service) LoadBoard(ctx context.Context, boardId string) (models.BoardSnapshot, error) {
	if err := ValidateBoardId(boardId); err != nil {
		return models.BoardSnapshot{}, err
	}

	isComplete, err := s.Cache.IsBoardComplete(ctx, boardId)
	if err == nil && isComplete {
		entry, err := s.Cache.GetBoard(ctx, boardId)
		if err == nil {
			return s.decodeSnapshot(boardId, entry.LayerIds, entry.Layers), nil
		}
		s.logger.Warn("cached board unreadable, falling back to store", zap.String("boardId", boardId), zap.Error(err))
	}

	if _, err := s.Store.EnsureBoard(ctx, boardId); err != nil {
		return models.BoardSnapshot{}, fmt.Errorf("ensure board: %w", err)
	}

	records, err := s.Store.GetBoardLayers(ctx, boardId)
	if err != nil {
		return models.BoardSnapshot{}, fmt.Errorf("get board layers: %w", err)
	}

	order, err := s.Store.GetLayerOrder(ctx, boardId)
	if err != nil {
		return models.BoardSnapshot{}, fmt.Errorf("get layer order: %w", err)
	}

	data := make(map[string][]byte, len(records))
	for _, r := range records {
		if r.Deleted {
			continue
		}
		data[r.LayerId] = r.Data
	}
	snapshot := s.decodeSnapshot(boardId, order, data)

	s.seedCache(ctx, boardId, snapshot.LayerIds, data)

	return snapshot, nil
}

func (s *Service) seedCache(ctx context.Context, boardId string, layerIds []string, data map[string][]byte) {
	if len(data) > 0 {
		if err := s.Cache.SetLayers(ctx, boardId, data); err != nil {
			s.logger.Warn("failed to seed cached layers", zap.String("boardId", boardId), zap.Error(err))
			return
		}
	}
	if err := s.Cache.SetLayerOrder(ctx, boardId, layerIds); err != nil {
		s.logger.Warn("failed to seed cached layer order", zap.String("boardId", boardId), zap.Error(err))
		return
	}
	// Mark as complete even if currently empty
	if err := s.Cache.SetBoardComplete(ctx, boardId); err != nil {
		s.logger.Warn("failed to mark board cached", zap.String("boardId", boardId), zap.Error(err))
	}
}

// decodeSnapshot drops layers that fail to decode and repairs the order:
// ids without a layer are skipped and layers missing from the order go on top.
func (s *Service) decodeSnapshot(boardId string, order []string, data map[string][]byte) models.BoardSnapshot {
	snapshot := models.BoardSnapshot{LayerIds: make([]string, 0, len(data)), Layers: make(map[string]models.Layer, len(data))}

	for id, raw := range data {
		layer, err := models.UnmarshalLayer(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable layer", zap.String("boardId", boardId), zap.String("layerId", id), zap.Error(err))
			continue
		}
		snapshot.Layers[id] = layer
	}

	seen := make(map[string]struct{}, len(snapshot.Layers))
	for _, id := range order {
		if _, ok := snapshot.Layers[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		snapshot.LayerIds = append(snapshot.LayerIds, id)
	}

	// Layer ids are time-ordered so unlisted layers keep their creation order
	var missing []string
	for id := range snapshot.Layers {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	snapshot.LayerIds = append(snapshot.LayerIds, missing...)

	return snapshot
}

type LayerEntry struct {
	Id    string          `json:"id"`
	Layer json.RawMessage `json:"layer"`
}

// BoardLayers returns the board's layers bottom to top, encoded. A board that
// is open on this server is read from memory.
func (s *Service) BoardLayers(ctx context.Context, boardId string) ([]LayerEntry, error) {
	var snapshot models.BoardSnapshot
	if b := s.activeBoard(boardId); b != nil {
		snapshot = b.room.Snapshot()
	} else {
		var err error
		snapshot, err = s.LoadBoard(ctx, boardId)
		if err != nil {
			return nil, err
		}
	}

	layers := make([]LayerEntry, 0, len(snapshot.LayerIds))
	for _, id := range snapshot.LayerIds {
		raw, err := models.MarshalLayer(snapshot.Layers[id])
		if err != nil {
			return nil, fmt.Errorf("encode layer %s: %w", id, err)
		}
		layers = append(layers, LayerEntry{Id: id, Layer: raw})
	}
	return layers, nil
}

// BoardPresence lists the participants connected to the board on any server.
func (s *Service) BoardPresence(ctx context.Context, boardId string) ([]models.OtherPresence, error) {
	if err := ValidateBoardId(boardId); err != nil {
		return nil, err
	}

	raw, err := s.Cache.GetPresence(ctx, boardId)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	presence := make([]models.OtherPresence, 0, len(raw))
	for _, key := range keys {
		var p models.OtherPresence
		if err := json.Unmarshal(raw[key], &p); err != nil {
			s.logger.Warn("skipping undecodable presence", zap.String("boardId", boardId), zap.String("key", key), zap.Error(err))
			continue
		}
		presence = append(presence, p)
	}
	return presence, nil
}
