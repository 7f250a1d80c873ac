package redis

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zlnvch/whiteboard/cache"
)

type RedisBoardCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ cache.BoardCache = (*RedisBoardCache)(nil)

func NewRedisBoardCache(ctx context.Context, devMode bool, redisEndpoint string, logger *zap.Logger) (*RedisBoardCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisBoardCache{client: client, logger: logger}, nil
}

func (redisCache *RedisBoardCache) Close() error {
	return redisCache.client.Close()
}

func (redisCache *RedisBoardCache) Publish(ctx context.Context, channel string, message []byte) error {
	if err := redisCache.client.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	return nil
}

func (redisCache *RedisBoardCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		redisCache.logger.Warn("pubsub subscribe failed", zap.String("channel", channel), zap.Error(err))
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Helper functions to generate Redis keys with hash tags for cluster compatibility
func buildBoardKey(boardId string) string {
	return "board:{" + boardId + "}"
}

func buildBoardDataKey(boardId string) string {
	return "board:{" + boardId + "}:data"
}

func buildBoardCompleteKey(boardId string) string {
	return "board:{" + boardId + "}:complete"
}

func buildBoardPresenceKey(boardId string) string {
	return "board:{" + boardId + "}:presence"
}

const (
	cacheTTL    = 10 * time.Minute
	presenceTTL = 2 * time.Minute
)

// Boards are stored split into index and data:
// 1. ZSet ("board:{id}"): layer ids scored by their z-index.
// 2. Hash ("board:{id}:data"): layer id -> encoded layer.
// Reordering rewrites only the ZSet and edits touch only the hash.
func (redisCache *RedisBoardCache) SetLayers(ctx context.Context, boardId string, layers map[string][]byte) error {
	if len(layers) == 0 {
		return nil
	}

	key := buildBoardKey(boardId)
	dataKey := buildBoardDataKey(boardId)
	completeKey := buildBoardCompleteKey(boardId)

	// A flat list of key, value, key, value... is usually most efficient for HSet in go-redis
	hValues := make([]interface{}, 0, len(layers)*2)
	for id, data := range layers {
		hValues = append(hValues, id, data)
	}

	pipe := redisCache.client.Pipeline()
	pipe.HSet(ctx, dataKey, hValues...)
	pipe.Expire(ctx, completeKey, cacheTTL)
	pipe.Expire(ctx, key, cacheTTL)
	pipe.Expire(ctx, dataKey, cacheTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisBoardCache) RemoveLayers(ctx context.Context, boardId string, layerIds []string) error {
	if len(layerIds) == 0 {
		return nil
	}

	key := buildBoardKey(boardId)
	dataKey := buildBoardDataKey(boardId)

	members := make([]interface{}, len(layerIds))
	for i, id := range layerIds {
		members[i] = id
	}

	pipe := redisCache.client.Pipeline()
	pipe.ZRem(ctx, key, members...)
	pipe.HDel(ctx, dataKey, layerIds...)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisBoardCache) SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error {
	key := buildBoardKey(boardId)

	pipe := redisCache.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(layerIds) > 0 {
		zMembers := make([]redis.Z, len(layerIds))
		for i, id := range layerIds {
			zMembers[i] = redis.Z{Score: float64(i), Member: id}
		}
		pipe.ZAdd(ctx, key, zMembers...)
		pipe.Expire(ctx, key, cacheTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisBoardCache) GetBoard(ctx context.Context, boardId string) (cache.BoardEntry, error) {
	key := buildBoardKey(boardId)
	dataKey := buildBoardDataKey(boardId)
	completeKey := buildBoardCompleteKey(boardId)

	entry := cache.BoardEntry{LayerIds: []string{}, Layers: map[string][]byte{}}

	ids, err := redisCache.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return cache.BoardEntry{}, err
	}
	entry.LayerIds = append(entry.LayerIds, ids...)

	data, err := redisCache.client.HGetAll(ctx, dataKey).Result()
	if err != nil {
		return cache.BoardEntry{}, err
	}
	for id, blob := range data {
		entry.Layers[id] = []byte(blob)
	}

	// Refresh TTL
	pipe := redisCache.client.Pipeline()
	pipe.Expire(ctx, completeKey, cacheTTL)
	pipe.Expire(ctx, key, cacheTTL)
	pipe.Expire(ctx, dataKey, cacheTTL)
	_, _ = pipe.Exec(ctx)

	return entry, nil
}

func (redisCache *RedisBoardCache) SetBoardComplete(ctx context.Context, boardId string) error {
	completeKey := buildBoardCompleteKey(boardId)
	return redisCache.client.Set(ctx, completeKey, "true", cacheTTL).Err()
}

func (redisCache *RedisBoardCache) IsBoardComplete(ctx context.Context, boardId string) (bool, error) {
	completeKey := buildBoardCompleteKey(boardId)
	val, err := redisCache.client.Exists(ctx, completeKey).Result()
	if err != nil {
		return false, err
	}
	return val > 0, nil
}

func (redisCache *RedisBoardCache) InvalidateBoard(ctx context.Context, boardId string) error {
	// All keys for this board share a hash tag, so they hash to the same slot
	return redisCache.client.Del(ctx,
		buildBoardKey(boardId),
		buildBoardDataKey(boardId),
		buildBoardCompleteKey(boardId),
		buildBoardPresenceKey(boardId),
	).Err()
}

// Presence of participants on every instance, keyed by instance and connection.
func (redisCache *RedisBoardCache) SetPresence(ctx context.Context, boardId string, key string, presence []byte) error {
	presenceKey := buildBoardPresenceKey(boardId)

	pipe := redisCache.client.Pipeline()
	pipe.HSet(ctx, presenceKey, key, presence)
	pipe.Expire(ctx, presenceKey, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisBoardCache) RemovePresence(ctx context.Context, boardId string, key string) error {
	return redisCache.client.HDel(ctx, buildBoardPresenceKey(boardId), key).Err()
}

func (redisCache *RedisBoardCache) GetPresence(ctx context.Context, boardId string) (map[string][]byte, error) {
	data, err := redisCache.client.HGetAll(ctx, buildBoardPresenceKey(boardId)).Result()
	if err != nil {
		if err == redis.Nil {
			return map[string][]byte{}, nil
		}
		return nil, err
	}

	presence := make(map[string][]byte, len(data))
	for key, blob := range data {
		presence[key] = []byte(blob)
	}
	return presence, nil
}
