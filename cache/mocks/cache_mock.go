package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/whiteboard/cache"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) SetLayers(ctx context.Context, boardId string, layers map[string][]byte) error {
	args := m.Called(ctx, boardId, layers)
	return args.Error(0)
}

func (m *MockCache) RemoveLayers(ctx context.Context, boardId string, layerIds []string) error {
	args := m.Called(ctx, boardId, layerIds)
	return args.Error(0)
}

func (m *MockCache) SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error {
	args := m.Called(ctx, boardId, layerIds)
	return args.Error(0)
}

func (m *MockCache) GetBoard(ctx context.Context, boardId string) (cache.BoardEntry, error) {
	args := m.Called(ctx, boardId)
	return args.Get(0).(cache.BoardEntry), args.Error(1)
}

func (m *MockCache) SetBoardComplete(ctx context.Context, boardId string) error {
	args := m.Called(ctx, boardId)
	return args.Error(0)
}

func (m *MockCache) IsBoardComplete(ctx context.Context, boardId string) (bool, error) {
	args := m.Called(ctx, boardId)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) InvalidateBoard(ctx context.Context, boardId string) error {
	args := m.Called(ctx, boardId)
	return args.Error(0)
}

func (m *MockCache) SetPresence(ctx context.Context, boardId string, key string, presence []byte) error {
	args := m.Called(ctx, boardId, key, presence)
	return args.Error(0)
}

func (m *MockCache) RemovePresence(ctx context.Context, boardId string, key string) error {
	args := m.Called(ctx, boardId, key)
	return args.Error(0)
}

func (m *MockCache) GetPresence(ctx context.Context, boardId string) (map[string][]byte, error) {
	args := m.Called(ctx, boardId)
	return args.Get(0).(map[string][]byte), args.Error(1)
}
