package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/whiteboard/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) EnsureBoard(ctx context.Context, boardId string) (bool, error) {
	args := m.Called(ctx, boardId)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetBoardLayers(ctx context.Context, boardId string) ([]models.LayerRecord, error) {
	args := m.Called(ctx, boardId)
	return args.Get(0).([]models.LayerRecord), args.Error(1)
}

func (m *MockStore) GetLayerOrder(ctx context.Context, boardId string) ([]string, error) {
	args := m.Called(ctx, boardId)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) WriteLayerBatch(ctx context.Context, records []models.LayerRecord) ([]models.LayerRecord, error) {
	args := m.Called(ctx, records)
	return args.Get(0).([]models.LayerRecord), args.Error(1)
}

func (m *MockStore) SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error {
	args := m.Called(ctx, boardId, layerIds)
	return args.Error(0)
}

func (m *MockStore) IncrementBoardEdits(ctx context.Context, boardId string, count int) error {
	args := m.Called(ctx, boardId, count)
	return args.Error(0)
}

func (m *MockStore) DeleteBoard(ctx context.Context, boardId string) error {
	args := m.Called(ctx, boardId)
	return args.Error(0)
}
