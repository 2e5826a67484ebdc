package server

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/journey-mapper/internal/model"
)

// --- Source Adapter Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListSourceStages(ctx context.Context, tenantID string) ([]model.SourceStage, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SourceStage), args.Error(1)
}

func (m *mockSource) FetchEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error) {
	args := m.Called(ctx, tenantID, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entity), args.Error(1)
}

func (m *mockSource) SearchEntities(ctx context.Context, tenantID, query string) ([]model.EntitySummary, error) {
	args := m.Called(ctx, tenantID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EntitySummary), args.Error(1)
}
