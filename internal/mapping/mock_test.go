package mapping

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/journey-mapper/internal/model"
)

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, tenantID string) (model.StageMapping, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.StageMapping), args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, tenantID string, sm model.StageMapping) error {
	args := m.Called(ctx, tenantID, sm)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
