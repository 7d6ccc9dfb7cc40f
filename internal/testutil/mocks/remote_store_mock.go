package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/stepple/internal/models"
)

// MockRemoteStore is a mock of the shared step store used by the device
// reconciler and the friends leaderboard.
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) PutDeviceSteps(ctx context.Context, userID, dateID string, count int64) error {
	args := m.Called(ctx, userID, dateID, count)
	return args.Error(0)
}

func (m *MockRemoteStore) UpsertProfileIdentity(ctx context.Context, userID, name string) error {
	args := m.Called(ctx, userID, name)
	return args.Error(0)
}

func (m *MockRemoteStore) GetStepRecord(ctx context.Context, userID, dateID string) (*models.StepRecord, error) {
	args := m.Called(ctx, userID, dateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StepRecord), args.Error(1)
}
