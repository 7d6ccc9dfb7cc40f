package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/stepple/internal/health"
)

// MockHealthPlatform is a mock implementation of health.Platform
type MockHealthPlatform struct {
	mock.Mock
	// Unsupported flips Supported to false.
	Unsupported bool
}

var _ health.Platform = (*MockHealthPlatform)(nil)

func (m *MockHealthPlatform) Supported() bool {
	return !m.Unsupported
}

func (m *MockHealthPlatform) Availability(ctx context.Context) (health.Availability, error) {
	args := m.Called(ctx)
	return args.Get(0).(health.Availability), args.Error(1)
}

func (m *MockHealthPlatform) HasPermission(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHealthPlatform) RequestPermission(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHealthPlatform) ReadStepTotal(ctx context.Context, startMillis, endMillis int64) (int64, error) {
	args := m.Called(ctx, startMillis, endMillis)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHealthPlatform) OpenSettings(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
