package mocks

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
)

// MockCapability is a mock implementation of protocol.Capability interface.
type MockCapability struct {
	mock.Mock
}

func (m *MockCapability) Run(ctx context.Context, phaseCtx *models.PhaseContext) (map[string]any, error) {
	args := m.Called(ctx, phaseCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

// MockCapabilityFactory is a mock implementation of protocol.CapabilityFactory interface.
type MockCapabilityFactory struct {
	mock.Mock
}

func (m *MockCapabilityFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Capability, error) {
	args := m.Called(config, logger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(protocol.Capability), args.Error(1)
}

func (m *MockCapabilityFactory) ID() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockCapabilityFactory) Name() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockCapabilityFactory) Description() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockCapabilityFactory) Schema() map[string]any {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(map[string]any)
}
