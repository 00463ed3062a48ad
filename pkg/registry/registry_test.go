package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/codegenius/codegenius/pkg/mocks"
	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCapability struct {
	config map[string]any
}

func (m *mockCapability) Run(_ context.Context, _ *models.PhaseContext) (map[string]any, error) {
	return map[string]any{"echo": m.config["message"]}, nil
}

type mockFactory struct {
	id     string
	schema map[string]any
}

func (m *mockFactory) Create(config map[string]any, _ *slog.Logger) (protocol.Capability, error) {
	return &mockCapability{config: config}, nil
}

func (m *mockFactory) ID() string          { return m.id }
func (m *mockFactory) Name() string        { return "Mock" }
func (m *mockFactory) Description() string { return "Mock capability for unit tests" }

func (m *mockFactory) Schema() map[string]any { return m.schema }

func testRegistry() *Registry {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewRegistry(logger)
}

func TestRegistry_RegisterAndCreateCapability(t *testing.T) {
	registry := testRegistry()
	registry.RegisterCapability(&mockFactory{
		id: "mock",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
	})

	capability, err := registry.CreateCapability("mock", map[string]any{"message": "hello"})
	require.NoError(t, err)

	output, err := capability.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", output["echo"])
}

func TestRegistry_CreateCapability_NotRegistered(t *testing.T) {
	registry := testRegistry()

	_, err := registry.CreateCapability("ghost", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_CreateCapability_SchemaViolation(t *testing.T) {
	registry := testRegistry()
	registry.RegisterCapability(&mockFactory{
		id: "mock",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
	})

	_, err := registry.CreateCapability("mock", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = registry.CreateCapability("mock", map[string]any{"message": 42})
	require.Error(t, err)
}

func TestRegistry_CreateCapability_ForwardsConfigToFactory(t *testing.T) {
	registry := testRegistry()

	capability := &mocks.MockCapability{}
	capability.On("Run", mock.Anything, mock.Anything).Return(map[string]any{"ok": true}, nil)

	factory := &mocks.MockCapabilityFactory{}
	factory.On("ID").Return("mocked")
	factory.On("Schema").Return(nil)
	factory.On("Create", map[string]any{"endpoint": "http://localhost"}, mock.Anything).Return(capability, nil)

	registry.RegisterCapability(factory)

	created, err := registry.CreateCapability("mocked", map[string]any{"endpoint": "http://localhost"})
	require.NoError(t, err)
	require.Same(t, capability, created)

	output, err := created.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, true, output["ok"])

	factory.AssertExpectations(t)
	capability.AssertExpectations(t)
}

func TestRegistry_CreateCapability_NilSchemaSkipsValidation(t *testing.T) {
	registry := testRegistry()
	registry.RegisterCapability(&mockFactory{id: "mock"})

	_, err := registry.CreateCapability("mock", map[string]any{"anything": true})
	require.NoError(t, err)
}

func TestRegistry_AvailableCapabilities(t *testing.T) {
	registry := testRegistry()
	registry.RegisterCapability(&mockFactory{id: "zeta"})
	registry.RegisterCapability(&mockFactory{id: "alpha"})

	assert.Equal(t, []string{"alpha", "zeta"}, registry.AvailableCapabilities())
}

func TestRegistry_RegisterDefaultCapabilities(t *testing.T) {
	registry := testRegistry()
	registry.RegisterDefaultCapabilities()

	assert.Equal(t,
		[]string{"code-analyzer", "doc-writer", "http-agent", "repo-mapper"},
		registry.AvailableCapabilities())
}
